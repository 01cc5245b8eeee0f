package bookings

import "time"

// HoldResponse is returned from hold placement. It carries the pricing
// and title context a checkout page needs without a second round trip.
type HoldResponse struct {
	HoldToken        string    `json:"hold_token"`
	CustomerID       int64     `json:"customer_id"`
	EventID          int64     `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	SeatCount        int       `json:"seat_count"`
	TotalAmount      float64   `json:"total_amount"`
	Status           string    `json:"status"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	CreatedAt        time.Time `json:"created_at"`
	Message          string    `json:"message,omitempty"`
}

// HoldStatusResponse is the countdown view returned from hold lookups
type HoldStatusResponse struct {
	HoldToken        string    `json:"hold_token"`
	CustomerID       int64     `json:"customer_id"`
	EventID          int64     `json:"event_id"`
	SeatIDs          []int64   `json:"seat_ids"`
	SeatCount        int       `json:"seat_count"`
	Status           string    `json:"status"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// BookingResponse describes a confirmed booking
type BookingResponse struct {
	BookingReference string    `json:"booking_reference"`
	HoldToken        string    `json:"hold_token"`
	EventID          int64     `json:"event_id"`
	CustomerID       int64     `json:"customer_id"`
	SeatIDs          []int64   `json:"seat_ids"`
	TotalAmount      float64   `json:"total_amount"`
	PaymentID        string    `json:"payment_id"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

// ToResponse converts a SeatHold into the placement response. The event
// title and total live on other tables; the service fills them in.
func (h *SeatHold) ToResponse() *HoldResponse {
	return &HoldResponse{
		HoldToken:        h.HoldToken,
		CustomerID:       h.CustomerID,
		EventID:          h.EventID,
		SeatCount:        h.SeatCount,
		Status:           h.Status.String(),
		ExpiresAt:        h.ExpiresAt,
		RemainingSeconds: h.RemainingSeconds(),
		CreatedAt:        h.CreatedAt,
	}
}

// ToStatusResponse converts a SeatHold to the lookup representation
func (h *SeatHold) ToStatusResponse() *HoldStatusResponse {
	return &HoldStatusResponse{
		HoldToken:        h.HoldToken,
		CustomerID:       h.CustomerID,
		EventID:          h.EventID,
		SeatIDs:          h.SeatIDs,
		SeatCount:        h.SeatCount,
		Status:           h.Status.String(),
		ExpiresAt:        h.ExpiresAt,
		RemainingSeconds: h.RemainingSeconds(),
		CreatedAt:        h.CreatedAt,
	}
}

// ToResponse converts a Booking to its API representation
func (b *Booking) ToResponse() *BookingResponse {
	return &BookingResponse{
		BookingReference: b.BookingReference,
		HoldToken:        b.HoldToken,
		EventID:          b.EventID,
		CustomerID:       b.CustomerID,
		SeatIDs:          b.SeatIDs,
		TotalAmount:      b.TotalAmount,
		PaymentID:        b.PaymentID,
		Status:           b.Status,
		CreatedAt:        b.CreatedAt,
		ConfirmedAt:      b.ConfirmedAt,
	}
}
