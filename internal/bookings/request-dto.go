package bookings

// PlaceHoldRequest is the payload for placing a seat hold. The duration
// override is bounded so a client cannot fence seats off for hours.
type PlaceHoldRequest struct {
	EventID             int64   `json:"event_id" binding:"required"`
	CustomerID          int64   `json:"customer_id" binding:"required"`
	SeatIDs             []int64 `json:"seat_ids" binding:"required"`
	HoldDurationMinutes int     `json:"hold_duration_minutes" binding:"omitempty,min=1,max=30"`
}

// ConfirmHoldRequest is the payload for confirming a held set of seats.
// The hold token also rides the URL; the path value wins.
type ConfirmHoldRequest struct {
	HoldToken  string `json:"hold_token"`
	CustomerID int64  `json:"customer_id" binding:"required"`
	PaymentID  string `json:"payment_id" binding:"required"`
}
