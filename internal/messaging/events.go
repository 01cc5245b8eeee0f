package messaging

import (
	"encoding/json"
	"time"

	"boxoffice/internal/shared/constants"
)

// SeatTransitionEvent is the record published to the seat-state-transitions
// topic. The lock expiry signaler and the reconciler both emit it; the
// transition consumer folds it back into the database.
type SeatTransitionEvent struct {
	EventType string `json:"eventType"`
	EventID   int64  `json:"eventId"`
	SeatID    int64  `json:"seatId"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// NewSeatHoldExpired builds the transition record for a seat whose hold
// lock reached its TTL.
func NewSeatHoldExpired(eventID, seatID int64, source string) *SeatTransitionEvent {
	return &SeatTransitionEvent{
		EventType: constants.EVENT_TYPE_SEAT_HOLD_EXPIRED,
		EventID:   eventID,
		SeatID:    seatID,
		Timestamp: time.Now().UnixMilli(),
		Source:    source,
	}
}

// SeatTransitionFromJSON decodes a consumed seat transition record.
func SeatTransitionFromJSON(data []byte) (*SeatTransitionEvent, error) {
	var event SeatTransitionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (e *SeatTransitionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes all transitions for one seat to the same partition
// so they are consumed in order.
func (e *SeatTransitionEvent) PartitionKey() string {
	return constants.BuildSeatTransitionKey(e.EventID, e.SeatID)
}

// HoldAuditEvent is the audit record published on every hold lifecycle
// change (created, confirmed, cancelled, expired). Keyed by hold token so
// one hold's history lands on one partition.
type HoldAuditEvent struct {
	EventType  string  `json:"eventType"`
	HoldToken  string  `json:"holdToken"`
	CustomerID int64   `json:"customerId"`
	EventID    int64   `json:"eventId"`
	SeatIDs    []int64 `json:"seatIds"`
	Status     string  `json:"status"`
	ExpiresAt  string  `json:"expiresAt"`
	Timestamp  int64   `json:"timestamp"`
	Source     string  `json:"source"`
}

func NewHoldAudit(eventType, holdToken string, customerID, eventID int64, seatIDs []int64, status string, expiresAt time.Time, source string) *HoldAuditEvent {
	return &HoldAuditEvent{
		EventType:  eventType,
		HoldToken:  holdToken,
		CustomerID: customerID,
		EventID:    eventID,
		SeatIDs:    seatIDs,
		Status:     status,
		ExpiresAt:  expiresAt.UTC().Format(time.RFC3339),
		Timestamp:  time.Now().UnixMilli(),
		Source:     source,
	}
}

func (e *HoldAuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *HoldAuditEvent) PartitionKey() string {
	return e.HoldToken
}

// BookingConfirmedEvent is published once per successful confirmation,
// keyed by booking reference.
type BookingConfirmedEvent struct {
	EventType        string  `json:"eventType"`
	BookingReference string  `json:"bookingReference"`
	HoldToken        string  `json:"holdToken"`
	CustomerID       int64   `json:"customerId"`
	EventID          int64   `json:"eventId"`
	SeatIDs          []int64 `json:"seatIds"`
	TotalAmount      float64 `json:"totalAmount"`
	PaymentID        string  `json:"paymentId"`
	ConfirmedAt      string  `json:"confirmedAt"`
	Timestamp        int64   `json:"timestamp"`
	Source           string  `json:"source"`
}

func NewBookingConfirmed(bookingReference, holdToken string, customerID, eventID int64, seatIDs []int64, totalAmount float64, paymentID string, confirmedAt time.Time) *BookingConfirmedEvent {
	return &BookingConfirmedEvent{
		EventType:        constants.EVENT_TYPE_BOOKING_CONFIRMED,
		BookingReference: bookingReference,
		HoldToken:        holdToken,
		CustomerID:       customerID,
		EventID:          eventID,
		SeatIDs:          seatIDs,
		TotalAmount:      totalAmount,
		PaymentID:        paymentID,
		ConfirmedAt:      confirmedAt.UTC().Format(time.RFC3339),
		Timestamp:        time.Now().UnixMilli(),
		Source:           constants.EVENT_SOURCE_API,
	}
}

func (e *BookingConfirmedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *BookingConfirmedEvent) PartitionKey() string {
	return e.BookingReference
}
