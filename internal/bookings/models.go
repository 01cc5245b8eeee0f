package bookings

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Int64Slice stores a list of seat IDs in a PostgreSQL bigint[] column.
type Int64Slice []int64

// Value serializes the slice into the Postgres array literal form.
func (s Int64Slice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Scan parses a Postgres array literal back into the slice.
func (s *Int64Slice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for seat ID array", value)
	}

	raw = strings.Trim(raw, "{}")
	if raw == "" {
		*s = Int64Slice{}
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make(Int64Slice, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seat ID %q in array: %w", part, err)
		}
		ids = append(ids, id)
	}

	*s = ids
	return nil
}

// Contains reports whether the slice carries the given seat ID
func (s Int64Slice) Contains(seatID int64) bool {
	for _, id := range s {
		if id == seatID {
			return true
		}
	}
	return false
}

// SeatHold is the durable record of a customer's temporary claim on a set
// of seats. The Redis lock TTL and ExpiresAt are minted from the same
// deadline; the database row is what arbitrates when they disagree.
type SeatHold struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	HoldToken      string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"hold_token"`
	CustomerID     int64      `gorm:"index;not null" json:"customer_id"`
	EventID        int64      `gorm:"index;not null" json:"event_id"`
	SeatIDs        Int64Slice `gorm:"type:bigint[];not null" json:"seat_ids"`
	SeatCount      int        `gorm:"not null" json:"seat_count"`
	Status         HoldStatus `gorm:"type:varchar(20);check:status IN ('ACTIVE', 'CONFIRMED', 'CANCELLED', 'EXPIRED');default:'ACTIVE'" json:"status"`
	IdempotencyKey string     `gorm:"type:varchar(64);index" json:"idempotency_key,omitempty"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// Booking is the terminal record of a confirmed hold.
type Booking struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingReference string     `gorm:"type:varchar(12);uniqueIndex;not null" json:"booking_reference"`
	HoldToken        string     `gorm:"type:varchar(40);index;not null" json:"hold_token"`
	CustomerID       int64      `gorm:"index;not null" json:"customer_id"`
	EventID          int64      `gorm:"index;not null" json:"event_id"`
	SeatIDs          Int64Slice `gorm:"type:bigint[];not null" json:"seat_ids"`
	TotalAmount      float64    `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaymentID        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_id"`
	Status           string     `gorm:"type:varchar(20);default:'CONFIRMED'" json:"status"`
	ConfirmedAt      time.Time  `gorm:"not null" json:"confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName sets the table name for SeatHold
func (SeatHold) TableName() string {
	return "seat_holds"
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// Helper methods for hold lifecycle management

// IsActive reports whether the hold can still be confirmed or cancelled.
// A hold past its deadline is treated as inactive even while the row
// still says ACTIVE, so a slow expiry pipeline can never let a stale
// hold be confirmed.
func (h *SeatHold) IsActive() bool {
	return h.Status == HoldStatusActive && time.Now().Before(h.ExpiresAt)
}

// IsPastExpiry reports whether the hold deadline has passed
func (h *SeatHold) IsPastExpiry() bool {
	return !time.Now().Before(h.ExpiresAt)
}

// RemainingSeconds returns the seconds left until expiry, floored at zero
func (h *SeatHold) RemainingSeconds() int64 {
	remaining := time.Until(h.ExpiresAt)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

func (h *SeatHold) Confirm() {
	now := time.Now()
	h.Status = HoldStatusConfirmed
	h.ConfirmedAt = &now
	h.UpdatedAt = now
}

func (h *SeatHold) Cancel() {
	now := time.Now()
	h.Status = HoldStatusCancelled
	h.CancelledAt = &now
	h.UpdatedAt = now
}

func (h *SeatHold) MarkExpired() {
	h.Status = HoldStatusExpired
	h.UpdatedAt = time.Now()
}
