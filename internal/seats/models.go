package seats

import (
	"fmt"
	"time"
)

// Status is the persisted seat state. The database row is the ground truth;
// the Redis status map only mirrors it for fast seat map reads.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusHeld      Status = "HELD"
	StatusBooked    Status = "BOOKED"
)

// Seat defines the structure for individual seats
type Seat struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID    int64     `gorm:"not null;index" json:"event_id"`
	Section    string    `gorm:"type:varchar(50);not null" json:"section"`
	RowLetter  string    `gorm:"type:varchar(5);not null" json:"row_letter"`
	SeatNumber int       `gorm:"not null" json:"seat_number"`
	Price      float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Status     Status    `gorm:"type:varchar(20);check:status IN ('AVAILABLE', 'HELD', 'BOOKED');default:'AVAILABLE'" json:"status"`
	Version    int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

// Helper methods for seat state

func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

func (s *Seat) IsHeld() bool {
	return s.Status == StatusHeld
}

func (s *Seat) IsBooked() bool {
	return s.Status == StatusBooked
}

// Label renders the human-readable seat position, e.g. "ORCH A-12"
func (s *Seat) Label() string {
	return fmt.Sprintf("%s %s-%d", s.Section, s.RowLetter, s.SeatNumber)
}

// ToResponse converts a seat row to its API shape. Status is the persisted
// state; callers merging the Redis status map overwrite it before returning.
func (s *Seat) ToResponse() SeatResponse {
	return SeatResponse{
		ID:         s.ID,
		Section:    s.Section,
		RowLetter:  s.RowLetter,
		SeatNumber: s.SeatNumber,
		Price:      s.Price,
		Status:     s.Status,
	}
}

// SeatResponse for API responses
type SeatResponse struct {
	ID         int64   `json:"id"`
	Section    string  `json:"section"`
	RowLetter  string  `json:"row_letter"`
	SeatNumber int     `json:"seat_number"`
	Price      float64 `json:"price"`
	Status     Status  `json:"status"`
}

// StatusSummary aggregates per-status seat counts for an event
type StatusSummary struct {
	EventID   int64 `json:"event_id"`
	Available int64 `json:"available"`
	Held      int64 `json:"held"`
	Booked    int64 `json:"booked"`
	Total     int64 `json:"total"`
}
