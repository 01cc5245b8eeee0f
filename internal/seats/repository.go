package seats

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Seat lookups
	GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]Seat, error)
	GetSeatsByIDsForUpdate(ctx context.Context, seatIDs []int64) ([]Seat, error)
	GetSeatsByEventID(ctx context.Context, eventID int64) ([]Seat, error)
	GetAvailableSeatsByEvent(ctx context.Context, eventID int64) ([]Seat, error)
	CountSeatsByStatus(ctx context.Context, eventID int64) (map[Status]int64, error)

	// Conditional state transitions. Each returns the affected row count;
	// callers compare it against the expected seat count and treat a
	// shortfall as a conflict. The WHERE clause is the arbiter under
	// concurrency, not anything read beforehand.
	HoldSeatsGuarded(ctx context.Context, eventID int64, seatIDs []int64) (int64, error)
	BookSeats(ctx context.Context, eventID int64, seatIDs []int64) (int64, error)
	ReleaseSeats(ctx context.Context, eventID int64, seatIDs []int64) (int64, error)

	// WithTx returns a repository bound to the given transaction
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// SEAT LOOKUPS

func (r *repository) GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("id IN ?", seatIDs).
		Order("id ASC").
		Find(&seats).Error
	return seats, err
}

// GetSeatsByIDsForUpdate takes row-level write locks on the seats. Used by
// the degraded hold path when the lock store is unreachable; the row locks
// stand in for the missing Redis locks for the duration of the transaction.
func (r *repository) GetSeatsByIDsForUpdate(ctx context.Context, seatIDs []int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", seatIDs).
		Order("id ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetSeatsByEventID(ctx context.Context, eventID int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("section ASC, row_letter ASC, seat_number ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) GetAvailableSeatsByEvent(ctx context.Context, eventID int64) ([]Seat, error) {
	var seats []Seat
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, StatusAvailable).
		Order("section ASC, row_letter ASC, seat_number ASC").
		Find(&seats).Error
	return seats, err
}

func (r *repository) CountSeatsByStatus(ctx context.Context, eventID int64) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&Seat{}).
		Select("status, COUNT(*) as count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count seats by status: %w", err)
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CONDITIONAL STATE TRANSITIONS

// HoldSeatsGuarded flips seats to HELD unless they are already BOOKED.
// The deliberately loose guard (not "= AVAILABLE") lets a caller who won
// the Redis locks reclaim seats whose rows are still HELD from a lapsed
// hold the release paths have not caught up with yet.
func (r *repository) HoldSeatsGuarded(ctx context.Context, eventID int64, seatIDs []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Seat{}).
		Where("id IN ? AND event_id = ? AND status <> ?", seatIDs, eventID, StatusBooked).
		Updates(map[string]interface{}{
			"status":  StatusHeld,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to hold seats: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// BookSeats flips HELD seats to BOOKED. Seats in any other state are left
// untouched and surface as a shortfall in the returned count.
func (r *repository) BookSeats(ctx context.Context, eventID int64, seatIDs []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Seat{}).
		Where("id IN ? AND event_id = ? AND status = ?", seatIDs, eventID, StatusHeld).
		Updates(map[string]interface{}{
			"status":  StatusBooked,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to book seats: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ReleaseSeats flips HELD seats back to AVAILABLE. Zero affected rows is
// the idempotency cut for the expiry paths: a second signal for the same
// seat finds nothing HELD and stops.
func (r *repository) ReleaseSeats(ctx context.Context, eventID int64, seatIDs []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Seat{}).
		Where("id IN ? AND event_id = ? AND status = ?", seatIDs, eventID, StatusHeld).
		Updates(map[string]interface{}{
			"status":  StatusAvailable,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to release seats: %w", result.Error)
	}
	return result.RowsAffected, nil
}
