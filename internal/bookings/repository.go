package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface defines the contract for hold and booking data access
type Repository interface {
	// Hold operations
	CreateHold(ctx context.Context, hold *SeatHold) error
	UpdateHold(ctx context.Context, hold *SeatHold) error
	FindByHoldToken(ctx context.Context, holdToken string) (*SeatHold, error)
	FindByHoldTokenForUpdate(ctx context.Context, holdToken string) (*SeatHold, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*SeatHold, error)
	FindExpiredActiveHolds(ctx context.Context, cutoff time.Time, limit int) ([]SeatHold, error)
	FindExpiredActiveHoldsBySeat(ctx context.Context, eventID, seatID int64, cutoff time.Time) ([]SeatHold, error)

	// Booking operations
	CreateBooking(ctx context.Context, booking *Booking) error
	FindByBookingReference(ctx context.Context, reference string) (*Booking, error)
	FindBookingByPaymentID(ctx context.Context, paymentID string) (*Booking, error)

	// WithTx returns a repository bound to the given transaction
	WithTx(tx *gorm.DB) Repository
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new booking repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// ==================== HOLD OPERATIONS ====================

func (r *repository) CreateHold(ctx context.Context, hold *SeatHold) error {
	if err := r.db.WithContext(ctx).Create(hold).Error; err != nil {
		return fmt.Errorf("failed to create seat hold: %w", err)
	}
	return nil
}

func (r *repository) UpdateHold(ctx context.Context, hold *SeatHold) error {
	if err := r.db.WithContext(ctx).Save(hold).Error; err != nil {
		return fmt.Errorf("failed to update seat hold: %w", err)
	}
	return nil
}

func (r *repository) FindByHoldToken(ctx context.Context, holdToken string) (*SeatHold, error) {
	var hold SeatHold
	err := r.db.WithContext(ctx).
		Where("hold_token = ?", holdToken).
		First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrHoldNotFound, holdToken)
		}
		return nil, fmt.Errorf("failed to find seat hold: %w", err)
	}
	return &hold, nil
}

// FindByHoldTokenForUpdate loads a hold under a row lock so concurrent
// cancel and expiry workers serialize on the same row.
func (r *repository) FindByHoldTokenForUpdate(ctx context.Context, holdToken string) (*SeatHold, error) {
	var hold SeatHold
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("hold_token = ?", holdToken).
		First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrHoldNotFound, holdToken)
		}
		return nil, fmt.Errorf("failed to find seat hold: %w", err)
	}
	return &hold, nil
}

// FindByIdempotencyKey returns the hold previously created under the key,
// or nil when the key has never been used.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*SeatHold, error) {
	var hold SeatHold
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Order("created_at DESC").
		First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find seat hold by idempotency key: %w", err)
	}
	return &hold, nil
}

// FindExpiredActiveHolds returns holds whose deadline has passed but whose
// row still says ACTIVE, oldest deadline first.
func (r *repository) FindExpiredActiveHolds(ctx context.Context, cutoff time.Time, limit int) ([]SeatHold, error) {
	var holds []SeatHold
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", HoldStatusActive, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&holds).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	return holds, nil
}

// FindExpiredActiveHoldsBySeat returns expired ACTIVE holds that include
// the given seat, using bigint[] containment on the seat list.
func (r *repository) FindExpiredActiveHoldsBySeat(ctx context.Context, eventID, seatID int64, cutoff time.Time) ([]SeatHold, error) {
	var holds []SeatHold
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ? AND expires_at <= ? AND seat_ids @> ?::bigint[]",
			eventID, HoldStatusActive, cutoff, Int64Slice{seatID}).
		Find(&holds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired holds for seat %d: %w", seatID, err)
	}
	return holds, nil
}

// ==================== BOOKING OPERATIONS ====================

func (r *repository) CreateBooking(ctx context.Context, booking *Booking) error {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		// Not wrapped into a flat message: callers retry reference
		// collisions via gorm.ErrDuplicatedKey.
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *repository) FindByBookingReference(ctx context.Context, reference string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Where("booking_reference = ?", reference).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, reference)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// FindBookingByPaymentID returns the booking already recorded for a
// payment, or nil when the payment has not been seen. Confirm retries
// after a lost response resolve through this lookup.
func (r *repository) FindBookingByPaymentID(ctx context.Context, paymentID string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find booking by payment: %w", err)
	}
	return &booking, nil
}
