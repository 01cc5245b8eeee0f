package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"boxoffice/internal/events"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/shared/txhooks"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

// Attempts at minting a unique booking reference before giving up
const bookingReferenceAttempts = 3

// Service interface defines the contract for the hold lifecycle
type Service interface {
	PlaceHold(ctx context.Context, req *PlaceHoldRequest, idempotencyKey string) (*HoldResponse, error)
	ConfirmHold(ctx context.Context, holdToken string, req *ConfirmHoldRequest) (*BookingResponse, error)
	CancelHold(ctx context.Context, holdToken string, customerID int64) error
	GetHold(ctx context.Context, holdToken string) (*HoldStatusResponse, error)
	GetBooking(ctx context.Context, reference string) (*BookingResponse, error)
}

// service implements the Service interface
type service struct {
	repo      Repository
	seatRepo  seats.Repository
	eventRepo events.Repository
	locks     *seats.LockClient
	overlay   *seats.StatusMap
	producer  messaging.EventProducer
	cache     cache.Service
	db        *gorm.DB
	config    *config.BookingConfig
	log       *logger.Logger
}

// NewService creates a new booking service instance
func NewService(repo Repository, seatRepo seats.Repository, eventRepo events.Repository, locks *seats.LockClient, overlay *seats.StatusMap, producer messaging.EventProducer, cacheService cache.Service, db *gorm.DB, cfg *config.BookingConfig) Service {
	return &service{
		repo:      repo,
		seatRepo:  seatRepo,
		eventRepo: eventRepo,
		locks:     locks,
		overlay:   overlay,
		producer:  producer,
		cache:     cacheService,
		db:        db,
		config:    cfg,
		log:       logger.GetDefault(),
	}
}

// PlaceHold claims a set of seats for one customer. The Redis locks give
// fast mutual exclusion; the database conditional update is the actual
// arbiter. Both carry the same deadline.
func (s *service) PlaceHold(ctx context.Context, req *PlaceHoldRequest, idempotencyKey string) (*HoldResponse, error) {
	// Step 1: Validate the request shape
	if err := validateHoldRequest(req, s.config.MaxSeatsPerHold); err != nil {
		return nil, err
	}

	// Step 2: Replay check. A retried request with the same idempotency
	// key gets the original hold back instead of a second claim.
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			resp, err := s.describeHold(ctx, existing)
			if err != nil {
				return nil, err
			}
			resp.Message = "Seats already held for this request."
			return resp, nil
		}
	}

	// Step 3: Load the seats and confirm they belong together
	seatRecords, err := s.seatRepo.GetSeatsByIDs(ctx, req.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	if len(seatRecords) != len(req.SeatIDs) {
		return nil, &ValidationError{Message: "some seats were not found"}
	}
	for _, seat := range seatRecords {
		if seat.EventID != seatRecords[0].EventID {
			return nil, &ValidationError{Message: "all seats must belong to the same event"}
		}
	}
	if seatRecords[0].EventID != req.EventID {
		return nil, &ValidationError{Message: "event ID mismatch"}
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			return nil, &ValidationError{Message: "event not found"}
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	// Step 4: Mint the hold token and deadline. Clients may tune the
	// deadline within the bound enforced at binding time.
	holdToken := GenerateHoldToken()
	holdDuration := s.config.HoldDuration
	if req.HoldDurationMinutes > 0 {
		holdDuration = time.Duration(req.HoldDurationMinutes) * time.Minute
	}
	expiresAt := time.Now().Add(holdDuration)

	// Step 5: Acquire the per-seat locks, in request order. A conflict is
	// final; a connection failure switches to the database row-lock
	// fallback instead of refusing the hold.
	degraded := false
	if err := s.locks.AcquireSeatLocks(ctx, req.EventID, req.SeatIDs, req.CustomerID, holdToken, holdDuration); err != nil {
		var lockedErr *seats.SeatLockedError
		switch {
		case errors.As(err, &lockedErr):
			return nil, ErrSeatsLocked
		case seats.IsConnectionError(err):
			degraded = true
			s.log.LogDegradedMode(ctx, "place_hold", err)
		default:
			return nil, fmt.Errorf("failed to acquire seat locks: %w", err)
		}
	}

	// Step 6: Claim the seats and record the hold in one transaction
	hold := &SeatHold{
		HoldToken:      holdToken,
		CustomerID:     req.CustomerID,
		EventID:        req.EventID,
		SeatIDs:        Int64Slice(req.SeatIDs),
		SeatCount:      len(req.SeatIDs),
		Status:         HoldStatusActive,
		IdempotencyKey: idempotencyKey,
		ExpiresAt:      expiresAt,
	}

	txCtx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	txErr := txhooks.WithTransaction(txCtx, s.db, func(tx *gorm.DB, hooks *txhooks.Hooks) error {
		txSeats := s.seatRepo.WithTx(tx)

		// Without Redis locks, competing holds serialize on row locks
		if degraded {
			if _, err := txSeats.GetSeatsByIDsForUpdate(txCtx, req.SeatIDs); err != nil {
				return fmt.Errorf("failed to lock seat rows: %w", err)
			}
		}

		updated, err := txSeats.HoldSeatsGuarded(txCtx, req.EventID, req.SeatIDs)
		if err != nil {
			return err
		}
		if updated != int64(len(req.SeatIDs)) {
			return ErrSeatsUnavailable
		}

		if err := s.repo.WithTx(tx).CreateHold(txCtx, hold); err != nil {
			return err
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.applyOverlay(ctx, req.EventID, req.SeatIDs, seats.StatusHeld)
			s.publishHoldAudit(ctx, constants.TOPIC_SEAT_HOLD_CREATED, constants.EVENT_TYPE_SEAT_HOLD_CREATED, hold, constants.EVENT_SOURCE_API)
			s.cacheHold(ctx, hold)
		})
		hooks.AfterRollback(func(ctx context.Context) {
			s.applyOverlay(ctx, req.EventID, req.SeatIDs, seats.StatusAvailable)
		})

		return nil
	})
	if txErr != nil {
		// The locks are released on failure so the seats do not stay
		// fenced for the full TTL.
		if !degraded {
			s.locks.ReleaseSeatLocks(ctx, req.EventID, req.SeatIDs, req.CustomerID, holdToken)
		}
		return nil, txErr
	}

	s.log.LogHoldPlaced(ctx, holdToken, req.EventID, req.CustomerID, hold.SeatCount)

	resp := hold.ToResponse()
	resp.EventTitle = event.Name
	resp.TotalAmount = sumSeatPrices(seatRecords)
	resp.Message = holdMessage(degraded, holdDuration)
	return resp, nil
}

// ConfirmHold turns an active hold into a booking. The database HELD
// predicate is the sole arbiter here: a vanished Redis lock never blocks
// a confirm, and a released seat always does.
func (s *service) ConfirmHold(ctx context.Context, holdToken string, req *ConfirmHoldRequest) (*BookingResponse, error) {
	// Step 1: Validate identifiers
	if holdToken == "" {
		return nil, &ValidationError{Message: "hold token cannot be empty"}
	}
	if req.PaymentID == "" {
		return nil, &ValidationError{Message: "payment ID cannot be empty"}
	}

	// Step 2: Replay check. A confirm retried after a lost response finds
	// its booking by payment ID.
	existing, err := s.repo.FindBookingByPaymentID(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.HoldToken != holdToken {
			return nil, &ValidationError{Message: "payment ID was already used for a different hold"}
		}
		return existing.ToResponse(), nil
	}

	// Step 3: Load the hold and gate on liveness and ownership. A hold
	// that already became a booking under another payment is a conflict,
	// not a dead token.
	hold, err := s.repo.FindByHoldToken(ctx, holdToken)
	if err != nil {
		return nil, err
	}
	if hold.Status == HoldStatusConfirmed {
		return nil, ErrAlreadyConfirmed
	}
	if !hold.IsActive() {
		return nil, ErrHoldNotActive
	}
	if hold.CustomerID != req.CustomerID {
		return nil, ErrCustomerMismatch
	}

	// Step 4: Price the booking from the seat records
	seatRecords, err := s.seatRepo.GetSeatsByIDs(ctx, hold.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	totalAmount := sumSeatPrices(seatRecords)

	// Step 5: Flip the seats and write the booking in one transaction
	var booking *Booking

	txCtx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	txErr := txhooks.WithTransaction(txCtx, s.db, func(tx *gorm.DB, hooks *txhooks.Hooks) error {
		txRepo := s.repo.WithTx(tx)

		updated, err := s.seatRepo.WithTx(tx).BookSeats(txCtx, hold.EventID, hold.SeatIDs)
		if err != nil {
			return err
		}
		// BookSeats only touches rows still in HELD. Falling short means
		// the expiry pipeline released seats under us.
		if updated != int64(hold.SeatCount) {
			return ErrConfirmConflict
		}

		hold.Confirm()
		if err := txRepo.UpdateHold(txCtx, hold); err != nil {
			return err
		}

		booking, err = s.createBookingWithRetry(txCtx, tx, hold, totalAmount, req.PaymentID)
		if err != nil {
			return err
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.applyOverlay(ctx, hold.EventID, hold.SeatIDs, seats.StatusBooked)
			s.locks.ReleaseSeatLocks(ctx, hold.EventID, hold.SeatIDs, hold.CustomerID, hold.HoldToken)
			s.publishBookingConfirmed(ctx, booking)
			s.publishHoldAudit(ctx, constants.TOPIC_SEAT_HOLD_CONFIRMED, constants.EVENT_TYPE_SEAT_HOLD_CONFIRMED, hold, constants.EVENT_SOURCE_API)
			s.dropHoldCache(ctx, hold.HoldToken)
		})
		hooks.AfterRollback(func(ctx context.Context) {
			s.applyOverlay(ctx, hold.EventID, hold.SeatIDs, seats.StatusHeld)
		})

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.LogHoldConfirmed(ctx, hold.HoldToken, booking.BookingReference)
	return booking.ToResponse(), nil
}

// CancelHold releases an active hold at the customer's request.
func (s *service) CancelHold(ctx context.Context, holdToken string, customerID int64) error {
	if holdToken == "" {
		return &ValidationError{Message: "hold token cannot be empty"}
	}

	var hold *SeatHold

	txCtx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	txErr := txhooks.WithTransaction(txCtx, s.db, func(tx *gorm.DB, hooks *txhooks.Hooks) error {
		txRepo := s.repo.WithTx(tx)

		// Row lock: a cancel racing the expiry workers serializes here
		var err error
		hold, err = txRepo.FindByHoldTokenForUpdate(txCtx, holdToken)
		if err != nil {
			return err
		}

		// Ownership is checked before liveness so the wrong customer gets
		// the same answer whether the hold is live or already expired.
		if hold.CustomerID != customerID {
			return ErrCustomerMismatch
		}
		if hold.Status != HoldStatusActive {
			return ErrHoldNotActive
		}

		if _, err := s.seatRepo.WithTx(tx).ReleaseSeats(txCtx, hold.EventID, hold.SeatIDs); err != nil {
			return err
		}

		hold.Cancel()
		if err := txRepo.UpdateHold(txCtx, hold); err != nil {
			return err
		}

		hooks.AfterCommit(func(ctx context.Context) {
			s.applyOverlay(ctx, hold.EventID, hold.SeatIDs, seats.StatusAvailable)
			s.locks.ReleaseSeatLocks(ctx, hold.EventID, hold.SeatIDs, hold.CustomerID, hold.HoldToken)
			s.publishHoldAudit(ctx, constants.TOPIC_SEAT_HOLD_CANCELLED, constants.EVENT_TYPE_SEAT_HOLD_CANCELLED, hold, constants.EVENT_SOURCE_API)
			s.dropHoldCache(ctx, hold.HoldToken)
		})
		hooks.AfterRollback(func(ctx context.Context) {
			s.applyOverlay(ctx, hold.EventID, hold.SeatIDs, seats.StatusHeld)
		})

		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.log.LogHoldCancelled(ctx, holdToken, customerID)
	return nil
}

// GetHold returns the current view of a hold
func (s *service) GetHold(ctx context.Context, holdToken string) (*HoldStatusResponse, error) {
	if holdToken == "" {
		return nil, &ValidationError{Message: "hold token cannot be empty"}
	}

	// Cache-aside on the hold row, TTL clamped to the hold deadline. The
	// countdown still runs because remaining seconds are computed on read.
	var cached SeatHold
	key := constants.BuildSeatHoldCacheKey(holdToken)
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached.ToStatusResponse(), nil
	}

	hold, err := s.repo.FindByHoldToken(ctx, holdToken)
	if err != nil {
		return nil, err
	}
	if hold.IsActive() {
		s.cacheHold(ctx, hold)
	}
	return hold.ToStatusResponse(), nil
}

// GetBooking returns a confirmed booking by its reference
func (s *service) GetBooking(ctx context.Context, reference string) (*BookingResponse, error) {
	if reference == "" {
		return nil, &ValidationError{Message: "booking reference cannot be empty"}
	}

	booking, err := s.repo.FindByBookingReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return booking.ToResponse(), nil
}

// createBookingWithRetry inserts the booking, minting a fresh reference
// when one collides with an existing row. A unique violation aborts the
// enclosing transaction, so each attempt runs under a savepoint.
func (s *service) createBookingWithRetry(ctx context.Context, tx *gorm.DB, hold *SeatHold, totalAmount float64, paymentID string) (*Booking, error) {
	txRepo := s.repo.WithTx(tx)

	for attempt := 0; attempt < bookingReferenceAttempts; attempt++ {
		reference, err := GenerateBookingReference()
		if err != nil {
			return nil, fmt.Errorf("failed to generate booking reference: %w", err)
		}

		booking := &Booking{
			BookingReference: reference,
			HoldToken:        hold.HoldToken,
			CustomerID:       hold.CustomerID,
			EventID:          hold.EventID,
			SeatIDs:          hold.SeatIDs,
			TotalAmount:      totalAmount,
			PaymentID:        paymentID,
			Status:           BookingStatusConfirmed,
			ConfirmedAt:      time.Now(),
		}

		if err := tx.SavePoint("booking_insert").Error; err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		err = txRepo.CreateBooking(ctx, booking)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		if err := tx.RollbackTo("booking_insert").Error; err != nil {
			return nil, fmt.Errorf("failed to roll back to savepoint: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to mint a unique booking reference after %d attempts", bookingReferenceAttempts)
}

// validateHoldRequest rejects requests that can never succeed as sent
func validateHoldRequest(req *PlaceHoldRequest, maxSeats int) error {
	if len(req.SeatIDs) == 0 {
		return &ValidationError{Message: "seat IDs cannot be empty"}
	}
	if len(req.SeatIDs) > maxSeats {
		return &ValidationError{Message: fmt.Sprintf("cannot hold more than %d seats at once", maxSeats)}
	}

	seen := make(map[int64]struct{}, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		if _, dup := seen[id]; dup {
			return &ValidationError{Message: "duplicate seat IDs are not allowed"}
		}
		seen[id] = struct{}{}
	}

	return nil
}

func holdMessage(degraded bool, holdDuration time.Duration) string {
	minutes := int(holdDuration.Minutes())
	if degraded {
		return fmt.Sprintf("Seats held successfully in degraded mode. Complete payment within %d minutes.", minutes)
	}
	return fmt.Sprintf("Seats held successfully. Complete payment within %d minutes.", minutes)
}

// describeHold rebuilds the placement response for an existing hold,
// re-reading the event and seat rows for the title and total.
func (s *service) describeHold(ctx context.Context, hold *SeatHold) (*HoldResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, hold.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	seatRecords, err := s.seatRepo.GetSeatsByIDs(ctx, hold.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}

	resp := hold.ToResponse()
	resp.EventTitle = event.Name
	resp.TotalAmount = sumSeatPrices(seatRecords)
	return resp, nil
}

func sumSeatPrices(seatRecords []seats.Seat) float64 {
	var total float64
	for _, seat := range seatRecords {
		total += seat.Price
	}
	return total
}

// Side effects fired from transaction hooks. All of them are best effort:
// the database already committed the truth, so failures are logged and
// left for the overlay TTL and reconciler to absorb.

func (s *service) applyOverlay(ctx context.Context, eventID int64, seatIDs []int64, status seats.Status) {
	if err := s.overlay.SetStatuses(ctx, eventID, seatIDs, status); err != nil {
		s.log.WarnContext(ctx, "Failed to update seat status overlay",
			"event_id", eventID, "status", string(status), "error", err.Error())
	}
}

func (s *service) publishHoldAudit(ctx context.Context, topic, eventType string, hold *SeatHold, source string) {
	audit := messaging.NewHoldAudit(eventType, hold.HoldToken, hold.CustomerID, hold.EventID, hold.SeatIDs, hold.Status.String(), hold.ExpiresAt, source)
	if err := s.producer.PublishHoldAudit(ctx, topic, audit); err != nil {
		s.log.WarnContext(ctx, "Failed to publish hold audit",
			"topic", topic, "hold_token", hold.HoldToken, "error", err.Error())
	}
}

func (s *service) publishBookingConfirmed(ctx context.Context, booking *Booking) {
	event := messaging.NewBookingConfirmed(booking.BookingReference, booking.HoldToken,
		booking.CustomerID, booking.EventID, booking.SeatIDs, booking.TotalAmount,
		booking.PaymentID, booking.ConfirmedAt)
	if err := s.producer.PublishBookingConfirmed(ctx, event); err != nil {
		s.log.WarnContext(ctx, "Failed to publish booking confirmation",
			"booking_reference", booking.BookingReference, "error", err.Error())
	}
}

func (s *service) cacheHold(ctx context.Context, hold *SeatHold) {
	ttl := time.Until(hold.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.cache.Set(ctx, constants.BuildSeatHoldCacheKey(hold.HoldToken), hold, ttl); err != nil {
		s.log.DebugWithContext(ctx, "Failed to cache hold view", map[string]interface{}{
			"hold_token": hold.HoldToken,
			"error":      err.Error(),
		})
	}
}

func (s *service) dropHoldCache(ctx context.Context, holdToken string) {
	if err := s.cache.Delete(ctx, constants.BuildSeatHoldCacheKey(holdToken)); err != nil {
		s.log.DebugWithContext(ctx, "Failed to drop hold view cache", map[string]interface{}{
			"hold_token": holdToken,
			"error":      err.Error(),
		})
	}
}
