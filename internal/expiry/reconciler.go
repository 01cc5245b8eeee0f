package expiry

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"boxoffice/internal/bookings"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/shared/txhooks"
)

// Holds swept per tick.
const reconcilerBatchSize = 100

// Reconciler is the safety net under the TTL expiry path. Expiry
// notifications are fire and forget, so a signaler outage or a lock store
// restart leaves ACTIVE holds whose deadline has passed and whose seats
// are stuck in HELD. The reconciler sweeps those up on a fixed interval.
//
// A hold whose lock still exists with the expected owner value is skipped:
// the TTL has not fired yet and remains authoritative for it.
type Reconciler struct {
	db       *gorm.DB
	holdRepo bookings.Repository
	seatRepo seats.Repository
	locks    *seats.LockClient
	overlay  *seats.StatusMap
	producer messaging.EventProducer
	config   config.ReconcilerConfig
	done     chan struct{}
}

func NewReconciler(db *gorm.DB, holdRepo bookings.Repository, seatRepo seats.Repository, locks *seats.LockClient, overlay *seats.StatusMap, producer messaging.EventProducer, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		db:       db,
		holdRepo: holdRepo,
		seatRepo: seatRepo,
		locks:    locks,
		overlay:  overlay,
		producer: producer,
		config:   cfg,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop. It is a no-op when the reconciler is
// disabled by configuration.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.config.Enabled {
		log.Println("Reconciler disabled by configuration; expired holds rely on TTL notifications only")
		return
	}

	log.Printf("Started hold reconciler with %v interval", r.config.Interval)
	go r.run(ctx)
}

// Stop stops the sweep loop.
func (r *Reconciler) Stop() {
	close(r.done)
	log.Println("Hold reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep processes one batch of overdue ACTIVE holds. Failures on a single
// hold do not abort the tick.
func (r *Reconciler) sweep(ctx context.Context) {
	holds, err := r.holdRepo.FindExpiredActiveHolds(ctx, time.Now(), reconcilerBatchSize)
	if err != nil {
		log.Printf("Reconciler failed to load expired holds: %v", err)
		return
	}
	if len(holds) == 0 {
		return
	}

	expired := 0
	skipped := 0
	for i := range holds {
		hold := &holds[i]

		alive, err := r.lockStillHeld(ctx, hold)
		if err != nil {
			log.Printf("Reconciler could not check locks for hold %s: %v", hold.HoldToken, err)
			continue
		}
		if alive {
			skipped++
			continue
		}

		if err := r.expireHold(ctx, hold); err != nil {
			log.Printf("Reconciler failed to expire hold %s: %v", hold.HoldToken, err)
			continue
		}
		expired++
	}

	log.Printf("Reconciler tick: %d holds expired, %d skipped (lock still live)", expired, skipped)
}

// lockStillHeld reports whether any of the hold's seat locks still exists
// with this hold's owner value. A live lock means the TTL has not fired;
// the expiry notification path will handle the hold, so the reconciler
// stays out of the way.
//
// When the lock store is unreachable the locks are treated as absent: the
// reconciler is the primary expiry path exactly when Redis is down, and
// the database deadline is ground truth either way.
func (r *Reconciler) lockStillHeld(ctx context.Context, hold *bookings.SeatHold) (bool, error) {
	expected := constants.BuildSeatLockValue(hold.CustomerID, hold.HoldToken)
	for _, seatID := range hold.SeatIDs {
		value, err := r.locks.GetLockValue(ctx, hold.EventID, seatID)
		if err != nil {
			if seats.IsConnectionError(err) {
				return false, nil
			}
			return false, err
		}
		if value == expected {
			return true, nil
		}
	}
	return false, nil
}

// expireHold releases the hold's seats and marks it EXPIRED in one
// transaction, then fixes up the overlay and publishes the audit record.
func (r *Reconciler) expireHold(ctx context.Context, hold *bookings.SeatHold) error {
	return txhooks.WithTransaction(ctx, r.db, func(tx *gorm.DB, hooks *txhooks.Hooks) error {
		// Re-read under a row lock. A cancel, confirm, or the transition
		// consumer may have finished the hold since the batch was loaded;
		// terminal states must never be overwritten.
		current, err := r.holdRepo.WithTx(tx).FindByHoldTokenForUpdate(ctx, hold.HoldToken)
		if err != nil {
			return fmt.Errorf("failed to reload hold: %w", err)
		}
		if current.Status != bookings.HoldStatusActive {
			return nil
		}

		// Seats the confirm path already flipped to BOOKED, or the
		// transition consumer already released, stay untouched.
		if _, err := r.seatRepo.WithTx(tx).ReleaseSeats(ctx, current.EventID, current.SeatIDs); err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}

		current.MarkExpired()
		if err := r.holdRepo.WithTx(tx).UpdateHold(ctx, current); err != nil {
			return fmt.Errorf("failed to update hold: %w", err)
		}

		hooks.AfterCommit(func(ctx context.Context) {
			if err := r.overlay.SetStatuses(ctx, current.EventID, current.SeatIDs, seats.StatusAvailable); err != nil {
				log.Printf("Reconciler failed to update overlay for hold %s: %v", current.HoldToken, err)
			}
			audit := messaging.NewHoldAudit(
				constants.EVENT_TYPE_SEAT_HOLD_EXPIRED,
				current.HoldToken,
				current.CustomerID,
				current.EventID,
				current.SeatIDs,
				string(bookings.HoldStatusExpired),
				current.ExpiresAt,
				constants.EVENT_SOURCE_RECONCILER,
			)
			if err := r.producer.PublishHoldAudit(ctx, constants.TOPIC_SEAT_HOLD_EXPIRED, audit); err != nil {
				log.Printf("Reconciler failed to publish expiry audit for hold %s: %v", current.HoldToken, err)
			}
		})
		hooks.AfterRollback(func(ctx context.Context) {
			// The hold is still live after a rollback; keep the overlay
			// showing HELD in case it lapsed while we worked.
			if err := r.overlay.SetStatuses(ctx, current.EventID, current.SeatIDs, seats.StatusHeld); err != nil {
				log.Printf("Reconciler failed to re-affirm overlay for hold %s: %v", current.HoldToken, err)
			}
		})
		return nil
	})
}
