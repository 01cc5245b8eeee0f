package expiry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"gorm.io/gorm"

	"boxoffice/internal/bookings"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/shared/txhooks"
)

// TransitionHandler applies SEAT_HOLD_EXPIRED records from the seat
// transition topic to the database. The topic is partitioned by
// {eventId}:{seatId}, so all records for one seat arrive in order; the
// conditional release is the idempotency cut that makes redelivery safe.
type TransitionHandler struct {
	db       *gorm.DB
	holdRepo bookings.Repository
	seatRepo seats.Repository
	overlay  *seats.StatusMap
	producer messaging.EventProducer
}

func NewTransitionHandler(db *gorm.DB, holdRepo bookings.Repository, seatRepo seats.Repository, overlay *seats.StatusMap, producer messaging.EventProducer) *TransitionHandler {
	return &TransitionHandler{
		db:       db,
		holdRepo: holdRepo,
		seatRepo: seatRepo,
		overlay:  overlay,
		producer: producer,
	}
}

// HandleMessage processes one transition record. Returning an error leaves
// the record unacknowledged so the consumer group redelivers it; payloads
// that can never succeed are acknowledged with a warning instead, so one
// poison record cannot stall its partition.
func (h *TransitionHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	event, err := messaging.SeatTransitionFromJSON(msg.Value)
	if err != nil {
		log.Printf("📥 Dropping malformed transition record at %s/%d/%d: %v",
			msg.Topic, msg.Partition, msg.Offset, err)
		return nil
	}

	if event.EventType != constants.EVENT_TYPE_SEAT_HOLD_EXPIRED {
		log.Printf("📥 Dropping transition record with unknown type %q", event.EventType)
		return nil
	}

	return h.handleSeatExpired(ctx, event)
}

func (h *TransitionHandler) handleSeatExpired(ctx context.Context, event *messaging.SeatTransitionEvent) error {
	var released bool
	var expiredHolds []bookings.SeatHold

	err := txhooks.WithTransaction(ctx, h.db, func(tx *gorm.DB, hooks *txhooks.Hooks) error {
		// Step 1: Conditionally release the seat. Zero affected rows means
		// it is already AVAILABLE or BOOKED and this record is stale or
		// replayed; there is nothing left to do.
		affected, err := h.seatRepo.WithTx(tx).ReleaseSeats(ctx, event.EventID, []int64{event.SeatID})
		if err != nil {
			return fmt.Errorf("failed to release seat %d: %w", event.SeatID, err)
		}
		if affected == 0 {
			return nil
		}
		released = true

		// Step 2: Expire every overdue ACTIVE hold that includes this seat.
		// Normally that is one hold on the first of its seat records; the
		// remaining records find it already EXPIRED.
		holds, err := h.holdRepo.WithTx(tx).FindExpiredActiveHoldsBySeat(ctx, event.EventID, event.SeatID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to load expired holds for seat %d: %w", event.SeatID, err)
		}
		for i := range holds {
			holds[i].MarkExpired()
			if err := h.holdRepo.WithTx(tx).UpdateHold(ctx, &holds[i]); err != nil {
				return fmt.Errorf("failed to expire hold %s: %w", holds[i].HoldToken, err)
			}
		}
		expiredHolds = holds

		hooks.AfterCommit(func(ctx context.Context) {
			h.applySideEffects(ctx, event, expiredHolds)
		})
		return nil
	})
	if err != nil {
		return err
	}

	if released {
		log.Printf("📥 Seat %d (event %d) released after lock expiry, holds expired: %d",
			event.SeatID, event.EventID, len(expiredHolds))
	}
	return nil
}

// applySideEffects updates the overlay and publishes hold-level audit
// records. Both are best effort: the database already committed, and the
// overlay TTL plus the reconciler absorb anything that fails here.
func (h *TransitionHandler) applySideEffects(ctx context.Context, event *messaging.SeatTransitionEvent, expiredHolds []bookings.SeatHold) {
	if err := h.overlay.SetStatuses(ctx, event.EventID, []int64{event.SeatID}, seats.StatusAvailable); err != nil {
		log.Printf("📥 Failed to update overlay for seat %d: %v", event.SeatID, err)
	}

	for i := range expiredHolds {
		hold := &expiredHolds[i]
		audit := messaging.NewHoldAudit(
			constants.EVENT_TYPE_SEAT_HOLD_EXPIRED,
			hold.HoldToken,
			hold.CustomerID,
			hold.EventID,
			hold.SeatIDs,
			string(bookings.HoldStatusExpired),
			hold.ExpiresAt,
			event.Source,
		)
		if err := h.producer.PublishHoldAudit(ctx, constants.TOPIC_SEAT_HOLD_EXPIRED, audit); err != nil {
			log.Printf("📥 Failed to publish expiry audit for hold %s: %v", hold.HoldToken, err)
		}
	}
}
