package expiry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/internal/bookings"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/constants"
)

type publishedAudit struct {
	topic string
	event *messaging.HoldAuditEvent
}

// fakeProducer records publishes. It is safe for concurrent use because
// the signaler publishes from its own goroutine.
type fakeProducer struct {
	mu          sync.Mutex
	transitions []*messaging.SeatTransitionEvent
	audits      []publishedAudit
	failWith    error
}

func (f *fakeProducer) PublishSeatTransition(ctx context.Context, event *messaging.SeatTransitionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.transitions = append(f.transitions, event)
	return nil
}

func (f *fakeProducer) PublishHoldAudit(ctx context.Context, topic string, event *messaging.HoldAuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.audits = append(f.audits, publishedAudit{topic: topic, event: event})
	return nil
}

func (f *fakeProducer) PublishBookingConfirmed(ctx context.Context, event *messaging.BookingConfirmedEvent) error {
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func (f *fakeProducer) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeProducer) transitionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transitions)
}

func (f *fakeProducer) lastTransition() *messaging.SeatTransitionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transitions) == 0 {
		return nil
	}
	return f.transitions[len(f.transitions)-1]
}

// fakeHoldRepo overrides only the sweep lookup; the embedded interface
// panics on anything else.
type fakeHoldRepo struct {
	bookings.Repository
	expired []bookings.SeatHold
}

func (f *fakeHoldRepo) FindExpiredActiveHolds(ctx context.Context, cutoff time.Time, limit int) ([]bookings.SeatHold, error) {
	return f.expired, nil
}

func setupOverlay(t *testing.T) (*seats.StatusMap, *seats.LockClient, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return seats.NewStatusMap(client), seats.NewLockClient(client), mr
}

func TestHandleMessage_MalformedPayloadIsAcked(t *testing.T) {
	handler := &TransitionHandler{}

	msg := &sarama.ConsumerMessage{
		Topic:     constants.TOPIC_SEAT_STATE_TRANSITIONS,
		Partition: 0,
		Offset:    42,
		Value:     []byte("not json at all"),
	}

	// No error means the record is acknowledged instead of redelivered.
	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}

func TestHandleMessage_UnknownTypeIsAcked(t *testing.T) {
	handler := &TransitionHandler{}

	event := &messaging.SeatTransitionEvent{
		EventType: "SEAT_MOVED",
		EventID:   7,
		SeatID:    101,
		Timestamp: time.Now().UnixMilli(),
		Source:    constants.EVENT_SOURCE_LOCK_TTL,
	}
	data, err := event.ToJSON()
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{
		Topic: constants.TOPIC_SEAT_STATE_TRANSITIONS,
		Value: data,
	}

	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}

func TestApplySideEffects_UpdatesOverlayAndPublishesAudits(t *testing.T) {
	overlay, _, mr := setupOverlay(t)
	producer := &fakeProducer{}
	handler := &TransitionHandler{overlay: overlay, producer: producer}

	expiresAt := time.Date(2026, 3, 14, 20, 10, 0, 0, time.UTC)
	hold := bookings.SeatHold{
		HoldToken:  "HOLD_ABC123",
		CustomerID: 42,
		EventID:    7,
		SeatIDs:    bookings.Int64Slice{101, 102},
		Status:     bookings.HoldStatusExpired,
		ExpiresAt:  expiresAt,
	}
	event := messaging.NewSeatHoldExpired(7, 101, constants.EVENT_SOURCE_LOCK_TTL)

	handler.applySideEffects(context.Background(), event, []bookings.SeatHold{hold})

	assert.Equal(t, "AVAILABLE", mr.HGet("7:seat_status", "101"))

	require.Len(t, producer.audits, 1)
	audit := producer.audits[0]
	assert.Equal(t, constants.TOPIC_SEAT_HOLD_EXPIRED, audit.topic)
	assert.Equal(t, constants.EVENT_TYPE_SEAT_HOLD_EXPIRED, audit.event.EventType)
	assert.Equal(t, "HOLD_ABC123", audit.event.HoldToken)
	assert.Equal(t, []int64{101, 102}, audit.event.SeatIDs)
	assert.Equal(t, "EXPIRED", audit.event.Status)
	// The audit carries where the expiry originated.
	assert.Equal(t, constants.EVENT_SOURCE_LOCK_TTL, audit.event.Source)
}

func TestApplySideEffects_NoHoldsStillFixesOverlay(t *testing.T) {
	overlay, _, mr := setupOverlay(t)
	producer := &fakeProducer{}
	handler := &TransitionHandler{overlay: overlay, producer: producer}

	event := messaging.NewSeatHoldExpired(7, 101, constants.EVENT_SOURCE_LOCK_TTL)
	handler.applySideEffects(context.Background(), event, nil)

	assert.Equal(t, "AVAILABLE", mr.HGet("7:seat_status", "101"))
	assert.Empty(t, producer.audits)
}
