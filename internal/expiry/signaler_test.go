package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boxoffice/internal/shared/constants"
)

func TestHandleExpiredKey_PublishesTransitionForLockKeys(t *testing.T) {
	producer := &fakeProducer{}
	sig := &Signaler{producer: producer, db: 0}

	sig.handleExpiredKey(context.Background(), "seat:7:101:HELD")

	require.Equal(t, 1, producer.transitionCount())
	event := producer.lastTransition()
	assert.Equal(t, constants.EVENT_TYPE_SEAT_HOLD_EXPIRED, event.EventType)
	assert.Equal(t, int64(7), event.EventID)
	assert.Equal(t, int64(101), event.SeatID)
	assert.Equal(t, constants.EVENT_SOURCE_LOCK_TTL, event.Source)
}

func TestHandleExpiredKey_IgnoresForeignKeys(t *testing.T) {
	producer := &fakeProducer{}
	sig := &Signaler{producer: producer, db: 0}

	// Cache entries and status maps share the notification channel.
	sig.handleExpiredKey(context.Background(), "boxoffice:events:detail:id:7")
	sig.handleExpiredKey(context.Background(), "7:seat_status")
	sig.handleExpiredKey(context.Background(), "seat_hold:HOLD_ABC123")

	assert.Equal(t, 0, producer.transitionCount())
}

func TestHandleExpiredKey_IgnoresMalformedLockKeys(t *testing.T) {
	producer := &fakeProducer{}
	sig := &Signaler{producer: producer, db: 0}

	sig.handleExpiredKey(context.Background(), "seat:abc:def:HELD")
	sig.handleExpiredKey(context.Background(), "seat:7:HELD")

	assert.Equal(t, 0, producer.transitionCount())
}

func TestHandleExpiredKey_PublishFailureIsSwallowed(t *testing.T) {
	producer := &fakeProducer{failWith: errors.New("brokers down")}
	sig := &Signaler{producer: producer, db: 0}

	// Must not panic; the reconciler covers the miss.
	sig.handleExpiredKey(context.Background(), "seat:7:101:HELD")

	assert.Equal(t, 0, producer.transitionCount())
}

func TestSignaler_RelaysPublishedExpiries(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	producer := &fakeProducer{}
	sig := NewSignaler(client, producer, 0)
	require.NoError(t, sig.Start(context.Background()))
	t.Cleanup(sig.Stop)

	// Stand in for the server-side expired-key notification.
	channel := constants.BuildExpiredEventsPattern(0)
	require.NoError(t, client.Publish(context.Background(), channel, "seat:7:101:HELD").Err())

	assert.Eventually(t, func() bool {
		return producer.transitionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	event := producer.lastTransition()
	require.NotNil(t, event)
	assert.Equal(t, int64(7), event.EventID)
	assert.Equal(t, int64(101), event.SeatID)
}
