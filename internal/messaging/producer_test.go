package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProducer(t *testing.T) (*mocks.SyncProducer, *KafkaEventProducer) {
	t.Helper()

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	mock := mocks.NewSyncProducer(t, config)
	t.Cleanup(func() { _ = mock.Close() })

	return mock, &KafkaEventProducer{
		producer: mock,
		config:   DefaultProducerConfig(),
	}
}

func TestPublishSeatTransition_RoutesBySeatKey(t *testing.T) {
	mock, producer := setupProducer(t)

	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "seat-state-transitions" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}

		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "7:101" {
			return fmt.Errorf("unexpected key %q", string(key))
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event SeatTransitionEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.EventType != "SEAT_HOLD_EXPIRED" || event.EventID != 7 || event.SeatID != 101 {
			return fmt.Errorf("unexpected payload %+v", event)
		}
		if event.Source != "lock-ttl" || event.Timestamp == 0 {
			return fmt.Errorf("unexpected payload %+v", event)
		}
		return nil
	})

	err := producer.PublishSeatTransition(context.Background(), NewSeatHoldExpired(7, 101, "lock-ttl"))
	require.NoError(t, err)
}

func TestPublishHoldAudit_KeyedByHoldToken(t *testing.T) {
	mock, producer := setupProducer(t)

	expiresAt := time.Date(2026, 3, 14, 20, 10, 0, 0, time.UTC)

	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "seat-hold-created" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}

		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "HOLD_ABC123" {
			return fmt.Errorf("unexpected key %q", string(key))
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var event HoldAuditEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return err
		}
		if event.Status != "ACTIVE" || event.CustomerID != 42 || len(event.SeatIDs) != 2 {
			return fmt.Errorf("unexpected payload %+v", event)
		}
		if event.ExpiresAt != "2026-03-14T20:10:00Z" {
			return fmt.Errorf("unexpected expiresAt %q", event.ExpiresAt)
		}
		return nil
	})

	audit := NewHoldAudit("SEAT_HOLD_CREATED", "HOLD_ABC123", 42, 7, []int64{101, 102}, "ACTIVE", expiresAt, "api")
	err := producer.PublishHoldAudit(context.Background(), "seat-hold-created", audit)
	require.NoError(t, err)
}

func TestPublishBookingConfirmed_BrokerFailureSurfaces(t *testing.T) {
	mock, producer := setupProducer(t)

	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewBookingConfirmed("A1B2C3D4", "HOLD_ABC123", 42, 7, []int64{101}, 120.50, "pay_789", time.Now())
	err := producer.PublishBookingConfirmed(context.Background(), event)

	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestSeatTransitionFromJSON(t *testing.T) {
	event, err := SeatTransitionFromJSON([]byte(`{"eventType":"SEAT_HOLD_EXPIRED","eventId":7,"seatId":101,"timestamp":1700000000000,"source":"lock-ttl"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), event.EventID)
	assert.Equal(t, int64(101), event.SeatID)

	_, err = SeatTransitionFromJSON([]byte(`{not json`))
	assert.Error(t, err)
}
