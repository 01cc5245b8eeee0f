package messaging

import (
	"context"
	"fmt"
	"log"
	"time"

	"boxoffice/internal/shared/constants"

	"github.com/IBM/sarama"
)

// EventProducer defines the contract for publishing seat and hold records
type EventProducer interface {
	PublishSeatTransition(ctx context.Context, event *SeatTransitionEvent) error
	PublishHoldAudit(ctx context.Context, topic string, event *HoldAuditEvent) error
	PublishBookingConfirmed(ctx context.Context, event *BookingConfirmedEvent) error
	Close() error
	HealthCheck(ctx context.Context) error
}

// ProducerConfig contains configuration for the Kafka event producer
type ProducerConfig struct {
	Brokers          []string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		RetryMax:         3,
		TimeoutMs:        10000,             // 10 seconds
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// KafkaEventProducer publishes seat transitions and hold audits to Kafka
type KafkaEventProducer struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
}

// NewKafkaEventProducer creates a new Kafka event producer
func NewKafkaEventProducer(config *ProducerConfig) (EventProducer, error) {
	saramaConfig := sarama.NewConfig()

	// Producer configuration
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Enable idempotent producer
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps every record for one seat (or one hold) on
	// the same partition, which is what gives per-key ordering.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("📤 Kafka event producer created successfully")
	return &KafkaEventProducer{
		producer: producer,
		config:   config,
	}, nil
}

// PublishSeatTransition publishes a seat state transition record
func (kep *KafkaEventProducer) PublishSeatTransition(ctx context.Context, event *SeatTransitionEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal seat transition: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     constants.TOPIC_SEAT_STATE_TRANSITIONS,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kep.createHeaders(event.EventType, event.Source),
		Timestamp: time.UnixMilli(event.Timestamp),
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send seat transition to Kafka: %w", err)
	}

	log.Printf("📤 Seat transition published - Topic: %s, Partition: %d, Offset: %d, Seat: %d, Source: %s",
		constants.TOPIC_SEAT_STATE_TRANSITIONS, partition, offset, event.SeatID, event.Source)

	return nil
}

// PublishHoldAudit publishes a hold lifecycle audit record to the given topic
func (kep *KafkaEventProducer) PublishHoldAudit(ctx context.Context, topic string, event *HoldAuditEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal hold audit: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kep.createHeaders(event.EventType, event.Source),
		Timestamp: time.UnixMilli(event.Timestamp),
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send hold audit to Kafka: %w", err)
	}

	log.Printf("📤 Hold audit published - Topic: %s, Partition: %d, Offset: %d, Token: %s, Status: %s",
		topic, partition, offset, event.HoldToken, event.Status)

	return nil
}

// PublishBookingConfirmed publishes a booking confirmation record
func (kep *KafkaEventProducer) PublishBookingConfirmed(ctx context.Context, event *BookingConfirmedEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal booking confirmation: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     constants.TOPIC_BOOKING_CONFIRMED,
		Key:       sarama.StringEncoder(event.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kep.createHeaders(event.EventType, event.Source),
		Timestamp: time.UnixMilli(event.Timestamp),
	}

	partition, offset, err := kep.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send booking confirmation to Kafka: %w", err)
	}

	log.Printf("📤 Booking confirmation published - Topic: %s, Partition: %d, Offset: %d, Reference: %s",
		constants.TOPIC_BOOKING_CONFIRMED, partition, offset, event.BookingReference)

	return nil
}

// createHeaders creates Kafka headers for outgoing records
func (kep *KafkaEventProducer) createHeaders(eventType, source string) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("source"), Value: []byte(source)},
		{Key: []byte("producer"), Value: []byte("boxoffice")},
		{Key: []byte("version"), Value: []byte("1.0")},
	}
}

// Close closes the Kafka producer
func (kep *KafkaEventProducer) Close() error {
	if kep.producer != nil {
		err := kep.producer.Close()
		if err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
		log.Printf("📤 Kafka event producer closed")
	}
	return nil
}

// HealthCheck validates the producer configuration without sending
func (kep *KafkaEventProducer) HealthCheck(ctx context.Context) error {
	if kep.producer == nil {
		return fmt.Errorf("health check failed - producer is nil")
	}

	if len(kep.config.Brokers) == 0 {
		return fmt.Errorf("health check failed - no brokers configured")
	}

	// Serialize a throwaway record to exercise the JSON path
	probe := NewSeatHoldExpired(0, 0, constants.EVENT_SOURCE_LOCK_TTL)
	if _, err := probe.ToJSON(); err != nil {
		return fmt.Errorf("health check failed - JSON marshaling error: %w", err)
	}

	return nil
}
