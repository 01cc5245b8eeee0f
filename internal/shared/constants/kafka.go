package constants

import "fmt"

// Kafka Topics & Event Types
// This file centralizes the topic names, event type discriminators and
// partition key builders for the seat lifecycle event log.

// ================== TOPICS ==================

const (
	// Seat state transitions (expiry signals). Keyed {eventId}:{seatId} so
	// one seat's transitions land on one partition, in order.
	TOPIC_SEAT_STATE_TRANSITIONS = "seat-state-transitions"

	// Hold lifecycle audit topics, keyed by hold token.
	TOPIC_SEAT_HOLD_CREATED   = "seat-hold-created"
	TOPIC_SEAT_HOLD_CONFIRMED = "seat-hold-confirmed"
	TOPIC_SEAT_HOLD_CANCELLED = "seat-hold-cancelled"
	TOPIC_SEAT_HOLD_EXPIRED   = "seat-hold-expired"

	// Booking audit topic, keyed by booking reference.
	TOPIC_BOOKING_CONFIRMED = "booking-confirmed"
)

// ================== EVENT TYPES ==================

const (
	EVENT_TYPE_SEAT_HOLD_EXPIRED   = "SEAT_HOLD_EXPIRED"
	EVENT_TYPE_SEAT_HOLD_CREATED   = "SEAT_HOLD_CREATED"
	EVENT_TYPE_SEAT_HOLD_CONFIRMED = "SEAT_HOLD_CONFIRMED"
	EVENT_TYPE_SEAT_HOLD_CANCELLED = "SEAT_HOLD_CANCELLED"
	EVENT_TYPE_BOOKING_CONFIRMED   = "BOOKING_CONFIRMED"
)

// ================== EVENT SOURCES ==================

const (
	EVENT_SOURCE_API        = "api"
	EVENT_SOURCE_LOCK_TTL   = "lock-ttl"
	EVENT_SOURCE_RECONCILER = "reconciler"
)

// ================== CONSUMER GROUPS ==================

const (
	CONSUMER_GROUP_SEAT_TRANSITIONS = "boxoffice-seat-transitions"
)

// ================== HELPER FUNCTIONS ==================

func BuildSeatTransitionKey(eventID, seatID int64) string {
	return fmt.Sprintf("%d:%d", eventID, seatID)
}
