package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes the cache keys and TTL values for the Boxoffice application
// Pattern: boxoffice:{module}:{operation}:{identifier}:{params?}
//
// The seat lock and seat status map keys are NOT prefixed; they are a wire
// contract shared with the expiry signaler and live in redis_keys.go.

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // 2 hours - for event details
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour    // 1 hour - for event listings
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // 15 minutes - for upcoming events
)

// Dynamic Data (Short TTL: changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for booking details
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // 5 minutes - for seat maps
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // 30 seconds - for live seat counts
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "boxoffice"
)

// ================== EVENTS MODULE ==================

// Event Cache Keys
const (
	CACHE_KEY_EVENTS_LIST     = CACHE_PREFIX + ":events:list"     // + :page:X:limit:Y:status:Z
	CACHE_KEY_EVENTS_UPCOMING = CACHE_PREFIX + ":events:upcoming" // + :limit:N

	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:id:" // + event-id
)

// Event Cache TTLs
const (
	TTL_EVENT_LIST     = TTL_SEMI_STATIC_SHORT  // 1 hour
	TTL_EVENT_UPCOMING = TTL_SEMI_STATIC_QUICK  // 15 minutes
	TTL_EVENT_DETAIL   = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== SEATS MODULE ==================

// Seat Cache Keys
const (
	CACHE_KEY_SEAT_SUMMARY = CACHE_PREFIX + ":seats:summary:event:" // + event-id
)

// Seat Cache TTLs
const (
	TTL_SEAT_SUMMARY = TTL_REALTIME_SHORT // 30 seconds
)

// ================== BOOKINGS MODULE ==================

// Hold View Cache Keys
// Cached DTO of an active hold, keyed by token. The TTL tracks the hold
// expiry so the cache can never outlive the hold itself.
const (
	CACHE_KEY_SEAT_HOLD = "seat_hold:" // + hold-token
)

// ================== HELPER FUNCTIONS ==================

func BuildEventListKey(page, limit int, status string) string {
	if status != "" {
		return CACHE_KEY_EVENTS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit) + ":status:" + status
	}
	return CACHE_KEY_EVENTS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildUpcomingEventsKey(limit int) string {
	return CACHE_KEY_EVENTS_UPCOMING + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildEventDetailKey(eventID int64) string {
	return CACHE_KEY_EVENT_DETAIL + fmt.Sprintf("%d", eventID)
}

func BuildSeatSummaryKey(eventID int64) string {
	return CACHE_KEY_SEAT_SUMMARY + fmt.Sprintf("%d", eventID)
}

func BuildSeatHoldCacheKey(holdToken string) string {
	return CACHE_KEY_SEAT_HOLD + holdToken
}
