package constants

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Seat Lock & Status Map Key Contract
// These keys are shared between the hold orchestrator, the expiry signaler
// and the reconciler. They are deliberately unprefixed: the key text itself
// is the contract that keyspace expiry notifications are parsed against.

// ================== SEAT LOCKS ==================

// Lock key:   seat:{eventId}:{seatId}:HELD
// Lock value: {customerId}:{holdToken}
// TTL:        the hold duration (lock lifetime == hold lifetime)
const (
	SEAT_LOCK_KEY_PREFIX = "seat:"
	SEAT_LOCK_KEY_SUFFIX = ":HELD"
)

func BuildSeatLockKey(eventID, seatID int64) string {
	return fmt.Sprintf("seat:%d:%d:HELD", eventID, seatID)
}

func BuildSeatLockValue(customerID int64, holdToken string) string {
	return fmt.Sprintf("%d:%s", customerID, holdToken)
}

// ParseSeatLockKey extracts the event and seat ids from a lock key. It is
// strict: exactly four colon-separated parts with the fixed prefix and
// suffix, and both ids must parse as integers.
func ParseSeatLockKey(key string) (eventID, seatID int64, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "seat" || parts[3] != "HELD" {
		return 0, 0, fmt.Errorf("not a seat lock key: %s", key)
	}
	eventID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid event id in lock key %s: %w", key, err)
	}
	seatID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid seat id in lock key %s: %w", key, err)
	}
	return eventID, seatID, nil
}

// ================== SEAT STATUS MAP ==================

// Status map key: {eventId}:seat_status
// A Redis HASH of seatId -> AVAILABLE|HELD|BOOKED that fronts the seat map
// reads. Every write refreshes the TTL; a missing hash falls back to the
// database.
const (
	SEAT_STATUS_MAP_SUFFIX = ":seat_status"
	SEAT_STATUS_MAP_TTL    = 600 * time.Second
)

func BuildSeatStatusMapKey(eventID int64) string {
	return fmt.Sprintf("%d%s", eventID, SEAT_STATUS_MAP_SUFFIX)
}

// ================== KEYSPACE NOTIFICATIONS ==================

// Expired-key notification channel pattern for the logical DB the locks
// live in. Requires notify-keyspace-events to include "Ex" on the server.
func BuildExpiredEventsPattern(db int) string {
	return fmt.Sprintf("__keyevent@%d__:expired", db)
}
