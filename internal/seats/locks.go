package seats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Lua script for lock release - deletes the lock only while it still
// carries the expected owner value. A plain DEL could remove a newer
// customer's lock when the original expired and was re-acquired between
// our read and the delete.
const luaReleaseLock = `if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
else
    return 0
end`

var releaseLockScript = redis.NewScript(luaReleaseLock)

// SeatLockedError reports the first requested seat whose lock is already
// owned by someone else.
type SeatLockedError struct {
	EventID int64
	SeatID  int64
}

func (e *SeatLockedError) Error() string {
	return fmt.Sprintf("seat %d is already locked for event %d", e.SeatID, e.EventID)
}

// LockClient manages the per-seat TTL locks that grant a customer
// temporary exclusivity while they complete payment. The locks are
// advisory: the database conditional updates remain the arbiter, and a
// vanished lock never blocks confirmation.
type LockClient struct {
	redis *redis.Client
}

func NewLockClient(redisClient *redis.Client) *LockClient {
	return &LockClient{
		redis: redisClient,
	}
}

// PreloadScripts loads the Lua scripts into Redis so the SHA path is warm
func (l *LockClient) PreloadScripts(ctx context.Context) error {
	if l.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	if err := releaseLockScript.Load(ctx, l.redis).Err(); err != nil {
		return fmt.Errorf("failed to load lock release script: %w", err)
	}
	return nil
}

// AcquireSeatLocks takes one lock per seat, in request order, each carrying
// the full hold TTL. The first seat that is already locked aborts the
// attempt: locks acquired so far are compare-and-deleted and a
// SeatLockedError is returned. Any other Redis failure also rolls back the
// acquired locks and is returned as-is so the caller can decide whether
// the degraded database path applies.
func (l *LockClient) AcquireSeatLocks(ctx context.Context, eventID int64, seatIDs []int64, customerID int64, holdToken string, ttl time.Duration) error {
	value := constants.BuildSeatLockValue(customerID, holdToken)

	acquired := make([]int64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		key := constants.BuildSeatLockKey(eventID, seatID)

		ok, err := l.redis.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			l.ReleaseSeatLocks(ctx, eventID, acquired, customerID, holdToken)
			return fmt.Errorf("failed to acquire lock for seat %d: %w", seatID, err)
		}
		if !ok {
			l.ReleaseSeatLocks(ctx, eventID, acquired, customerID, holdToken)
			return &SeatLockedError{EventID: eventID, SeatID: seatID}
		}

		acquired = append(acquired, seatID)
	}

	return nil
}

// ReleaseSeatLocks compare-and-deletes the locks for the given seats. Best
// effort: per-key failures are logged and skipped so one dead key cannot
// strand the rest. Returns the number of locks actually deleted.
func (l *LockClient) ReleaseSeatLocks(ctx context.Context, eventID int64, seatIDs []int64, customerID int64, holdToken string) int {
	value := constants.BuildSeatLockValue(customerID, holdToken)

	released := 0
	for _, seatID := range seatIDs {
		key := constants.BuildSeatLockKey(eventID, seatID)

		result, err := releaseLockScript.Run(ctx, l.redis, []string{key}, value).Result()
		if err != nil {
			logger.GetDefault().WarnContext(ctx, "Failed to release seat lock",
				"key", key, "error", err.Error())
			continue
		}
		if deleted, ok := result.(int64); ok && deleted == 1 {
			released++
		}
	}

	return released
}

// GetLockValue returns the current owner value of a seat lock, or the
// empty string when no lock exists.
func (l *LockClient) GetLockValue(ctx context.Context, eventID, seatID int64) (string, error) {
	val, err := l.redis.Get(ctx, constants.BuildSeatLockKey(eventID, seatID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read lock for seat %d: %w", seatID, err)
	}
	return val, nil
}

// IsConnectionError reports whether err looks like a lock store outage
// rather than a logical failure. The hold path falls back to database row
// locks on these; anything else propagates as a real error. Wrapped
// errors are unwrapped all the way down.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) {
		return true
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
