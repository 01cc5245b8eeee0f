package seats

import (
	"context"
	"fmt"
	"strconv"

	"boxoffice/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// StatusMap maintains the per-event seat status hash that read paths merge
// over the database rows. Writes refresh the hash TTL so the overlay fades
// out on its own once an event goes quiet; a missing hash simply means the
// database alone answers.
type StatusMap struct {
	redis *redis.Client
}

func NewStatusMap(redisClient *redis.Client) *StatusMap {
	return &StatusMap{
		redis: redisClient,
	}
}

// SetStatuses writes one hash field per seat and refreshes the map TTL in
// a single pipeline round trip.
func (s *StatusMap) SetStatuses(ctx context.Context, eventID int64, seatIDs []int64, status Status) error {
	if len(seatIDs) == 0 {
		return nil
	}

	key := constants.BuildSeatStatusMapKey(eventID)

	fields := make([]interface{}, 0, len(seatIDs)*2)
	for _, seatID := range seatIDs {
		fields = append(fields, strconv.FormatInt(seatID, 10), string(status))
	}

	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, fields...)
	pipe.Expire(ctx, key, constants.SEAT_STATUS_MAP_TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update seat status map for event %d: %w", eventID, err)
	}

	return nil
}

// GetAll returns the overlay entries for an event. Fields that do not
// parse as seat IDs are skipped. An expired or never-written map comes
// back empty, not as an error.
func (s *StatusMap) GetAll(ctx context.Context, eventID int64) (map[int64]Status, error) {
	key := constants.BuildSeatStatusMapKey(eventID)

	raw, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat status map for event %d: %w", eventID, err)
	}

	statuses := make(map[int64]Status, len(raw))
	for field, value := range raw {
		seatID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		statuses[seatID] = Status(value)
	}

	return statuses, nil
}
