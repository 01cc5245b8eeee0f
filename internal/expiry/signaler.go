package expiry

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"boxoffice/internal/messaging"
	"boxoffice/internal/shared/constants"
)

// Signaler bridges Redis key expiry notifications onto the seat transition
// topic. When a seat lock's TTL fires, Redis publishes the expired key name
// on __keyevent@{db}__:expired; the signaler parses it and appends one
// SEAT_HOLD_EXPIRED record for the transition consumer. It performs no
// database work.
//
// Redis notifications are fire and forget, so a signaler that is down
// misses them. The reconciler sweeps up whatever this path drops.
type Signaler struct {
	redis    *redis.Client
	producer messaging.EventProducer
	db       int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSignaler(redisClient *redis.Client, producer messaging.EventProducer, db int) *Signaler {
	return &Signaler{
		redis:    redisClient,
		producer: producer,
		db:       db,
	}
}

// Start subscribes to the expiry channel and begins relaying. It returns
// once the server has confirmed the subscription, so a misconfigured Redis
// fails loudly here instead of silently never delivering.
func (s *Signaler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	pattern := constants.BuildExpiredEventsPattern(s.db)
	pubsub := s.redis.PSubscribe(runCtx, pattern)

	if _, err := pubsub.Receive(runCtx); err != nil {
		pubsub.Close()
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	s.wg.Add(1)
	go s.run(runCtx, pubsub)

	log.Printf("🔔 Expiry signaler subscribed to %s", pattern)
	return nil
}

func (s *Signaler) run(ctx context.Context, pubsub *redis.PubSub) {
	defer s.wg.Done()
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleExpiredKey(ctx, msg.Payload)
		}
	}
}

// handleExpiredKey filters the shared-DB expiry stream down to seat lock
// keys. Cache entries and status maps expire on the same channel and are
// dropped without comment; keys that look like locks but do not parse get
// a warning.
func (s *Signaler) handleExpiredKey(ctx context.Context, key string) {
	eventID, seatID, err := constants.ParseSeatLockKey(key)
	if err != nil {
		if strings.HasPrefix(key, constants.SEAT_LOCK_KEY_PREFIX) && strings.HasSuffix(key, constants.SEAT_LOCK_KEY_SUFFIX) {
			log.Printf("🔔 Dropping malformed seat lock key %q: %v", key, err)
		}
		return
	}

	event := messaging.NewSeatHoldExpired(eventID, seatID, constants.EVENT_SOURCE_LOCK_TTL)
	if err := s.producer.PublishSeatTransition(ctx, event); err != nil {
		// The lock is already gone either way; the reconciler will catch
		// this hold on its next tick.
		log.Printf("🔔 Failed to publish expiry for seat %d (event %d): %v", seatID, eventID, err)
	}
}

// Stop cancels the subscription and waits for the relay goroutine to exit.
func (s *Signaler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("🔔 Expiry signaler stopped")
}
