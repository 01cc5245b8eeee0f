package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewService(client), mr
}

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetAndGet(t *testing.T) {
	svc, _ := setupCache(t)
	ctx := context.Background()

	in := testPayload{Name: "orchestra", Count: 42}
	require.NoError(t, svc.Set(ctx, "test:key", in, time.Minute))

	var out testPayload
	require.NoError(t, svc.Get(ctx, "test:key", &out))
	assert.Equal(t, in, out)
}

func TestGetMissingKeyReturnsCacheMiss(t *testing.T) {
	svc, _ := setupCache(t)

	var out testPayload
	err := svc.Get(context.Background(), "test:absent", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetAfterTTLExpiryReturnsCacheMiss(t *testing.T) {
	svc, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "test:ttl", testPayload{Name: "balcony"}, 30*time.Second))

	mr.FastForward(31 * time.Second)

	var out testPayload
	err := svc.Get(ctx, "test:ttl", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	svc, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "test:del", testPayload{Name: "stalls"}, time.Minute))
	require.NoError(t, svc.Delete(ctx, "test:del"))

	assert.False(t, svc.Exists(ctx, "test:del"))
}

func TestGetOrSetFetchesOnMiss(t *testing.T) {
	svc, _ := setupCache(t)
	ctx := context.Background()

	fetched := 0
	fetcher := func() (interface{}, error) {
		fetched++
		return testPayload{Name: "pit", Count: 7}, nil
	}

	var out testPayload
	require.NoError(t, svc.GetOrSet(ctx, "test:aside", time.Minute, fetcher, &out))
	assert.Equal(t, 1, fetched)
	assert.Equal(t, "pit", out.Name)
}

func TestGetOrSetSkipsFetcherOnHit(t *testing.T) {
	svc, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "test:hit", testPayload{Name: "cached"}, time.Minute))

	fetched := 0
	fetcher := func() (interface{}, error) {
		fetched++
		return testPayload{Name: "fresh"}, nil
	}

	var out testPayload
	require.NoError(t, svc.GetOrSet(ctx, "test:hit", time.Minute, fetcher, &out))
	assert.Equal(t, 0, fetched)
	assert.Equal(t, "cached", out.Name)
}
