package seats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatusMap(t *testing.T) (*miniredis.Miniredis, *StatusMap) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewStatusMap(client)
}

func TestSetStatuses_WritesFieldsWithTTL(t *testing.T) {
	mr, overlay := setupStatusMap(t)
	ctx := context.Background()

	err := overlay.SetStatuses(ctx, 7, []int64{101, 102}, StatusHeld)
	require.NoError(t, err)

	assert.Equal(t, "HELD", mr.HGet("7:seat_status", "101"))
	assert.Equal(t, "HELD", mr.HGet("7:seat_status", "102"))
	assert.Equal(t, 600*time.Second, mr.TTL("7:seat_status"))
}

func TestSetStatuses_RefreshesTTLOnEveryWrite(t *testing.T) {
	mr, overlay := setupStatusMap(t)
	ctx := context.Background()

	require.NoError(t, overlay.SetStatuses(ctx, 7, []int64{101}, StatusHeld))
	mr.FastForward(5 * time.Minute)

	require.NoError(t, overlay.SetStatuses(ctx, 7, []int64{102}, StatusBooked))

	assert.Equal(t, 600*time.Second, mr.TTL("7:seat_status"))
	assert.Equal(t, "HELD", mr.HGet("7:seat_status", "101"))
	assert.Equal(t, "BOOKED", mr.HGet("7:seat_status", "102"))
}

func TestSetStatuses_EmptySeatListIsANoOp(t *testing.T) {
	mr, overlay := setupStatusMap(t)

	require.NoError(t, overlay.SetStatuses(context.Background(), 7, nil, StatusHeld))

	assert.False(t, mr.Exists("7:seat_status"))
}

func TestSetStatuses_LaterWriteWins(t *testing.T) {
	mr, overlay := setupStatusMap(t)
	ctx := context.Background()

	require.NoError(t, overlay.SetStatuses(ctx, 7, []int64{101}, StatusHeld))
	require.NoError(t, overlay.SetStatuses(ctx, 7, []int64{101}, StatusBooked))

	assert.Equal(t, "BOOKED", mr.HGet("7:seat_status", "101"))
}

func TestGetAll_MissingMapComesBackEmpty(t *testing.T) {
	_, overlay := setupStatusMap(t)

	statuses, err := overlay.GetAll(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestGetAll_SkipsUnparseableFields(t *testing.T) {
	mr, overlay := setupStatusMap(t)

	mr.HSet("7:seat_status", "101", "HELD")
	mr.HSet("7:seat_status", "not-a-seat", "HELD")

	statuses, err := overlay.GetAll(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]Status{101: StatusHeld}, statuses)
}

func TestGetAll_AfterExpiryComesBackEmpty(t *testing.T) {
	mr, overlay := setupStatusMap(t)
	ctx := context.Background()

	require.NoError(t, overlay.SetStatuses(ctx, 7, []int64{101}, StatusHeld))
	mr.FastForward(601 * time.Second)

	statuses, err := overlay.GetAll(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
