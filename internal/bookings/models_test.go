package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64Slice_Value(t *testing.T) {
	tests := []struct {
		name string
		in   Int64Slice
		want string
	}{
		{"empty", Int64Slice{}, "{}"},
		{"nil", nil, "{}"},
		{"single", Int64Slice{101}, "{101}"},
		{"multiple", Int64Slice{101, 102, 103}, "{101,102,103}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.in.Value()
			require.NoError(t, err)
			assert.Equal(t, tt.want, val)
		})
	}
}

func TestInt64Slice_Scan(t *testing.T) {
	var ids Int64Slice

	require.NoError(t, ids.Scan([]byte("{101,102,103}")))
	assert.Equal(t, Int64Slice{101, 102, 103}, ids)

	require.NoError(t, ids.Scan("{7}"))
	assert.Equal(t, Int64Slice{7}, ids)

	require.NoError(t, ids.Scan("{}"))
	assert.Empty(t, ids)

	require.NoError(t, ids.Scan(nil))
	assert.Nil(t, ids)

	assert.Error(t, ids.Scan([]byte("{101,abc}")))
	assert.Error(t, ids.Scan(42))
}

func TestInt64Slice_Contains(t *testing.T) {
	ids := Int64Slice{101, 102}

	assert.True(t, ids.Contains(101))
	assert.False(t, ids.Contains(103))
}

func TestSeatHold_IsActive(t *testing.T) {
	hold := &SeatHold{
		Status:    HoldStatusActive,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	assert.True(t, hold.IsActive())

	// A hold past its deadline is inactive even while the row still says
	// ACTIVE.
	hold.ExpiresAt = time.Now().Add(-time.Second)
	assert.False(t, hold.IsActive())

	hold.ExpiresAt = time.Now().Add(5 * time.Minute)
	hold.Status = HoldStatusConfirmed
	assert.False(t, hold.IsActive())
}

func TestSeatHold_Transitions(t *testing.T) {
	hold := &SeatHold{Status: HoldStatusActive}

	hold.Confirm()
	assert.Equal(t, HoldStatusConfirmed, hold.Status)
	require.NotNil(t, hold.ConfirmedAt)

	hold = &SeatHold{Status: HoldStatusActive}
	hold.Cancel()
	assert.Equal(t, HoldStatusCancelled, hold.Status)
	require.NotNil(t, hold.CancelledAt)

	hold = &SeatHold{Status: HoldStatusActive}
	hold.MarkExpired()
	assert.Equal(t, HoldStatusExpired, hold.Status)
}

func TestSeatHold_RemainingSeconds(t *testing.T) {
	hold := &SeatHold{ExpiresAt: time.Now().Add(90 * time.Second)}
	remaining := hold.RemainingSeconds()
	assert.Greater(t, remaining, int64(85))
	assert.LessOrEqual(t, remaining, int64(90))

	hold.ExpiresAt = time.Now().Add(-time.Minute)
	assert.Equal(t, int64(0), hold.RemainingSeconds())
}

func TestHoldStatus_IsTerminal(t *testing.T) {
	assert.False(t, HoldStatusActive.IsTerminal())
	assert.True(t, HoldStatusConfirmed.IsTerminal())
	assert.True(t, HoldStatusCancelled.IsTerminal())
	assert.True(t, HoldStatusExpired.IsTerminal())
}
