package bookings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHoldToken(t *testing.T) {
	token := GenerateHoldToken()

	assert.True(t, strings.HasPrefix(token, "HOLD_"))
	assert.Len(t, token, 37) // "HOLD_" + 32 hex chars
	assert.Equal(t, strings.ToUpper(token), token)
}

func TestGenerateHoldToken_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token := GenerateHoldToken()
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %s", token)
		seen[token] = struct{}{}
	}
}

func TestGenerateBookingReference(t *testing.T) {
	ref, err := GenerateBookingReference()
	require.NoError(t, err)

	assert.Len(t, ref, 8)
	for _, ch := range ref {
		assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(ch))
	}
}
