package bookings

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const holdTokenPrefix = "HOLD_"

// GenerateHoldToken mints an opaque hold identifier. The token is the only
// handle a customer gets back, so it doubles as proof of ownership
// alongside the customer ID.
func GenerateHoldToken() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return holdTokenPrefix + strings.ToUpper(raw)
}

// GenerateBookingReference mints a short human-readable reference for a
// confirmed booking. Eight characters keeps it readable over the phone;
// uniqueness is enforced by the database, callers retry on collision.
func GenerateBookingReference() (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	ref := make([]byte, 8)
	for i := range ref {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		ref[i] = alphabet[num.Int64()]
	}

	return string(ref), nil
}
