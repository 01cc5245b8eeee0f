package bookings

import "errors"

// Sentinel errors returned by the hold lifecycle. The HTTP layer maps
// them to status codes with errors.Is, so wrapping with %w is safe.
var (
	// ErrSeatsLocked means another customer's Redis lock beat this request.
	ErrSeatsLocked = errors.New("one or more seats are currently held by another customer")

	// ErrSeatsUnavailable means the database claim fell short: at least
	// one seat was already held or booked when the conditional update ran.
	ErrSeatsUnavailable = errors.New("one or more selected seats are no longer available")

	// ErrConfirmConflict means the HELD -> BOOKED update touched fewer
	// rows than the hold covers, so an expiry released seats mid-confirm.
	ErrConfirmConflict = errors.New("failed to confirm all seats, some may have been released")

	// ErrAlreadyConfirmed means the hold was already turned into a booking
	// under a different payment ID.
	ErrAlreadyConfirmed = errors.New("seat hold was already confirmed")

	ErrHoldNotFound     = errors.New("seat hold not found")
	ErrHoldNotActive    = errors.New("seat hold is not active or has expired")
	ErrCustomerMismatch = errors.New("invalid customer for this hold")
	ErrBookingNotFound  = errors.New("booking not found")
)

// ValidationError marks a request that can never succeed as sent, as
// opposed to one that lost a race and is worth retrying.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
