package bookings

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "ACTIVE"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
)

// IsValid checks if the hold status is valid
func (hs HoldStatus) IsValid() bool {
	switch hs {
	case HoldStatusActive, HoldStatusConfirmed, HoldStatusCancelled, HoldStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of HoldStatus
func (hs HoldStatus) String() string {
	return string(hs)
}

// IsTerminal checks if the hold has reached a final state. Terminal holds
// never transition again; only ACTIVE holds move.
func (hs HoldStatus) IsTerminal() bool {
	return hs != HoldStatusActive
}

// Booking lifecycle statuses. This service only ever writes CONFIRMED;
// CANCELLED and REFUNDED belong to refund tooling operating on the same
// table.
const (
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusRefunded  = "REFUNDED"
)
