package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// A physical seat position exists once per event, across sections
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS unique_seat_position_per_event
		ON seats (event_id, row_letter, seat_number);
	`).Error
	if err != nil {
		return err
	}

	// Seat map and availability queries filter by event + status
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seats_event_status
		ON seats (event_id, status);
	`).Error
	if err != nil {
		return err
	}

	// The reconciler and expiry consumer scan for lapsed active holds;
	// terminal rows vastly outnumber active ones so the index is partial
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seat_holds_active_expires_at
		ON seat_holds (expires_at)
		WHERE status = 'ACTIVE';
	`).Error
	if err != nil {
		return err
	}

	// The expiry consumer resolves holds by contained seat id
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seat_holds_seat_ids
		ON seat_holds USING GIN (seat_ids);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
