package database

import (
	"boxoffice/internal/bookings"
	"boxoffice/internal/events"
	"boxoffice/internal/seats"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&events.Event{},
		&seats.Seat{},
		&bookings.SeatHold{},
		&bookings.Booking{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
