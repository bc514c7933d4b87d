package database

import (
	"gatepass/internal/bookings"
	"gatepass/internal/carts"
	"gatepass/internal/holds"
	"gatepass/internal/shows"
	"gatepass/internal/tickets"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	// uuid_generate_v4 defaults need the extension
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(
		&shows.Show{},
		&shows.ShowUnit{},
		&holds.Hold{},
		&bookings.Booking{},
		&tickets.Ticket{},
		&carts.AbandonedCart{},
	)
}
