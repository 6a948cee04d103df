package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"wayantrails/internal/domain"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the booking-number retry relies on when
	// pgconn codes are not available.
	cfg := &gorm.Config{TranslateError: true}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// Migrate creates the booking ledger tables. Order matters only for
// readability; gorm resolves references itself.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Booking{},
		&domain.BookingItem{},
		&domain.BookingStatusHistory{},
		&domain.BookingCounter{},
		&domain.Payment{},
		&domain.BookingAvailability{},
		&domain.WhatsAppMessage{},
		&domain.BookingEvent{},
		&domain.Listing{},
	)
}
