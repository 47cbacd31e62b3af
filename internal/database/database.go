package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"racklab/internal/domain"
)

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{},
	)
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Rack{},
		&domain.Booking{},
		&domain.LedgerEntry{},
		&domain.AccessSession{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// The per-rack mutex only serializes one process. Across replicas the
	// database itself must reject overlapping non-terminal intervals; the
	// violation surfaces as pgcode 23P01 and maps to a slot conflict.
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist",
		"ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_rack_interval_excl",
		`ALTER TABLE bookings ADD CONSTRAINT bookings_rack_interval_excl
			EXCLUDE USING gist (rack_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&)
			WHERE (status IN ('provisioning', 'confirmed'))`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
