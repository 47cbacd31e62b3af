package database

import (
	"fmt"
	"testing"

	"racklab/internal/domain"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:database_test_%s?mode=memory&cache=shared", t.Name())
	db, err := Connect(dsn)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	// The postgres-only interval constraint must not break the sqlite
	// path; there the per-process rack mutex is the only overlap guard.
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	for _, model := range []any{
		&domain.User{}, &domain.Rack{}, &domain.Booking{},
		&domain.LedgerEntry{}, &domain.AccessSession{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("missing table for %T", model)
		}
	}
}
