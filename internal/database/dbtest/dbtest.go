// Package dbtest provides a migrated in-memory SQLite database for tests.
package dbtest

import (
	"testing"

	"pmdashboard/internal/database"

	"gorm.io/gorm"
)

// New opens a fresh migrated database that is closed when the test ends
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
