// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"testing"

	infradb "credit-acceleration/internal/infrastructure/db"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh, fully migrated in-memory database closed on cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := infradb.OpenSQLite(":memory:", logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := infradb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
