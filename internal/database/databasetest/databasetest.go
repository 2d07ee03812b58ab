// Package databasetest opens throwaway in-memory sqlite stores that run
// the exact same gorm code paths as the postgres deployment.
package databasetest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"relaychat/internal/database"
)

// New returns a migrated store backed by a test-scoped in-memory
// database. The shared-cache name keeps every pooled connection on the
// same database.
func New(t *testing.T) *database.Database {
	t.Helper()

	d, _ := Raw(t)
	return d
}

// Raw returns the store together with its gorm handle, for tests that
// install callbacks or inspect rows directly.
func Raw(t *testing.T) (*database.Database, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	d, err := database.NewDatabase(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d, db
}
