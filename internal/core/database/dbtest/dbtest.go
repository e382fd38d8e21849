// Package dbtest opens a migrated SQLite database for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"well_bbs/internal/core/config"
	"well_bbs/internal/core/database"
)

// New returns a fresh migrated database in t.TempDir(), closed via t.Cleanup.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "well.db") + "?_pragma=busy_timeout(5000)",
	}
	conn, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("dbtest: open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := database.Migrate(conn, "sqlite"); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	return conn
}
