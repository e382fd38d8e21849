package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"well_bbs/internal/core/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate Apply embedded goose migrations
func Migrate(conn *sqlx.DB, driver string) error {
	dialect := goose.DialectMySQL
	if driver == "sqlite" {
		dialect = goose.DialectSQLite3
	}

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, conn.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied",
			logger.String("source", r.Source.Path),
			logger.Duration("duration", r.Duration))
	}
	return nil
}
