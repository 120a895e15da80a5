package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending schema migrations for the store's engine.
// Migrations are embedded per dialect because the engines disagree on
// identity-column syntax.
func (d *DB) Migrate(ctx context.Context) error {
	dialect, dir := "postgres", "migrations/postgres"
	if d.driver == DriverSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("store: setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.sql, dir); err != nil {
		return fmt.Errorf("store: applying migrations: %w", err)
	}
	return nil
}
