// Package store opens and manages the relational store behind the
// repositories. It supports PostgreSQL (lib/pq) for deployments and an
// embedded SQLite database (modernc.org/sqlite) for development and tests,
// presenting both through the same dbx.DBTX session so repository SQL is
// written once against $N placeholders.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hungpv1995/posts-api/internal/dbx"
)

// Driver names a supported database engine. The values double as the
// database/sql driver registration names.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config selects and tunes the store connection pool.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps *sql.DB together with the driver it was opened with, rebinding
// placeholders where the engine needs it. It satisfies dbx.DBTX, so
// repositories can run against it directly or inside WithTx.
type DB struct {
	sql    *sql.DB
	driver Driver
}

// Open connects to the configured engine, applies the pool settings and
// verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging %s: %w", cfg.Driver, err)
	}

	return &DB{sql: db, driver: cfg.Driver}, nil
}

// Driver reports which engine the store was opened with.
func (d *DB) Driver() Driver { return d.driver }

// Ping verifies the connection is still alive.
func (d *DB) Ping(ctx context.Context) error { return d.sql.PingContext(ctx) }

// Close releases the connection pool.
func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, d.driver.rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, d.driver.rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, d.driver.rebind(query), args...)
}

// WithTx runs fn inside a single transaction, handing it a session that
// performs the same placeholder rebinding as the pool itself.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, d.sql, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &session{inner: tx, driver: d.driver})
	})
}

// session wraps a transactional handle with placeholder rebinding.
type session struct {
	inner  dbx.DBTX
	driver Driver
}

func (s *session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.inner.ExecContext(ctx, s.driver.rebind(query), args...)
}

func (s *session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.inner.QueryContext(ctx, s.driver.rebind(query), args...)
}

func (s *session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.inner.QueryRowContext(ctx, s.driver.rebind(query), args...)
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// rebind rewrites $N placeholders to ? for SQLite. Queries never repeat a
// placeholder, so positional substitution is safe.
func (dr Driver) rebind(query string) string {
	if dr != DriverSQLite {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}
