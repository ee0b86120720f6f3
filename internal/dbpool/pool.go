// Package dbpool provides SQL Server connection pool management.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" database/sql driver.
)

// Pool wraps a *sql.DB with health check capabilities.
// The underlying handle is unexported so that callers go through the
// timeout-bounded store methods.
type Pool struct {
	db   *sql.DB
	name string
}

// Options tune the pool.
type Options struct {
	MaxConns int
	Database string
}

// NewPool opens a SQL Server connection pool and verifies it can connect.
func NewPool(ctx context.Context, databaseURL string, opts Options) (*Pool, error) {
	db, err := sql.Open("sqlserver", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxConns := opts.MaxConns
	if maxConns < 2 {
		maxConns = 10
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{db: db, name: opts.Database}, nil
}

// Conn returns a dedicated session. Session-scoped settings such as
// SET IDENTITY_INSERT only hold on the connection that issued them.
func (p *Pool) Conn(ctx context.Context) (*sql.Conn, error) {
	return p.db.Conn(ctx)
}

// ExecContext executes a statement that doesn't return rows.
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (p *Pool) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// HealthCheck verifies database connectivity by executing a simple query.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var result int

	err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("health check query: %w", err)
	}

	return nil
}

// DB exposes the handle for the migration runner, which needs a *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// DatabaseName returns the configured database name.
func (p *Pool) DatabaseName() string {
	return p.name
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.db.Close()
}
