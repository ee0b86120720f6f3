// Package store provides focused, single-concern data access stores for the
// backup and restore subsystem.
//
// Each store owns one concern (catalog, export reads, restore sessions,
// audit, users) and embeds shared helpers (Pool, logger, schema) via the
// Base struct. Stores never import each other; shared logic lives in this
// file or in schema.go.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/dbpool"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool   *dbpool.Pool
	Log    *logrus.Logger
	Schema string
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// querier is satisfied by both *dbpool.Pool and *sql.Conn, so catalog
// queries can run on the pool or on a dedicated restore session.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// schemaName returns the configured schema, defaulting to dbo.
func (b *Base) schemaName() string {
	if b.Schema == "" {
		return "dbo"
	}

	return b.Schema
}

// qualified returns the bracket-quoted [schema].[table] name.
func (b *Base) qualified(table string) string {
	return sqlgen.QualifiedName(b.schemaName(), table)
}
