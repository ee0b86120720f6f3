package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

// RestoreStore opens restore sessions.
type RestoreStore struct {
	Base
}

// NewRestoreStore creates a RestoreStore.
func NewRestoreStore(base Base) *RestoreStore {
	return &RestoreStore{Base: base}
}

// OpenSession pins one pooled connection for the duration of a restore.
func (s *RestoreStore) OpenSession(ctx context.Context) (domain.RestoreSession, error) {
	conn, err := s.Pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening restore session: %w", err)
	}

	return &Session{Base: s.Base, conn: conn}, nil
}

// Session implements domain.RestoreSession on a single *sql.Conn.
type Session struct {
	Base
	conn *sql.Conn
}

var _ domain.RestoreSession = (*Session)(nil)

// DescribeTable introspects a table on the session's connection.
func (s *Session) DescribeTable(ctx context.Context, table string) (*models.TableSchema, error) {
	return describeTable(ctx, s.conn, s.schemaName(), table)
}

// ClearTable empties a table with its constraints suspended. TRUNCATE is
// tried first and DELETE is the fallback for tables TRUNCATE rejects.
// Constraints are re-enabled on every exit path.
func (s *Session) ClearTable(ctx context.Context, ts *models.TableSchema) (err error) {
	table := s.qualified(ts.Name)

	if _, err := s.conn.ExecContext(ctx, sqlgen.DisableConstraints(table)); err != nil {
		return fmt.Errorf("disabling constraints on %s: %w", ts.Name, err)
	}

	defer func() {
		if _, cerr := s.conn.ExecContext(context.WithoutCancel(ctx), sqlgen.EnableConstraints(table)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("re-enabling constraints on %s: %w", ts.Name, cerr))
		}
	}()

	_, terr := s.conn.ExecContext(ctx, sqlgen.Truncate(table))
	if terr == nil {
		return nil
	}

	s.Log.WithError(terr).WithField("table", ts.Name).Debug("truncate rejected, falling back to delete")

	if _, err := s.conn.ExecContext(ctx, sqlgen.DeleteAll(table)); err != nil {
		return fmt.Errorf("clearing %s: %w", ts.Name, err)
	}

	return nil
}

// SetIdentityInsert toggles explicit identity values on the session.
func (s *Session) SetIdentityInsert(ctx context.Context, ts *models.TableSchema, on bool) error {
	if _, err := s.conn.ExecContext(ctx, sqlgen.IdentityInsert(s.qualified(ts.Name), on)); err != nil {
		return fmt.Errorf("setting identity insert on %s: %w", ts.Name, err)
	}

	return nil
}

// RowExists reports whether a row with the given key values is present.
func (s *Session) RowExists(ctx context.Context, ts *models.TableSchema, keys []string, row models.Row) (bool, error) {
	args := sqlgen.Values(row, keys, ts.DeclaredTypes(keys))

	var n int
	if err := s.conn.QueryRowContext(ctx, sqlgen.Exists(s.qualified(ts.Name), keys), args...).Scan(&n); err != nil {
		return false, fmt.Errorf("probing %s: %w", ts.Name, err)
	}

	return n > 0, nil
}

// InsertRow inserts one row.
func (s *Session) InsertRow(ctx context.Context, ts *models.TableSchema, cols []string, row models.Row) error {
	args := sqlgen.Values(row, cols, ts.DeclaredTypes(cols))
	_, err := s.conn.ExecContext(ctx, sqlgen.Insert(s.qualified(ts.Name), cols), args...)

	return err
}

// UpsertRow inserts or updates one row keyed on keys in a single statement.
func (s *Session) UpsertRow(ctx context.Context, ts *models.TableSchema, cols, keys []string, row models.Row) error {
	stmt := sqlgen.Merge(s.qualified(ts.Name), cols, keys, ts.IdentityColumn)
	_, err := s.conn.ExecContext(ctx, stmt, sqlgen.Values(row, cols, ts.DeclaredTypes(cols))...)

	return err
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}
