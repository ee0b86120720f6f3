// Package service implements the backup and restore business logic.
package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/metrics"
	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

// Progress event types published while a backup or restore runs.
const (
	EventBackupCompleted  = "backup.completed"
	EventRestoreStarted   = "restore.started"
	EventRestoreTable     = "restore.table"
	EventRestoreCompleted = "restore.completed"
)

// catalogStore is the minimal catalog interface consumed by BackupService.
// Defined at the consumer so the store package depends on no service types.
type catalogStore interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
}

// rowReader reads table contents for export.
type rowReader interface {
	ReadRows(ctx context.Context, ts *models.TableSchema) ([]models.Row, error)
}

// sessionOpener opens the dedicated session a restore runs on.
type sessionOpener interface {
	OpenSession(ctx context.Context) (domain.RestoreSession, error)
}

// BackupOptions configures a BackupService.
type BackupOptions struct {
	Database      string
	SchemaVersion int
	AppVersion    string
	RowErrorLimit int
	Notifier      domain.ProgressNotifier
}

// Compile-time check: *BackupService must satisfy domain.BackupService.
var _ domain.BackupService = (*BackupService)(nil)

// BackupService implements domain.BackupService. Only one export or restore
// runs at a time per process.
type BackupService struct {
	catalog  catalogStore
	reader   rowReader
	sessions sessionOpener
	log      *logrus.Logger
	opts     BackupOptions
	busy     atomic.Bool
	now      func() time.Time
}

// NewBackupService creates a BackupService.
func NewBackupService(catalog catalogStore, reader rowReader, sessions sessionOpener, log *logrus.Logger, opts BackupOptions) *BackupService {
	if opts.RowErrorLimit < 0 {
		opts.RowErrorLimit = 0
	}

	return &BackupService{
		catalog:  catalog,
		reader:   reader,
		sessions: sessions,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *BackupService) acquire() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, models.ErrOperationInProgress
	}

	return func() { s.busy.Store(false) }, nil
}

func (s *BackupService) notify(eventType string, payload any) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(eventType, payload)
	}
}

// Export serialises the selected tables, or every base table when none are
// selected, into a snapshot. A table that cannot be read gets an error entry
// and the export continues; only a failure to enumerate tables fails it.
func (s *BackupService) Export(ctx context.Context, tables []string) (*models.SnapshotDocument, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()

	defer func() {
		metrics.OperationDuration.WithLabelValues("backup").Observe(time.Since(start).Seconds())
	}()

	names := tables
	if len(names) == 0 {
		if names, err = s.catalog.ListTables(ctx); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
	}

	doc := &models.SnapshotDocument{
		Timestamp:     s.now().UTC(),
		Database:      s.opts.Database,
		SchemaVersion: s.opts.SchemaVersion,
		AppVersion:    s.opts.AppVersion,
	}

	failed := 0

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export interrupted: %w", err)
		}

		entry := s.exportTable(ctx, name)
		if entry.Error != "" {
			failed++
		}

		doc.Tables.Set(name, entry)
	}

	s.log.WithFields(logrus.Fields{
		"tables":   doc.Tables.Len(),
		"failed":   failed,
		"duration": time.Since(start),
	}).Info("backup.export")

	s.notify(EventBackupCompleted, map[string]any{"tables": doc.Tables.Len(), "failed": failed})

	return doc, nil
}

func (s *BackupService) exportTable(ctx context.Context, name string) models.TableSnapshot {
	ts, err := s.catalog.DescribeTable(ctx, name)
	if errors.Is(err, models.ErrTableNotFound) {
		metrics.BackupTables.WithLabelValues(metrics.ResultFailed).Inc()
		return models.TableSnapshot{Error: "table not found"}
	}

	if err == nil {
		var rows []models.Row
		if rows, err = s.reader.ReadRows(ctx, ts); err == nil {
			metrics.BackupTables.WithLabelValues(metrics.ResultSuccess).Inc()
			return models.TableSnapshot{RowCount: len(rows), Data: rows}
		}
	}

	s.log.WithError(err).WithField("table", name).Warn("table export failed")
	metrics.BackupTables.WithLabelValues(metrics.ResultFailed).Inc()

	return models.TableSnapshot{Error: err.Error()}
}

// Restore replays a snapshot into the database table by table, in the
// requested order or in document order. Table and row problems are reported
// in the outcome; only infrastructure failures abort the restore.
func (s *BackupService) Restore(
	ctx context.Context,
	doc *models.SnapshotDocument,
	policy models.ConflictPolicy,
	tables []string,
) (*models.RestoreOutcome, error) {
	if doc == nil {
		return nil, models.ErrInvalidSnapshot
	}

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()

	defer func() {
		metrics.OperationDuration.WithLabelValues("restore").Observe(time.Since(start).Seconds())
	}()

	sess, err := s.sessions.OpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening restore session: %w", err)
	}

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("closing restore session")
		}
	}()

	names := tables
	if len(names) == 0 {
		names = doc.Tables.Names()
	}

	s.notify(EventRestoreStarted, map[string]any{"mode": policy, "tables": len(names)})

	var out models.RestoreOutcome

	for i, name := range names {
		t, err := s.restoreTable(ctx, sess, doc, policy, name)
		if err != nil {
			return nil, fmt.Errorf("restoring %s: %w", name, err)
		}

		out = out.Add(t)
		recordTableMetrics(t)

		s.notify(EventRestoreTable, map[string]any{
			"table":     t.Table,
			"index":     i + 1,
			"total":     len(names),
			"inserted":  t.Inserted,
			"skipped":   t.Skipped,
			"errors":    t.Errors,
			"succeeded": t.Succeeded(),
		})
	}

	s.log.WithFields(logrus.Fields{
		"mode":     policy,
		"tables":   out.TotalTables,
		"failed":   out.FailedTables,
		"inserted": out.InsertedRows,
		"duration": time.Since(start),
	}).Info("backup.restore")

	s.notify(EventRestoreCompleted, map[string]any{
		"message":          out.Message(),
		"successfulTables": out.SuccessfulTables,
		"failedTables":     out.FailedTables,
	})

	return &out, nil
}

// restoreTable restores a single table and returns its outcome. The error
// return is reserved for failures that must abort the whole restore.
func (s *BackupService) restoreTable(
	ctx context.Context,
	sess domain.RestoreSession,
	doc *models.SnapshotDocument,
	policy models.ConflictPolicy,
	name string,
) (models.TableOutcome, error) {
	out := models.TableOutcome{Table: name}
	log := s.log.WithFields(logrus.Fields{"table": name, "mode": policy})

	entry, ok := doc.Tables.Get(name)
	if !ok {
		out.Failure = "not present in backup"
		return out, nil
	}

	if problem := entry.Problem(); problem != "" {
		out.Failure = problem
		return out, nil
	}

	out.TotalRows = len(entry.Data)

	ts, err := sess.DescribeTable(ctx, name)
	if err != nil {
		if isFatal(err) {
			return out, err
		}

		if errors.Is(err, models.ErrTableNotFound) {
			out.Failure = "table not found in target database"
		} else {
			out.Failure = err.Error()
		}

		log.WithError(err).Warn("restore skipped table")

		return out, nil
	}

	if policy == models.PolicyReplace {
		if err := sess.ClearTable(ctx, ts); err != nil {
			if isFatal(err) {
				return out, err
			}

			out.Failure = "clearing table: " + err.Error()
			log.WithError(err).Warn("restore could not clear table")

			return out, nil
		}
	}

	if policy != models.PolicyReplace && len(ts.PrimaryKey) == 0 && len(entry.Data) > 0 {
		out.Notes = append(out.Notes, fmt.Sprintf("table has no primary key, %s falls back to insert", policy))
		log.Warn("table has no primary key, falling back to insert")
	}

	for i, row := range entry.Data {
		res, err := s.restoreRow(ctx, sess, ts, policy, row)
		if err != nil {
			if isFatal(err) {
				return out, err
			}

			out.Errors++

			if len(out.RowErrors) < s.opts.RowErrorLimit {
				out.RowErrors = append(out.RowErrors, models.RowError{Row: i + 1, Message: err.Error()})
				log.WithError(err).WithField("row", i+1).Warn("row rejected")
			}

			continue
		}

		switch res {
		case rowInserted:
			out.Inserted++
		case rowSkipped:
			out.Skipped++
		case rowInert:
		}
	}

	return out, nil
}

type rowResult int

const (
	rowInert rowResult = iota
	rowInserted
	rowSkipped
)

// restoreRow writes one row under the conflict policy.
func (s *BackupService) restoreRow(
	ctx context.Context,
	sess domain.RestoreSession,
	ts *models.TableSchema,
	policy models.ConflictPolicy,
	row models.Row,
) (rowResult, error) {
	cols := ts.ValidColumns(row)
	if len(cols) == 0 {
		return rowInert, nil
	}

	switch policy {
	case models.PolicyUpsert:
		if keys := ts.KeyColumns(cols); len(keys) > 0 {
			err := withIdentityOverride(ctx, sess, ts, cols, func() error {
				return sess.UpsertRow(ctx, ts, cols, keys, row)
			})
			if err != nil {
				return rowInert, err
			}

			return rowInserted, nil
		}
	case models.PolicyMerge:
		if keys := presentKeys(ts, cols, row); len(keys) > 0 {
			exists, err := sess.RowExists(ctx, ts, keys, row)
			if err != nil {
				return rowInert, err
			}

			if exists {
				return rowSkipped, nil
			}
		}
	case models.PolicyReplace:
	}

	err := withIdentityOverride(ctx, sess, ts, cols, func() error {
		return sess.InsertRow(ctx, ts, cols, row)
	})
	if err != nil {
		return rowInert, err
	}

	return rowInserted, nil
}

// presentKeys returns the primary-key columns among cols whose value is not
// NULL under the value rule.
func presentKeys(ts *models.TableSchema, cols []string, row models.Row) []string {
	var keys []string

	for _, k := range ts.KeyColumns(cols) {
		col, _ := ts.Column(k)
		if !sqlgen.IsNull(sqlgen.Value(col.DeclaredType, row[k])) {
			keys = append(keys, k)
		}
	}

	return keys
}

// errIdentityRelease marks a failure to switch an identity override off.
// The session is left in an unknown state, so the restore cannot go on.
var errIdentityRelease = errors.New("releasing identity override")

// withIdentityOverride runs fn with explicit identity values enabled when
// cols include the identity column. The override is released on every exit
// path.
func withIdentityOverride(
	ctx context.Context,
	sess domain.RestoreSession,
	ts *models.TableSchema,
	cols []string,
	fn func() error,
) (err error) {
	if !ts.HasIdentity(cols) {
		return fn()
	}

	if err := sess.SetIdentityInsert(ctx, ts, true); err != nil {
		return err
	}

	defer func() {
		if offErr := sess.SetIdentityInsert(context.WithoutCancel(ctx), ts, false); offErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", errIdentityRelease, offErr))
		}
	}()

	return fn()
}

// isFatal reports whether err means the session or the caller is gone.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, errIdentityRelease)
}

func recordTableMetrics(t models.TableOutcome) {
	result := metrics.ResultSuccess
	if !t.Succeeded() {
		result = metrics.ResultFailed
	}

	metrics.RestoreTables.WithLabelValues(result).Inc()
	metrics.RestoreRows.WithLabelValues(metrics.ResultSuccess).Add(float64(t.Inserted))
	metrics.RestoreRows.WithLabelValues(metrics.ResultSkipped).Add(float64(t.Skipped))
	metrics.RestoreRows.WithLabelValues(metrics.ResultError).Add(float64(t.Errors))
}
