// Package domain defines the canonical service interfaces shared across API
// layers (REST, WebSocket, client). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/waleedsbi/atm-master/internal/models"
)

// BackupService defines the export and restore operations.
type BackupService interface {
	Export(ctx context.Context, tables []string) (*models.SnapshotDocument, error)
	Restore(ctx context.Context, doc *models.SnapshotDocument, policy models.ConflictPolicy, tables []string) (*models.RestoreOutcome, error)
}

// TableService defines the read-only table browser.
type TableService interface {
	ListTableInfos(ctx context.Context) ([]models.TableInfo, error)
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
}

// AuditService defines audit log query operations.
type AuditService interface {
	Auditor
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// Auditor is the minimal interface for recording audit entries.
// Used by handlers for fire-and-forget audit logging.
type Auditor interface {
	RecordAudit(ctx context.Context, entry models.AuditEntry) error
}

// RestoreSession is one dedicated database session used for a whole
// restore. Session-scoped settings (identity override) hold only on it, so
// every statement of a restore must go through the same session.
type RestoreSession interface {
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
	ClearTable(ctx context.Context, ts *models.TableSchema) error
	SetIdentityInsert(ctx context.Context, ts *models.TableSchema, on bool) error
	RowExists(ctx context.Context, ts *models.TableSchema, keys []string, row models.Row) (bool, error)
	InsertRow(ctx context.Context, ts *models.TableSchema, cols []string, row models.Row) error
	UpsertRow(ctx context.Context, ts *models.TableSchema, cols, keys []string, row models.Row) error
	Close() error
}

// ProgressNotifier receives restore and backup progress events.
type ProgressNotifier interface {
	Notify(eventType string, payload any)
}
