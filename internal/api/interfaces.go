package api

import (
	"context"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/models"
)

// BackupRepository is the export/restore surface used by BackupHandler.
type BackupRepository = domain.BackupService

// TableRepository backs the table browser.
type TableRepository = domain.TableService

// AuditRepository defines audit log queries used by AuditHandler.
type AuditRepository interface {
	QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

// AuditEnqueuer accepts audit entries for asynchronous recording.
type AuditEnqueuer interface {
	Enqueue(entry *models.AuditEntry)
}

// HealthChecker reports database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SchemaChecker verifies that the service's own tables are migrated.
type SchemaChecker interface {
	CountUsers(ctx context.Context) (int, error)
}
