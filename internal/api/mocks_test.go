package api_test

import (
	"context"
	"sync"

	"github.com/waleedsbi/atm-master/internal/models"
)

// mockBackupService implements api.BackupRepository for testing.
type mockBackupService struct {
	exportFn  func(ctx context.Context, tables []string) (*models.SnapshotDocument, error)
	restoreFn func(ctx context.Context, doc *models.SnapshotDocument, policy models.ConflictPolicy, tables []string) (*models.RestoreOutcome, error)
}

func (m *mockBackupService) Export(ctx context.Context, tables []string) (*models.SnapshotDocument, error) {
	return m.exportFn(ctx, tables)
}

func (m *mockBackupService) Restore(ctx context.Context, doc *models.SnapshotDocument, policy models.ConflictPolicy, tables []string) (*models.RestoreOutcome, error) {
	return m.restoreFn(ctx, doc, policy, tables)
}

// mockTableService implements api.TableRepository for testing.
type mockTableService struct {
	listFn     func(ctx context.Context) ([]models.TableInfo, error)
	describeFn func(ctx context.Context, table string) (*models.TableSchema, error)
}

func (m *mockTableService) ListTableInfos(ctx context.Context) ([]models.TableInfo, error) {
	return m.listFn(ctx)
}

func (m *mockTableService) DescribeTable(ctx context.Context, table string) (*models.TableSchema, error) {
	return m.describeFn(ctx, table)
}

// mockAuditRepo implements api.AuditRepository for testing.
type mockAuditRepo struct {
	queryFn func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
}

func (m *mockAuditRepo) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.queryFn(ctx, opts)
}

// mockAuditQueue records enqueued audit entries.
type mockAuditQueue struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *mockAuditQueue) Enqueue(entry *models.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
}

func (m *mockAuditQueue) all() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditEntry(nil), m.entries...)
}

type mockHealth struct{ err error }

func (m *mockHealth) HealthCheck(context.Context) error { return m.err }

type mockSchema struct{ err error }

func (m *mockSchema) CountUsers(context.Context) (int, error) { return 1, m.err }

// mockUserLookup resolves fixed API keys.
type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) GetUserByAPIKey(_ context.Context, key string) (*models.User, error) {
	if u, ok := m.users[key]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}
