package service

import (
	"context"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/models"
)

// tableStore is the catalog interface consumed by TableService.
type tableStore interface {
	TableInfos(ctx context.Context) ([]models.TableInfo, error)
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
}

// Compile-time check: *TableService must satisfy domain.TableService.
var _ domain.TableService = (*TableService)(nil)

// TableService backs the read-only table browser.
type TableService struct {
	store tableStore
}

// NewTableService creates a TableService.
func NewTableService(store tableStore) *TableService {
	return &TableService{store: store}
}

// ListTableInfos returns every table with its row count.
func (s *TableService) ListTableInfos(ctx context.Context) ([]models.TableInfo, error) {
	return s.store.TableInfos(ctx)
}

// DescribeTable returns the live schema of one table.
func (s *TableService) DescribeTable(ctx context.Context, table string) (*models.TableSchema, error) {
	return s.store.DescribeTable(ctx, table)
}
