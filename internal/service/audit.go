package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/models"
)

// Auditor records audit entries.
type Auditor = domain.Auditor

// AuditQueryStore is the data-access interface AuditService depends on.
// It reuses domain.AuditService since the method sets are identical, avoiding duplication.
type AuditQueryStore = domain.AuditService

// Compile-time check: *AuditService must satisfy domain.AuditService.
var _ domain.AuditService = (*AuditService)(nil)

// AuditService wraps AuditQueryStore and mirrors every entry into the log.
type AuditService struct {
	store AuditQueryStore
	log   *logrus.Logger
}

// NewAuditService creates an AuditService.
func NewAuditService(store AuditQueryStore, log *logrus.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// RecordAudit writes an audit "line" to the log and persists the entry.
func (s *AuditService) RecordAudit(ctx context.Context, entry models.AuditEntry) error {
	s.log.WithFields(logrus.Fields{
		"action":  entry.Action,
		"actor":   entry.Actor,
		"success": entry.Success,
	}).Info("audit: " + entry.Summary)

	return s.store.RecordAudit(ctx, entry)
}

// QueryAudit returns audit entries matching the given filters (pass-through).
func (s *AuditService) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return s.store.QueryAudit(ctx, opts)
}
