package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

// AuditStore provides data access for the AuditLogs table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// RecordAudit inserts an audit log entry.
func (s *AuditStore) RecordAudit(ctx context.Context, entry models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var detail sql.NullString

	if entry.Detail != nil {
		b, err := json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}

		detail = sql.NullString{String: string(b), Valid: true}
	}

	actor := sql.NullString{String: entry.Actor, Valid: entry.Actor != ""}

	_, err := s.Pool.ExecContext(ctx, `
		INSERT INTO AuditLogs (Action, Actor, Summary, Success, Detail)
		VALUES (@p1, @p2, @p3, @p4, @p5)`,
		entry.Action, actor, entry.Summary, entry.Success, detail,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// buildAuditFilter builds WHERE clause and args from AuditQueryOpts.
func buildAuditFilter(opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.Action != "" {
		conditions = append(conditions, "Action = @p"+strconv.Itoa(argIdx))
		args = append(args, opts.Action)
		argIdx++
	}
	if opts.Actor != "" {
		conditions = append(conditions, "Actor = @p"+strconv.Itoa(argIdx))
		args = append(args, opts.Actor)
		argIdx++
	}
	if opts.Since != nil {
		conditions = append(conditions, "CreatedAt >= @p"+strconv.Itoa(argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// QueryAudit returns audit entries matching the given filters, newest first.
// Returns entries, hasMore flag, and any error.
func (s *AuditStore) QueryAudit(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args, argIdx := buildAuditFilter(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := fmt.Sprintf(
		"SELECT Id, Action, Actor, Summary, Success, Detail, CreatedAt FROM AuditLogs %s ORDER BY CreatedAt DESC, Id DESC OFFSET @p%d ROWS FETCH NEXT @p%d ROWS ONLY",
		where, argIdx, argIdx+1,
	)
	args = append(args, opts.Offset, limit+1)

	entries, err := scanAuditRows(ctx, s.Pool, query, args, s.Log)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// scanAuditRows executes a query and scans audit entries from the result.
func scanAuditRows(ctx context.Context, q querier, query string, args []any, log *logrus.Logger) ([]models.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}

	for rows.Next() {
		var e models.AuditEntry
		var actor, detail sql.NullString

		if err := rows.Scan(&e.ID, &e.Action, &actor, &e.Summary, &e.Success, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.Actor = actor.String

		if detail.Valid {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				log.WithError(err).Warn("failed to unmarshal audit detail")
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log: %w", err)
	}

	return entries, nil
}
