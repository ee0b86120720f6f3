package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/waleedsbi/atm-master/internal/middleware"
	"github.com/waleedsbi/atm-master/internal/models"
)

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 1000

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

// maxTableNameLen is the SQL Server identifier limit.
const maxTableNameLen = 128

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}

// validateTableName checks that a table name is non-empty and fits a
// SQL Server identifier.
func validateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if len([]rune(name)) > maxTableNameLen {
		return fmt.Errorf("table name exceeds %d characters", maxTableNameLen)
	}
	return nil
}

// splitTables parses a comma-separated table list, dropping blanks.
func splitTables(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}

	return out
}

// parseTableSelection reads the restore form's tables field: a JSON array
// of names, or a comma-separated list. Empty means every table.
func parseTableSelection(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if !strings.HasPrefix(s, "[") {
		return splitTables(s), nil
	}

	var tables []string
	if err := json.Unmarshal([]byte(s), &tables); err != nil {
		return nil, fmt.Errorf("tables must be a JSON array of names: %w", err)
	}

	return tables, nil
}

func validateTables(tables []string) error {
	for _, t := range tables {
		if err := validateTableName(t); err != nil {
			return err
		}
	}
	return nil
}

// actor returns the username of the authenticated caller.
func actor(c *gin.Context) string {
	if u := middleware.CurrentUser(c); u != nil {
		return u.Username
	}
	return ""
}

// enqueueAudit records an audit entry without blocking the request.
func enqueueAudit(q AuditEnqueuer, c *gin.Context, action, summary string, success bool, detail map[string]any) {
	if q == nil {
		return
	}

	if rid := c.GetString(middleware.RequestIDKey); rid != "" {
		if detail == nil {
			detail = map[string]any{}
		}
		detail["request_id"] = rid
	}

	q.Enqueue(&models.AuditEntry{
		Action:  action,
		Actor:   actor(c),
		Summary: summary,
		Success: success,
		Detail:  detail,
	})
}
