package models

import "time"

// Audit actions recorded by the backup subsystem.
const (
	AuditActionBackup  = "database.backup"
	AuditActionRestore = "database.restore"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor,omitempty"`
	Summary   string         `json:"summary"`
	Success   bool           `json:"success"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditQueryOpts holds filters for querying the audit log.
type AuditQueryOpts struct {
	Action string
	Actor  string
	Since  *time.Time
	Limit  int
	Offset int
}
