package client

import (
	"time"

	"github.com/waleedsbi/atm-master/internal/models"
)

// Wire types shared with the server.
type (
	SnapshotDocument = models.SnapshotDocument
	RestoreResponse  = models.RestoreResponse
	TableInfo        = models.TableInfo
	TableSchema      = models.TableSchema
	AuditEntry       = models.AuditEntry
	ConflictPolicy   = models.ConflictPolicy
)

// Restore modes.
const (
	ModeMerge   = models.PolicyMerge
	ModeReplace = models.PolicyReplace
	ModeUpsert  = models.PolicyUpsert
)

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	DatabaseName  string  `json:"database_name,omitempty"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RestoreOptions selects the restore mode and tables.
type RestoreOptions struct {
	Mode   ConflictPolicy
	Tables []string
}

// AuditQueryOptions filters an audit query.
type AuditQueryOptions struct {
	Action string
	Actor  string
	Since  *time.Time
	Limit  int
	Offset int
}
