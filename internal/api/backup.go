package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

// multipartMemory is how much of an upload is held in memory before the
// rest spills to a temporary file.
const multipartMemory = 32 << 20

// BackupHandler serves the backup and restore endpoints.
type BackupHandler struct {
	svc   BackupRepository
	audit AuditEnqueuer
	log   *logrus.Logger
}

// NewBackupHandler creates a BackupHandler. audit may be nil.
func NewBackupHandler(svc BackupRepository, audit AuditEnqueuer, log *logrus.Logger) *BackupHandler {
	return &BackupHandler{svc: svc, audit: audit, log: log}
}

// Download handles GET /api/v1/database/backup?tables=a,b.
func (h *BackupHandler) Download(c *gin.Context) {
	h.export(c, splitTables(c.Query("tables")))
}

// Create handles POST /api/v1/database/backup with an optional
// {"tables": [...]} body.
func (h *BackupHandler) Create(c *gin.Context) {
	var req models.BackupRequest

	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.reject(c, models.AuditActionBackup, http.StatusBadRequest, "invalid request body", "")
			return
		}
	}

	h.export(c, req.Tables)
}

func (h *BackupHandler) export(c *gin.Context, tables []string) {
	if err := validateTables(tables); err != nil {
		h.reject(c, models.AuditActionBackup, http.StatusBadRequest, err.Error(), "")
		return
	}

	doc, err := h.svc.Export(c.Request.Context(), tables)
	if err != nil {
		h.failed(c, models.AuditActionBackup, "backup", err, map[string]any{"tables": tables})
		return
	}

	failed := 0
	for _, name := range doc.Tables.Names() {
		if entry, _ := doc.Tables.Get(name); entry.Error != "" {
			failed++
		}
	}

	summary := fmt.Sprintf("Exported %d tables", doc.Tables.Len())
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}

	enqueueAudit(h.audit, c, models.AuditActionBackup, summary, true, map[string]any{
		"tables": doc.Tables.Len(),
		"failed": failed,
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backupFilename(doc)))
	c.JSON(http.StatusOK, doc)
}

func backupFilename(doc *models.SnapshotDocument) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, doc.Database)

	if name == "" {
		name = "database"
	}

	return fmt.Sprintf("atm-backup-%s-%s.json", name, doc.Timestamp.UTC().Format("20060102T150405Z"))
}

// Restore handles POST /api/v1/database/restore (multipart/form-data with
// file, mode and optional tables fields).
func (h *BackupHandler) Restore(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			h.reject(c, models.AuditActionRestore, http.StatusRequestEntityTooLarge, "backup file is too large", "")
			return
		}

		h.reject(c, models.AuditActionRestore, http.StatusBadRequest, "expected a multipart form with a backup file", "")
		return
	}

	policy, err := models.ParseConflictPolicy(c.PostForm("mode"))
	if err != nil {
		h.reject(c, models.AuditActionRestore, http.StatusBadRequest, err.Error(), "")
		return
	}

	tables, err := parseTableSelection(c.PostForm("tables"))
	if err == nil {
		err = validateTables(tables)
	}
	if err != nil {
		h.reject(c, models.AuditActionRestore, http.StatusBadRequest, err.Error(), "")
		return
	}

	doc, ok := h.readSnapshot(c)
	if !ok {
		return
	}

	// A restore is not abandoned halfway because the client went away.
	ctx := context.WithoutCancel(c.Request.Context())

	start := time.Now()

	out, err := h.svc.Restore(ctx, doc, policy, tables)
	if err != nil {
		h.failed(c, models.AuditActionRestore, "restore", err, map[string]any{"mode": policy, "tables": tables})
		return
	}

	enqueueAudit(h.audit, c, models.AuditActionRestore, out.Message(), true, map[string]any{
		"mode":             policy,
		"source_database":  doc.Database,
		"source_timestamp": doc.Timestamp,
		"failed_tables":    out.FailedTables,
		"errors":           out.Errors,
		"duration_ms":      time.Since(start).Milliseconds(),
	})

	c.JSON(http.StatusOK, models.NewRestoreResponse(out))
}

// readSnapshot decodes the uploaded snapshot file. It writes the error
// response itself and reports whether decoding succeeded.
func (h *BackupHandler) readSnapshot(c *gin.Context) (*models.SnapshotDocument, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.reject(c, models.AuditActionRestore, http.StatusBadRequest, "missing backup file", "")
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		h.failed(c, models.AuditActionRestore, "restore", fmt.Errorf("opening uploaded backup: %w", err), map[string]any{})
		return nil, false
	}
	defer f.Close()

	doc, err := models.DecodeSnapshot(f)
	if err != nil {
		h.reject(c, models.AuditActionRestore, http.StatusBadRequest, "invalid backup file", err.Error())
		return nil, false
	}

	return doc, true
}

// reject answers a request refused before the operation started. The
// refusal is audited as a failed operation.
func (h *BackupHandler) reject(c *gin.Context, action string, status int, message, details string) {
	detail := map[string]any{"status": status}
	if details != "" {
		detail["details"] = details
	}

	enqueueAudit(h.audit, c, action, "rejected: "+message, false, detail)

	if details != "" {
		respondErrorDetails(c, status, ErrCodeInvalidRequest, message, details)
		return
	}

	respondError(c, status, ErrCodeInvalidRequest, message)
}

// failed maps a service error to a response and records the failure.
func (h *BackupHandler) failed(c *gin.Context, action, op string, err error, detail map[string]any) {
	if errors.Is(err, models.ErrOperationInProgress) {
		respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}

	h.log.WithError(err).WithField("operation", op).Error(op + " failed")

	detail["error"] = err.Error()
	enqueueAudit(h.audit, c, action, op+" failed: "+err.Error(), false, detail)

	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, op+" failed")
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
