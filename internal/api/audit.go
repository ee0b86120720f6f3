package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/models"
)

// AuditHandler serves audit log endpoints.
type AuditHandler struct {
	repo AuditRepository
	log  *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(repo AuditRepository, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, log: log}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	opts := models.AuditQueryOpts{
		Action: c.Query("action"),
		Actor:  c.Query("actor"),
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseOffset(c.Query("offset")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")
			return
		}
		opts.Since = &t
	}

	entries, hasMore, err := h.repo.QueryAudit(c.Request.Context(), opts)
	if err != nil {
		h.log.WithError(err).Error("failed to query audit log")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query audit log")
		return
	}

	if entries == nil {
		entries = []models.AuditEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     entries,
		"has_more": hasMore,
	})
}
