// Package api provides the HTTP handlers of the ATM Master backup service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/ws"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db        HealthChecker
	schema    SchemaChecker
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	database  string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. db, schema and hub may be nil.
func NewHealthHandler(db HealthChecker, schema SchemaChecker, hub *ws.Hub, log *logrus.Logger, version, database string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		schema:    schema,
		hub:       hub,
		log:       log,
		version:   version,
		database:  database,
		startTime: time.Now(),
	}
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	DatabaseName  string  `json:"database_name,omitempty"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health. A failed database ping is reported
// but does not fail liveness.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		DatabaseName:  h.database,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.db == nil {
		resp.Database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready: the database must answer and the
// service tables must exist.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{"database": "ok", "schema": "ok"}
	status, code := "ready", http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.db == nil {
		checks["database"] = "not_configured"
	} else if err := h.db.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
	}

	switch {
	case checks["database"] != "ok":
		checks["schema"] = "unknown"
	case h.schema != nil:
		if _, err := h.schema.CountUsers(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			checks["schema"] = "error"
		}
	}

	for _, v := range checks {
		if v != "ok" {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, readinessResponse{Status: status, Checks: checks})
}
