package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/middleware"
	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Hub         *ws.Hub
	DB          HealthChecker
	Schema      SchemaChecker
	Backup      BackupRepository
	Tables      TableRepository
	Audit       AuditRepository
	AuditLog    AuditEnqueuer
	Users       middleware.UserLookup
	CORSOrigins []string
	Version     string
	Database    string

	// MaxUploadBytes limits the restore upload; other bodies get maxBodySize.
	MaxUploadBytes int64
}

// Router-level limits.
const (
	maxBodySize = 1 << 20 // 1 MB
	rateLimit   = 50      // requests per second per IP
	rateBurst   = 100     // token bucket burst size

	restorePath = "/api/v1/database/restore"
)

func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.Logger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize, map[string]int64{restorePath: deps.MaxUploadBytes}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
}

func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.DB, deps.Schema, deps.Hub, log, deps.Version, deps.Database)
	backup := NewBackupHandler(deps.Backup, deps.AuditLog, log)
	tables := NewTableHandler(deps.Tables, log)
	audit := NewAuditHandler(deps.Audit, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	users := middleware.NewCachedUserLookup(ctx, deps.Users)
	api.Use(middleware.AuthMiddleware(users, log))

	read := middleware.RequirePermission(models.PermDatabaseRead)
	canBackup := middleware.RequirePermission(models.PermDatabaseBackup)
	canRestore := middleware.RequirePermission(models.PermDatabaseRestore)

	db := api.Group("/database")
	db.GET("/tables", read, tables.List)
	db.GET("/tables/:name", read, tables.Describe)
	db.GET("/backup", canBackup, backup.Download)
	db.POST("/backup", canBackup, backup.Create)
	db.POST("/restore", canRestore, backup.Restore)

	api.GET("/audit", middleware.RequirePermission(models.PermAuditRead), audit.Query)

	if deps.Hub != nil {
		api.GET("/ws", read, wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, users))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}

// NewMetricsRouter serves Prometheus metrics on their own listener.
func NewMetricsRouter() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
