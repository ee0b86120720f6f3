package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/waleedsbi/atm-master/internal/api"
	"github.com/waleedsbi/atm-master/internal/config"
	"github.com/waleedsbi/atm-master/internal/db"
	"github.com/waleedsbi/atm-master/internal/db/migrations"
	"github.com/waleedsbi/atm-master/internal/dbpool"
	"github.com/waleedsbi/atm-master/internal/service"
	"github.com/waleedsbi/atm-master/internal/store"
	"github.com/waleedsbi/atm-master/internal/ws"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log, !skipMigrations)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")

	return cmd
}

func openPool(ctx context.Context, cfg *config.Config) (*dbpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return dbpool.NewPool(connectCtx, cfg.DatabaseURL.Value(), dbpool.Options{
		MaxConns: cfg.DBMaxConns,
		Database: cfg.DatabaseName,
	})
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger, migrate bool) error {
	log.WithFields(logrus.Fields{
		"version":  versionString(),
		"database": cfg.DatabaseName,
		"schema":   cfg.Schema,
	}).Info("starting atm-server")

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
			return err
		}
	}

	schemaVersion, err := db.SchemaVersion(ctx, pool, migrations.FS)
	if err != nil {
		log.WithError(err).Warn("could not read schema version; snapshots will omit it")
	}

	base := store.Base{Pool: pool, Log: log, Schema: cfg.Schema}
	catalog := store.NewSchemaStore(base)
	users := store.NewUserStore(base)

	hub := ws.NewHub(log)

	backup := service.NewBackupService(catalog, store.NewExportStore(base), store.NewRestoreStore(base), log, service.BackupOptions{
		Database:      cfg.DatabaseName,
		SchemaVersion: schemaVersion,
		AppVersion:    config.Version,
		RowErrorLimit: cfg.RowErrorLimit,
		Notifier:      hub,
	})

	audit := service.NewAuditService(store.NewAuditStore(base), log)
	auditWorker := service.NewAuditWorker(audit, log, cfg.AuditQueue)

	g, gctx := errgroup.WithContext(ctx)

	// The audit worker outlives the HTTP servers so entries enqueued by
	// in-flight requests are still written.
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	router := api.NewRouter(gctx, &api.RouterDeps{
		Log:            log,
		Hub:            hub,
		DB:             pool,
		Schema:         users,
		Backup:         backup,
		Tables:         service.NewTableService(catalog),
		Audit:          audit,
		AuditLog:       auditWorker,
		Users:          users,
		CORSOrigins:    cfg.CORSOrigins,
		Version:        config.Version,
		Database:       cfg.DatabaseName,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	apiSrv := newHTTPServer(cfg.Addr(), router)
	metricsSrv := newHTTPServer(cfg.MetricsAddr(), api.NewMetricsRouter())

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		auditWorker.Run(workerCtx)
	}()

	g.Go(func() error { return listen(apiSrv, "api", log) })
	g.Go(func() error { return listen(metricsSrv, "metrics", log) })

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		// Restores run detached from the request; Shutdown waits for them
		// to answer before the pool is closed.
		return errors.Join(
			shutdownServer(shutdownCtx, apiSrv),
			shutdownServer(shutdownCtx, metricsSrv),
		)
	})

	err = g.Wait()

	stopWorker()
	<-workerDone

	if err != nil {
		return err
	}

	log.Info("atm-server stopped")
	return nil
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

func listen(srv *http.Server, name string, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{"listener": name, "addr": srv.Addr}).Info("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listener: %w", name, err)
	}

	return nil
}

func shutdownServer(ctx context.Context, srv *http.Server) error {
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down %s: %w", srv.Addr, err)
	}

	return nil
}
