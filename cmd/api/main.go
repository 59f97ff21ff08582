// Package main is the entry point for the Tripboard API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/pkordes/tripboard/backend/internal/backup"
	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/config"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/handler"
	"github.com/pkordes/tripboard/backend/internal/metadata"
	"github.com/pkordes/tripboard/backend/internal/middleware"
	"github.com/pkordes/tripboard/backend/internal/realtime"
	"github.com/pkordes/tripboard/backend/internal/repo"
	"github.com/pkordes/tripboard/backend/internal/service"
	"github.com/pkordes/tripboard/backend/internal/snapshot"
	"github.com/pkordes/tripboard/backend/migrations"
)

// maxBodyBytes bounds request bodies. Image uploads arrive base64-encoded in
// JSON, so the limit sits well above the raw image sizes we accept.
const maxBodyBytes = 12 << 20

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before the configured one exists.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Document store ---------------------------------------------------
	// With DATABASE_URL set the trip document lives in Postgres and change
	// notifications ride on LISTEN/NOTIFY. Without it everything is held in
	// memory (demo mode, state gone on restart).
	var docs repo.DocumentStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(context.Background()); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}

		if err := migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		docs = repo.NewPostgresStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory document store")
		docs = repo.NewMemoryStore()
	}

	// --- Blob storage -----------------------------------------------------
	var blobs blob.Store = blob.Unconfigured{}
	if cfg.BlobConfigured() {
		s3, err := blob.NewS3Store(context.Background(), cfg.S3, logger)
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		blobs = s3
		logger.Info("object storage configured", "bucket", cfg.S3.Bucket)
	} else {
		logger.Warn("object storage not configured, large documents cannot be offloaded")
	}

	// --- Persistence pipeline and trip service ----------------------------
	gw := gateway.New(docs, blobs, cfg.SizeCeiling, logger)
	adapter := realtime.NewAdapter(docs, gw, logger)
	backups := backup.NewStore(cfg.BackupDir, cfg.BackupRetention, logger)

	trips := service.NewTripService(gw, backups, adapter, service.Options{
		TripID:         cfg.TripID,
		WriteDelay:     cfg.WriteDelay,
		InitialTimeout: cfg.InitialTimeout,
	}, logger).WithBlobs(blobs)

	if err := trips.Start(context.Background()); err != nil {
		logger.Error("failed to start trip service", "error", err)
		os.Exit(1)
	}

	meta := metadata.NewFetcher(cfg.MetadataTimeout, logger)

	var snapshots handler.SnapshotRunner
	if cfg.BlobConfigured() {
		job := snapshot.NewJob(docs, blobs, cfg.SnapshotKeep, logger)
		snapshots = job

		if cfg.SnapshotInterval > 0 {
			go runSnapshotTicker(job, cfg.TripID, cfg.SnapshotInterval, logger)
		}
	}

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → Logger → Recoverer → CORS →
	// body limit → identity. Recoverer catches panics and returns HTTP 500
	// instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	// Identity runs before the logger so request lines carry the member name.
	r.Use(middleware.NewIdentityHandler([]byte(cfg.JWTSecret), logger))
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	srv := handler.NewServer(trips, meta, snapshots, adapter, cfg.TripID, cfg.BackupToken)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// No WriteTimeout: /trip/watch holds its connection open indefinitely.
	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr, "trip_id", cfg.TripID)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Flush the write queue so no debounced edit is lost on shutdown.
	if err := trips.Close(ctx); err != nil {
		logger.Error("trip service close error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// runSnapshotTicker runs the snapshot job on a fixed interval. Failures are
// logged and the ticker keeps going; the next tick retries.
func runSnapshotTicker(job *snapshot.Job, tripID string, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		url, err := job.Run(context.Background(), tripID)
		if err != nil {
			log.Error("scheduled snapshot failed", "error", err, "trip_id", tripID)
			continue
		}
		log.Info("scheduled snapshot written", "url", url, "trip_id", tripID)
	}
}

// migrate brings the schema up to date using the embedded migration files.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
