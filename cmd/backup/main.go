// Package main is a one-shot snapshot job: it reads the trip document and
// writes one timestamped copy to the object store, pruning old snapshots.
// Run it from cron or a scheduler; the API server exposes the same job at
// POST /internal/backup.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/config"
	"github.com/pkordes/tripboard/backend/internal/repo"
	"github.com/pkordes/tripboard/backend/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required, snapshots read the stored document")
		os.Exit(1)
	}
	if !cfg.BlobConfigured() {
		logger.Error("object storage is required, snapshots are written to the blob store")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	blobs, err := blob.NewS3Store(ctx, cfg.S3, logger)
	if err != nil {
		logger.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}

	job := snapshot.NewJob(repo.NewPostgresStore(pool), blobs, cfg.SnapshotKeep, logger)
	url, err := job.Run(ctx, cfg.TripID)
	if err != nil {
		logger.Error("snapshot failed", "error", err, "trip_id", cfg.TripID)
		os.Exit(1)
	}
	logger.Info("snapshot written", "url", url, "trip_id", cfg.TripID)
}
