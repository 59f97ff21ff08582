// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/tripboard/backend/internal/backup"
	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/metadata"
	"github.com/pkordes/tripboard/backend/internal/realtime"
	"github.com/pkordes/tripboard/backend/internal/snapshot"
)

// Config holds all configuration values for the API server and the backup
// job. Values are populated by Load from environment variables.
//
// DATABASE_URL and the S3 settings are optional on purpose: without a
// database the server runs on an in-memory document store, and without S3 it
// skips content offloading. That demo mode is a feature, not a degradation
// to guard against.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Empty selects the
	// in-memory document store (demo mode).
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// TripID is the document id of the single trip this deployment serves.
	TripID string

	// S3 object storage. All four must be set together; an empty endpoint
	// with empty bucket disables blob storage.
	S3 blob.S3Config

	// SizeCeiling is the maximum serialized size of a primary document.
	SizeCeiling int

	// WriteDelay is the debounce quiet period before a remote write.
	WriteDelay time.Duration

	// InitialTimeout bounds the startup wait for the store's first snapshot.
	InitialTimeout time.Duration

	// BackupDir is where local backup slots live.
	BackupDir string

	// BackupRetention is how long a normal local backup stays restorable.
	BackupRetention time.Duration

	// SnapshotKeep is how many blob-store snapshots survive pruning.
	SnapshotKeep int

	// SnapshotInterval runs the snapshot job in-process on a ticker.
	// Zero disables it; use cmd/backup or the endpoint instead.
	SnapshotInterval time.Duration

	// BackupToken guards the snapshot trigger endpoint. Empty disables the
	// check.
	BackupToken string

	// MetadataTimeout bounds one URL metadata fetch.
	MetadataTimeout time.Duration

	// JWTSecret verifies optional identity tokens. Empty disables identity
	// entirely; requests then proceed anonymously.
	JWTSecret string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error when a variable is set to an unparseable value; unset
// variables fall back to defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		TripID:      getEnv("TRIP_ID", "andalusien-2025"),
		S3: blob.S3Config{
			Region:       getEnv("S3_REGION", "us-east-1"),
			BaseEndpoint: os.Getenv("S3_ENDPOINT"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			Bucket:       os.Getenv("S3_BUCKET"),
		},
		BackupDir:   getEnv("BACKUP_DIR", "./data/backups"),
		BackupToken: os.Getenv("BACKUP_TOKEN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.SizeCeiling, err = getIntEnv("SIZE_CEILING", gateway.DefaultSizeCeiling); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotKeep, err = getIntEnv("SNAPSHOT_KEEP", snapshot.DefaultKeep); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotInterval, err = getDurationEnv("SNAPSHOT_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.WriteDelay, err = getDurationEnv("WRITE_DELAY", realtime.DefaultWriteDelay); err != nil {
		return Config{}, err
	}
	if cfg.InitialTimeout, err = getDurationEnv("INITIAL_TIMEOUT", realtime.DefaultInitialTimeout); err != nil {
		return Config{}, err
	}
	if cfg.BackupRetention, err = getDurationEnv("BACKUP_RETENTION", backup.DefaultRetention); err != nil {
		return Config{}, err
	}
	if cfg.MetadataTimeout, err = getDurationEnv("METADATA_TIMEOUT", metadata.DefaultTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// BlobConfigured reports whether object storage settings are present.
func (c Config) BlobConfigured() bool {
	return c.S3.Bucket != ""
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
