// Package backup keeps local snapshot files of the trip as a safety net for
// when the document store fails or returns nothing. Two independent slots
// exist: the normal slot is refreshed after every successful save cycle, the
// large slot is written when a save hits the size ceiling and preserves the
// full pre-offload document for manual recovery.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// DefaultRetention is how long a normal backup stays restorable. Older
// backups are cleared instead of restored, so a long absence cannot silently
// revive stale data.
const DefaultRetention = 7 * 24 * time.Hour

// Slot file names inside the backup directory.
const (
	NormalFile = "trip-backup.json"
	LargeFile  = "trip-backup-large.json"
)

// envelope is the on-disk form of one backup slot.
type envelope struct {
	SavedAt time.Time    `json:"savedAt"`
	Trip    *domain.Trip `json:"trip"`
}

type Store struct {
	dir       string
	retention time.Duration
	log       *slog.Logger
}

func NewStore(dir string, retention time.Duration, log *slog.Logger) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{dir: dir, retention: retention, log: log}
}

// WriteNormal refreshes the normal slot.
func (s *Store) WriteNormal(trip *domain.Trip) error {
	return s.write(NormalFile, trip)
}

// WriteLarge writes the large slot. It is only called on over-ceiling save
// cycles and intentionally never expires.
func (s *Store) WriteLarge(trip *domain.Trip) error {
	return s.write(LargeFile, trip)
}

func (s *Store) write(name string, trip *domain.Trip) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("backup.Store.write: %w", err)
	}

	data, err := json.Marshal(envelope{SavedAt: time.Now().UTC(), Trip: trip})
	if err != nil {
		return fmt.Errorf("backup.Store.write: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot corrupt the slot.
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("backup.Store.write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("backup.Store.write: %w", err)
	}

	s.log.Debug("backup slot written", "slot", name, "bytes", len(data))
	return nil
}

// Restore returns the most trustworthy local snapshot: the large slot first
// (most likely to hold data a size-constrained write dropped), then an
// unexpired normal slot. Returns domain.ErrNotFound when neither is usable.
func (s *Store) Restore() (*domain.Trip, error) {
	if trip, err := s.read(LargeFile); err == nil {
		s.log.Info("restoring from large backup slot")
		return trip, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("large backup slot unreadable", "error", err)
	}

	env, err := s.readEnvelope(NormalFile)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("normal backup slot unreadable", "error", err)
		}
		return nil, fmt.Errorf("backup.Store.Restore: %w", domain.ErrNotFound)
	}

	if time.Since(env.SavedAt) > s.retention {
		s.log.Info("normal backup expired, clearing", "saved_at", env.SavedAt)
		if err := os.Remove(filepath.Join(s.dir, NormalFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("clearing expired backup failed", "error", err)
		}
		return nil, fmt.Errorf("backup.Store.Restore: %w", domain.ErrNotFound)
	}

	s.log.Info("restoring from normal backup slot", "saved_at", env.SavedAt)
	return env.Trip, nil
}

// ClearLarge removes the large slot, typically after its contents made it
// into a successful save.
func (s *Store) ClearLarge() error {
	err := os.Remove(filepath.Join(s.dir, LargeFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("backup.Store.ClearLarge: %w", err)
	}
	return nil
}

func (s *Store) read(name string) (*domain.Trip, error) {
	env, err := s.readEnvelope(name)
	if err != nil {
		return nil, err
	}
	return env.Trip, nil
}

func (s *Store) readEnvelope(name string) (envelope, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return envelope{}, domain.ErrNotFound
	}
	if err != nil {
		return envelope{}, fmt.Errorf("backup.Store.readEnvelope: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("backup.Store.readEnvelope: %w", err)
	}
	if env.Trip == nil {
		return envelope{}, fmt.Errorf("backup.Store.readEnvelope: no trip in slot: %w", domain.ErrInvalidFormat)
	}
	return env, nil
}
