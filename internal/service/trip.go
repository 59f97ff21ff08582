// Package service contains the business logic for the Tripboard API.
// The trip service owns the in-memory trip, applies every mutation under a
// single lock, and drives the debounced save path. Handlers never touch the
// trip directly; persistence details stay behind the gateway.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkordes/tripboard/backend/internal/backup"
	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/realtime"
)

// TripService is the single writer of the in-memory trip. Remote changes
// arrive through the realtime adapter; local mutations go out through the
// write queue.
type TripService struct {
	tripID  string
	gw      *gateway.Gateway
	backups *backup.Store
	adapter *realtime.Adapter
	blobs   entryBlobs
	opts    Options
	log     *slog.Logger

	queue       *realtime.WriteQueue
	unsubscribe func()

	mu      sync.RWMutex
	trip    *domain.Trip
	saveErr error

	// awaitRemote is set when startup fell back because the store was slow,
	// not empty. The first remote delivery then supersedes the fallback
	// instead of being treated as an echo of local state.
	awaitRemote bool
}

// Options collects the tuning knobs for NewTripService.
type Options struct {
	TripID         string
	WriteDelay     time.Duration
	InitialTimeout time.Duration
}

// NewTripService constructs the service. Call Start before serving requests.
func NewTripService(gw *gateway.Gateway, backups *backup.Store, adapter *realtime.Adapter, opts Options, log *slog.Logger) *TripService {
	s := &TripService{
		tripID:  opts.TripID,
		gw:      gw,
		backups: backups,
		adapter: adapter,
		blobs:   blob.Unconfigured{},
		opts:    opts,
		log:     log,
	}
	s.queue = realtime.NewWriteQueue(opts.WriteDelay, s.performSave, s.recordSaveError, log)
	return s
}

// Start loads the initial trip and begins listening for remote changes.
// The store gets InitialTimeout to answer; after that the local fallback
// chain decides: large backup, unexpired normal backup, seed data. Only a
// store that answered and was empty gets the fallback written back; a store
// that was merely slow may hold real data, so the write-back waits for the
// late snapshot to tell the two apart.
func (s *TripService) Start(ctx context.Context) error {
	initial, unsubscribe, err := s.adapter.Start(ctx, s.tripID, s.opts.InitialTimeout, s.fallbackTrip, s.applyRemote)
	if err != nil {
		return fmt.Errorf("service.TripService.Start: %w", err)
	}
	s.unsubscribe = unsubscribe

	s.mu.Lock()
	// A remote change delivered between the race settling and this point
	// already populated the trip; keep it over the initial result.
	superseded := s.trip != nil
	if !superseded {
		s.trip = initial.Trip
		s.awaitRemote = initial.Source == realtime.FromTimeout
	}
	s.mu.Unlock()

	s.log.Info("trip service started",
		"trip_id", s.tripID, "source", initial.Source.String())

	if initial.Source == realtime.FromEmpty && !superseded {
		s.queue.Notify()
	}
	return nil
}

// Close flushes any pending write and stops the queue and subscription.
func (s *TripService) Close(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	err := s.queue.Flush(ctx)
	s.queue.Close()
	if err != nil {
		return fmt.Errorf("service.TripService.Close: %w", err)
	}
	return nil
}

// fallbackTrip is consulted when the store has nothing usable: local backups
// first, then the demo seed.
func (s *TripService) fallbackTrip() *domain.Trip {
	if trip, err := s.backups.Restore(); err == nil {
		s.log.Info("initial trip restored from local backup", "trip_id", trip.ID)
		return trip
	}
	s.log.Info("no usable backup, starting from seed data")
	return domain.SeedTrip()
}

// applyRemote folds a remote change into local state. Local edits win: while
// a save is scheduled or in flight the local trip is ahead of the store, and
// accepting the echo would roll the user back. The one exception is the
// first delivery after a timeout fallback, which carries the store's real
// state rather than an echo and supersedes the fallback even when edits made
// on top of the fallback are pending.
func (s *TripService) applyRemote(trip *domain.Trip) {
	s.mu.Lock()
	await := s.awaitRemote
	s.awaitRemote = false
	s.mu.Unlock()

	if trip == nil {
		if await {
			// The slow store turned out to be empty after all: run the
			// write-back that the timeout path held off.
			s.log.Info("late snapshot shows an empty store, scheduling write-back", "trip_id", s.tripID)
			s.queue.Notify()
		}
		return
	}
	if !await && s.queue.State() != realtime.QueueIdle {
		s.log.Debug("ignoring remote change, local edits pending", "trip_id", s.tripID)
		return
	}

	s.mu.Lock()
	s.trip = trip
	s.mu.Unlock()
	s.log.Debug("remote change applied", "trip_id", s.tripID)
}

// performSave is the write queue's work function.
func (s *TripService) performSave(ctx context.Context) error {
	snapshot, err := s.Trip()
	if err != nil {
		return fmt.Errorf("service.TripService.performSave: %w", err)
	}

	res, err := s.gw.Save(ctx, snapshot)
	if res.OverCeiling {
		// Keep the full pre-offload document recoverable, whatever happens
		// to the primary write.
		if berr := s.backups.WriteLarge(snapshot); berr != nil {
			s.log.Error("large backup failed", "error", berr)
		}
	}
	if err != nil {
		return fmt.Errorf("service.TripService.performSave: %w", err)
	}

	s.setSaveErr(nil)
	if berr := s.backups.WriteNormal(snapshot); berr != nil {
		s.log.Error("normal backup failed", "error", berr)
	}
	if !res.OverCeiling {
		// The trip fits again; a leftover large slot would shadow fresher
		// normal backups on the next restore.
		if berr := s.backups.ClearLarge(); berr != nil {
			s.log.Warn("clearing large backup failed", "error", berr)
		}
	}
	return nil
}

func (s *TripService) recordSaveError(err error) {
	s.setSaveErr(err)
}

func (s *TripService) setSaveErr(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// Status reports the save pipeline's state for the status endpoint.
type Status struct {
	TripID    string `json:"tripId"`
	Queue     string `json:"queue"`
	SaveError string `json:"saveError,omitempty"`
}

func (s *TripService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{TripID: s.tripID, Queue: s.queue.State().String()}
	if s.saveErr != nil {
		st.SaveError = s.saveErr.Error()
	}
	return st
}

// Trip returns a deep copy of the current trip.
func (s *TripService) Trip() (*domain.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, err := s.trip.Clone()
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Trip: %w", err)
	}
	return trip, nil
}

// mutate runs fn against the live trip under the write lock and schedules
// the debounced save when fn reports a change.
func (s *TripService) mutate(fn func(t *domain.Trip) error) error {
	s.mu.Lock()
	err := fn(s.trip)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.queue.Notify()
	return nil
}

// AddDay appends a new station and returns it.
func (s *TripService) AddDay(title string) (domain.Day, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Day{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	var day domain.Day
	err := s.mutate(func(t *domain.Trip) error {
		day = t.AddDay(title)
		return nil
	})
	if err != nil {
		return domain.Day{}, fmt.Errorf("service.TripService.AddDay: %w", err)
	}
	return day, nil
}

// UpdateDay applies a partial update to a station.
// Returns domain.ErrNotFound if the station does not exist.
func (s *TripService) UpdateDay(dayID string, upd domain.DayUpdate) (domain.Day, error) {
	var day domain.Day
	err := s.mutate(func(t *domain.Trip) error {
		if !t.UpdateDay(dayID, upd) {
			return fmt.Errorf("%w: day %q", domain.ErrNotFound, dayID)
		}
		day = *t.FindDay(dayID)
		return nil
	})
	if err != nil {
		return domain.Day{}, fmt.Errorf("service.TripService.UpdateDay: %w", err)
	}
	return day, nil
}

// DeleteDay removes a station and best-effort deletes the blobs its entries
// reference. Returns domain.ErrNotFound if the station does not exist.
func (s *TripService) DeleteDay(ctx context.Context, dayID string) error {
	var removed domain.Day
	err := s.mutate(func(t *domain.Trip) error {
		day, ok := t.DeleteDay(dayID)
		if !ok {
			return fmt.Errorf("%w: day %q", domain.ErrNotFound, dayID)
		}
		removed = day
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.TripService.DeleteDay: %w", err)
	}

	for _, e := range removed.Entries {
		s.gw.DeleteBlobs(ctx, e)
	}
	return nil
}

// MoveDay reorders stations. Out-of-range target indexes clamp to the
// nearest end, matching drag-and-drop behavior.
func (s *TripService) MoveDay(from, to int) error {
	err := s.mutate(func(t *domain.Trip) error {
		t.MoveDay(from, to)
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.TripService.MoveDay: %w", err)
	}
	return nil
}

// Hashtags returns the trip-wide hashtag counts.
func (s *TripService) Hashtags() []domain.HashtagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trip.Hashtags()
}
