package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/repo"
)

// DefaultInitialTimeout bounds how long startup waits for the store's first
// snapshot before falling back to backup or seed data.
const DefaultInitialTimeout = 2 * time.Second

// Source tags where an initial trip came from.
type Source int

const (
	// FromBackend means the document store delivered data in time.
	FromBackend Source = iota
	// FromEmpty means the store answered in time but holds no document, and
	// the caller's fallback supplied the trip. This is the only source where
	// writing the fallback back to the store is safe.
	FromEmpty
	// FromTimeout means the store did not answer before the deadline and the
	// fallback supplied the trip. The store may still hold newer data, so
	// the late snapshot must be allowed to supersede the fallback.
	FromTimeout
)

func (s Source) String() string {
	switch s {
	case FromBackend:
		return "backend"
	case FromEmpty:
		return "empty"
	default:
		return "timeout"
	}
}

// InitialLoad is the outcome of the startup race between the store's first
// snapshot and the timeout.
type InitialLoad struct {
	Trip   *domain.Trip
	Source Source
}

// Adapter subscribes to document changes and translates raw documents into
// trips, resolving pointer documents through the gateway.
type Adapter struct {
	docs repo.DocumentStore
	gw   *gateway.Gateway
	log  *slog.Logger
}

func NewAdapter(docs repo.DocumentStore, gw *gateway.Gateway, log *slog.Logger) *Adapter {
	return &Adapter{docs: docs, gw: gw, log: log}
}

// Subscribe delivers every change of the trip document to onChange as a full
// trip, nil when the document is missing or deleted. Reconstitution failures
// also deliver nil so the caller can fall back rather than stall.
func (a *Adapter) Subscribe(ctx context.Context, tripID string, onChange func(*domain.Trip)) (func(), error) {
	unsubscribe, err := a.docs.Subscribe(ctx, tripID, func(doc json.RawMessage) {
		onChange(a.decode(ctx, tripID, doc))
	})
	if err != nil {
		return nil, fmt.Errorf("realtime.Adapter.Subscribe: %w", err)
	}
	return unsubscribe, nil
}

func (a *Adapter) decode(ctx context.Context, tripID string, doc json.RawMessage) *domain.Trip {
	if doc == nil {
		return nil
	}
	trip, err := a.gw.Reconstitute(ctx, doc)
	if err != nil {
		a.log.Error("reconstituting changed document failed", "trip_id", tripID, "error", err)
		return nil
	}
	return trip
}

// Start subscribes to the trip and races the subscription's initial snapshot
// against timeout. Whichever resolves first decides the returned InitialLoad;
// fallback supplies the trip when the store has nothing to offer. The
// subscription stays live either way: a late snapshot and all later changes
// flow to onChange, so a slow backend still wins eventually.
func (a *Adapter) Start(ctx context.Context, tripID string, timeout time.Duration, fallback func() *domain.Trip, onChange func(*domain.Trip)) (InitialLoad, func(), error) {
	if timeout <= 0 {
		timeout = DefaultInitialTimeout
	}

	var (
		mu      sync.Mutex
		settled bool
	)
	first := make(chan *domain.Trip, 1)

	unsubscribe, err := a.Subscribe(ctx, tripID, func(trip *domain.Trip) {
		mu.Lock()
		if !settled {
			settled = true
			// Buffered and only ever sent once, so holding the lock across
			// the send is safe. Sending after unlocking would let the
			// timeout path drain an empty channel and strand the snapshot.
			first <- trip
			mu.Unlock()
			return
		}
		mu.Unlock()
		onChange(trip)
	})
	if err != nil {
		return InitialLoad{}, nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case trip := <-first:
		if trip != nil {
			a.log.Info("initial trip loaded from store", "trip_id", tripID)
			return InitialLoad{Trip: trip, Source: FromBackend}, unsubscribe, nil
		}
		a.log.Info("store has no trip document, using fallback", "trip_id", tripID)
		return InitialLoad{Trip: fallback(), Source: FromEmpty}, unsubscribe, nil
	case <-timer.C:
		// The loser of the race is not dropped: mark settled so the late
		// snapshot goes through onChange like any other change. Settling and
		// draining happen under the same lock the subscription sends under,
		// so a snapshot can never slip between the two.
		mu.Lock()
		settled = true
		var late *domain.Trip
		var got bool
		select {
		case late = <-first:
			got = true
		default:
		}
		mu.Unlock()

		if got {
			// Snapshot squeaked in just before the timeout settled.
			if late != nil {
				return InitialLoad{Trip: late, Source: FromBackend}, unsubscribe, nil
			}
			return InitialLoad{Trip: fallback(), Source: FromEmpty}, unsubscribe, nil
		}
		a.log.Warn("store did not answer in time, using fallback", "trip_id", tripID, "timeout", timeout)
		return InitialLoad{Trip: fallback(), Source: FromTimeout}, unsubscribe, nil
	case <-ctx.Done():
		unsubscribe()
		return InitialLoad{}, nil, fmt.Errorf("realtime.Adapter.Start: %w", ctx.Err())
	}
}
