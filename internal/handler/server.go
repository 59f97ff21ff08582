// Package handler implements the HTTP surface of the Tripboard API.
// All handlers are methods on Server; they are split into files by concern
// (trip.go, entry.go, impex.go, ...) but share the struct so they can reach
// its dependencies. Handlers translate HTTP to service calls and back —
// no business logic lives here.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/metadata"
	"github.com/pkordes/tripboard/backend/internal/service"
)

// TripServicer defines the business operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without a store or service layer behind it.
type TripServicer interface {
	Trip() (*domain.Trip, error)
	Status() service.Status
	Hashtags() []domain.HashtagCount

	AddDay(title string) (domain.Day, error)
	UpdateDay(dayID string, upd domain.DayUpdate) (domain.Day, error)
	DeleteDay(ctx context.Context, dayID string) error
	MoveDay(from, to int) error

	AddEntry(ctx context.Context, dayID string, e domain.Entry) (domain.Entry, error)
	UpdateEntry(ctx context.Context, dayID string, e domain.Entry) (domain.Entry, error)
	DeleteEntry(ctx context.Context, dayID, entryID string) error
	MoveEntry(dayID string, from, to int) error
	ToggleReaction(dayID, entryID string, kind domain.ReactionKind) (domain.Reactions, error)

	Export() ([]byte, string, error)
	Import(data []byte) (*domain.Trip, error)
	UploadImage(ctx context.Context, dataURL, name string) (string, error)
}

// MetadataFetcher resolves URL previews for link entries.
type MetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string) metadata.Metadata
}

// SnapshotRunner takes one off-site snapshot of the trip document.
type SnapshotRunner interface {
	Run(ctx context.Context, tripID string) (string, error)
}

// TripWatcher feeds the websocket endpoint with trip changes.
type TripWatcher interface {
	Subscribe(ctx context.Context, tripID string, fn func(*domain.Trip)) (func(), error)
}

// Server holds the handlers' dependencies.
type Server struct {
	trips     TripServicer
	meta      MetadataFetcher
	snapshots SnapshotRunner
	watcher   TripWatcher

	tripID      string
	backupToken string
}

// NewServer constructs the Server with all its dependencies. meta, snapshots,
// and watcher may be nil; the corresponding endpoints then report 503.
func NewServer(trips TripServicer, meta MetadataFetcher, snapshots SnapshotRunner, watcher TripWatcher, tripID, backupToken string) *Server {
	return &Server{
		trips:       trips,
		meta:        meta,
		snapshots:   snapshots,
		watcher:     watcher,
		tripID:      tripID,
		backupToken: backupToken,
	}
}

// Routes registers all endpoints on a fresh router. Cross-cutting middleware
// (request IDs, logging, CORS, body limits) is wired in main.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	r.Route("/trip", func(r chi.Router) {
		r.Get("/", s.GetTrip)
		r.Get("/status", s.GetStatus)
		r.Get("/hashtags", s.GetHashtags)
		r.Get("/export", s.GetExport)
		r.Post("/import", s.PostImport)
		r.Get("/watch", s.WatchTrip)

		r.Route("/days", func(r chi.Router) {
			r.Post("/", s.CreateDay)
			r.Post("/move", s.MoveDay)
			r.Route("/{dayID}", func(r chi.Router) {
				r.Patch("/", s.UpdateDay)
				r.Delete("/", s.DeleteDay)

				r.Route("/entries", func(r chi.Router) {
					r.Post("/", s.CreateEntry)
					r.Post("/move", s.MoveEntry)
					r.Put("/{entryID}", s.UpdateEntry)
					r.Delete("/{entryID}", s.DeleteEntry)
					r.Post("/{entryID}/reactions", s.ToggleReaction)
				})
			})
		})
	})

	r.Get("/metadata", s.GetMetadata)
	r.Post("/uploads/images", s.UploadImage)
	r.Post("/internal/backup", s.RunBackup)

	return r
}
