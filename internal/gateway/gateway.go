// Package gateway wraps every write to the primary document store with the
// size-aware persistence strategy: clean the document, measure it, offload
// the largest content fields to blob storage when it exceeds the ceiling,
// and fall back to a pointer document when offloading is not enough. It also
// owns the read path that reverses the pointer indirection.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/repo"
)

// DefaultSizeCeiling is 95% of the 1 MiB per-document limit of the backing
// store, leaving margin for metadata overhead.
const DefaultSizeCeiling = 996147

// SaveResult reports what a save cycle did. The service layer uses
// OverCeiling to decide whether to take a large local backup.
type SaveResult struct {
	// Size is the serialized size of the primary document that was written.
	Size int

	// OverCeiling is true when the cleaned document exceeded the ceiling
	// before any offloading.
	OverCeiling bool

	// Offloaded counts content fields moved to blob storage this cycle.
	Offloaded int

	// Pointer is true when the primary document was written as a pointer
	// document.
	Pointer bool
}

type Gateway struct {
	docs    repo.DocumentStore
	blobs   blob.Store
	ceiling int
	log     *slog.Logger
}

func New(docs repo.DocumentStore, blobs blob.Store, ceiling int, log *slog.Logger) *Gateway {
	if ceiling <= 0 {
		ceiling = DefaultSizeCeiling
	}
	return &Gateway{docs: docs, blobs: blobs, ceiling: ceiling, log: log}
}

// Save writes trip to the primary store, guaranteeing the written document
// stays under the size ceiling. The caller's trip is never mutated: all
// offloading happens on a private copy. On error nothing was written this
// cycle; the in-memory trip stands and the next save retries from it.
func (g *Gateway) Save(ctx context.Context, trip *domain.Trip) (SaveResult, error) {
	var res SaveResult

	cleaned, err := cleanTrip(trip)
	if err != nil {
		return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
	}
	res.Size = len(cleaned)

	if res.Size <= g.ceiling {
		if err := g.docs.Set(ctx, trip.ID, cleaned); err != nil {
			return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
		}
		return res, nil
	}

	res.OverCeiling = true
	g.log.Warn("trip document over size ceiling, offloading content",
		"trip_id", trip.ID, "size", res.Size, "ceiling", g.ceiling)

	// Offloading mutates entries, so work on a copy and keep the original
	// cleaned form around: it becomes the payload if we end up writing a
	// pointer document, so a reconstituted trip loses nothing.
	work, err := trip.Clone()
	if err != nil {
		return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
	}

	doc, size, offloaded := g.offloadContent(ctx, work, res.Size)
	res.Offloaded = offloaded
	res.Size = size

	if size <= g.ceiling {
		if doc == nil {
			return res, fmt.Errorf("gateway.Gateway.Save: %w", domain.ErrDocumentTooLarge)
		}
		if err := g.docs.Set(ctx, trip.ID, doc); err != nil {
			return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
		}
		return res, nil
	}

	// Last resort: park the full payload in blob storage and write a
	// minimal pointer document, which fits by construction.
	payloadURL, err := g.blobs.Upload(ctx, blob.PayloadKey(trip.ID), cleaned, "application/json")
	if err != nil {
		return res, fmt.Errorf("gateway.Gateway.Save: payload upload: %w: %w", err, domain.ErrDocumentTooLarge)
	}

	pointer, err := json.Marshal(newPointerDocument(trip, payloadURL))
	if err != nil {
		return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
	}
	if err := g.docs.Set(ctx, trip.ID, pointer); err != nil {
		return res, fmt.Errorf("gateway.Gateway.Save: %w", err)
	}

	res.Pointer = true
	res.Size = len(pointer)
	g.log.Info("trip written as pointer document",
		"trip_id", trip.ID, "payload_url", payloadURL)
	return res, nil
}

// offloadContent moves content fields to blob storage largest-first until the
// document fits or candidates run out. Individual upload failures skip that
// candidate; an unconfigured blob store aborts the pass entirely. Returns the
// latest serialized document, its size, and how many fields were offloaded.
func (g *Gateway) offloadContent(ctx context.Context, trip *domain.Trip, size int) (json.RawMessage, int, int) {
	type candidate struct {
		id      string
		content *string
		url     *string
	}

	var candidates []candidate
	for i := range trip.Days {
		for _, e := range trip.Days[i].Entries {
			content, contentURL, ok := domain.ContentFields(e)
			if !ok || *content == "" || *contentURL != "" {
				continue
			}
			candidates = append(candidates, candidate{id: e.EntryID(), content: content, url: contentURL})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return len(*candidates[i].content) > len(*candidates[j].content)
	})

	var (
		doc       json.RawMessage
		offloaded int
	)
	for _, c := range candidates {
		if size <= g.ceiling {
			break
		}

		url, err := g.blobs.Upload(ctx, blob.TextKey(c.id+".html"), []byte(*c.content), "text/html; charset=utf-8")
		if errors.Is(err, domain.ErrStorageUnavailable) {
			g.log.Warn("no blob storage configured, cannot offload content", "trip_id", trip.ID)
			break
		}
		if err != nil {
			g.log.Warn("content offload failed, skipping field", "entry_id", c.id, "error", err)
			continue
		}

		*c.url = url
		*c.content = ""
		offloaded++

		next, err := cleanTrip(trip)
		if err != nil {
			g.log.Error("reserializing after offload failed", "trip_id", trip.ID, "error", err)
			break
		}
		doc, size = next, len(next)
	}

	return doc, size, offloaded
}

// Load reads and, if necessary, reconstitutes the trip document.
func (g *Gateway) Load(ctx context.Context, tripID string) (*domain.Trip, error) {
	doc, err := g.docs.Get(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("gateway.Gateway.Load: %w", err)
	}
	trip, err := g.Reconstitute(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("gateway.Gateway.Load: %w", err)
	}
	return trip, nil
}

// Reconstitute turns a primary-store document into a full trip, fetching the
// external payload when the document is a pointer document.
func (g *Gateway) Reconstitute(ctx context.Context, doc json.RawMessage) (*domain.Trip, error) {
	payloadURL, ok := PayloadURL(doc)
	if !ok {
		return DecodeTrip(doc)
	}

	payload, err := g.blobs.Fetch(ctx, payloadURL)
	if err != nil {
		return nil, fmt.Errorf("gateway.Gateway.Reconstitute: fetch payload: %w", err)
	}
	return DecodeTrip(payload)
}

// DeleteBlobs best-effort deletes every blob an entry references. Failures
// are logged and swallowed: a dangling blob is cheaper than a failed entry
// deletion.
func (g *Gateway) DeleteBlobs(ctx context.Context, e domain.Entry) {
	for _, url := range domain.BlobRefs(e) {
		if err := g.blobs.Delete(ctx, url); err != nil && !errors.Is(err, domain.ErrStorageUnavailable) {
			g.log.Warn("blob deletion failed", "entry_id", e.EntryID(), "url", url, "error", err)
		}
	}
}

func cleanTrip(trip *domain.Trip) (json.RawMessage, error) {
	raw, err := json.Marshal(trip)
	if err != nil {
		return nil, err
	}
	return CleanDocument(raw)
}
