// Package snapshot implements the scheduled off-site backup: read the
// current trip document, write it to blob storage under a timestamped key,
// and prune old snapshots down to a retention count.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/repo"
)

// DefaultKeep is how many snapshots per trip survive pruning.
const DefaultKeep = 48

type Job struct {
	docs  repo.DocumentStore
	blobs blob.Store
	keep  int
	log   *slog.Logger
}

func NewJob(docs repo.DocumentStore, blobs blob.Store, keep int, log *slog.Logger) *Job {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Job{docs: docs, blobs: blobs, keep: keep, log: log}
}

func snapshotPrefix(tripID string) string {
	return fmt.Sprintf("backups/trips/%s/", tripID)
}

// Run takes one snapshot of the trip document and prunes old ones. Returns
// the URL of the new snapshot. Pruning failures are logged, not returned:
// the snapshot itself already succeeded.
func (j *Job) Run(ctx context.Context, tripID string) (string, error) {
	doc, err := j.docs.Get(ctx, tripID)
	if err != nil {
		return "", fmt.Errorf("snapshot.Job.Run: %w", err)
	}

	// Millisecond keys are fixed-width until the year 2286, so lexicographic
	// order is chronological order.
	key := fmt.Sprintf("%s%d.json", snapshotPrefix(tripID), time.Now().UnixMilli())
	url, err := j.blobs.Upload(ctx, key, doc, "application/json")
	if err != nil {
		return "", fmt.Errorf("snapshot.Job.Run: %w", err)
	}
	j.log.Info("snapshot written", "trip_id", tripID, "key", key, "bytes", len(doc))

	j.prune(ctx, tripID)
	return url, nil
}

func (j *Job) prune(ctx context.Context, tripID string) {
	keys, err := j.blobs.List(ctx, snapshotPrefix(tripID))
	if err != nil {
		j.log.Warn("listing snapshots for pruning failed", "trip_id", tripID, "error", err)
		return
	}
	if len(keys) <= j.keep {
		return
	}

	for _, key := range keys[:len(keys)-j.keep] {
		if err := j.blobs.Delete(ctx, j.blobs.URL(key)); err != nil {
			j.log.Warn("pruning snapshot failed", "key", key, "error", err)
			continue
		}
		j.log.Debug("pruned snapshot", "key", key)
	}
}
