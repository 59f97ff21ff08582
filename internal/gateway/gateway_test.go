package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/repo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func noteTrip(content string) *domain.Trip {
	return &domain.Trip{
		ID:        "t1",
		Title:     "Andalusien 2025",
		DateRange: "27. August - 11. September",
		StartDate: "2025-08-27",
		EndDate:   "2025-09-11",
		Days: []domain.Day{
			{
				ID:    "d1",
				Title: "Cádiz",
				Color: "orange",
				Entries: domain.Entries{
					&domain.NoteEntry{ID: "e1", Title: "Notizen", Content: content},
				},
			},
		},
	}
}

func TestSave_SmallDocumentWrittenAsIs(t *testing.T) {
	t.Parallel()

	docs := repo.NewMemoryStore()
	blobs := blob.NewMemoryStore()
	gw := gateway.New(docs, blobs, gateway.DefaultSizeCeiling, testLogger())
	ctx := context.Background()

	trip := noteTrip("<p>kurz</p>")
	res, err := gw.Save(ctx, trip)
	require.NoError(t, err)
	assert.False(t, res.OverCeiling)
	assert.False(t, res.Pointer)
	assert.Zero(t, res.Offloaded)
	assert.Zero(t, blobs.Len())

	got, err := gw.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, trip, got)
}

func TestSave_OffloadsLargestContentUntilUnderCeiling(t *testing.T) {
	t.Parallel()

	docs := repo.NewMemoryStore()
	blobs := blob.NewMemoryStore()
	// Ceiling chosen so only the oversized note pushes the document over.
	gw := gateway.New(docs, blobs, 2000, testLogger())
	ctx := context.Background()

	big := strings.Repeat("<p>sehr viel Text</p>", 200)
	trip := noteTrip(big)
	trip.Days[0].Entries = append(trip.Days[0].Entries,
		&domain.NoteEntry{ID: "e2", Content: "<p>klein</p>"})

	res, err := gw.Save(ctx, trip)
	require.NoError(t, err)
	assert.True(t, res.OverCeiling)
	assert.Equal(t, 1, res.Offloaded)
	assert.False(t, res.Pointer)
	assert.LessOrEqual(t, res.Size, 2000)

	doc, err := docs.Get(ctx, "t1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(doc), 2000)

	var stored domain.Trip
	require.NoError(t, json.Unmarshal(doc, &stored))
	offloaded := stored.Days[0].Entries[0].(*domain.NoteEntry)
	assert.Empty(t, offloaded.Content)
	require.NotEmpty(t, offloaded.ContentURL)

	// The blob holds the original content; the small sibling stayed inline.
	body, err := blobs.Fetch(ctx, offloaded.ContentURL)
	require.NoError(t, err)
	assert.Equal(t, big, string(body))
	small := stored.Days[0].Entries[1].(*domain.NoteEntry)
	assert.Equal(t, "<p>klein</p>", small.Content)
	assert.Empty(t, small.ContentURL)

	// The caller's in-memory trip is untouched.
	assert.Equal(t, big, trip.Days[0].Entries[0].(*domain.NoteEntry).Content)
}

func TestSave_FallsBackToPointerDocument(t *testing.T) {
	t.Parallel()

	docs := repo.NewMemoryStore()
	blobs := blob.NewMemoryStore()
	gw := gateway.New(docs, blobs, 600, testLogger())
	ctx := context.Background()

	// Day titles cannot be offloaded, so content offloading cannot help.
	trip := noteTrip("")
	trip.Days[0].Title = strings.Repeat("Cádiz und Umgebung ", 100)

	res, err := gw.Save(ctx, trip)
	require.NoError(t, err)
	assert.True(t, res.OverCeiling)
	assert.True(t, res.Pointer)
	assert.LessOrEqual(t, res.Size, 600)

	doc, err := docs.Get(ctx, "t1")
	require.NoError(t, err)

	payloadURL, ok := gateway.PayloadURL(doc)
	require.True(t, ok)
	assert.NotEmpty(t, payloadURL)

	var pointer struct {
		Title string            `json:"title"`
		Days  []json.RawMessage `json:"days"`
	}
	require.NoError(t, json.Unmarshal(doc, &pointer))
	assert.Equal(t, trip.Title, pointer.Title)
	assert.Empty(t, pointer.Days)

	// Reconstitution returns the full pre-offload trip.
	got, err := gw.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, trip, got)
}

func TestSave_PointerRetainsFullContentAfterPartialOffload(t *testing.T) {
	t.Parallel()

	docs := repo.NewMemoryStore()
	blobs := blob.NewMemoryStore()
	gw := gateway.New(docs, blobs, 500, testLogger())
	ctx := context.Background()

	big := strings.Repeat("x", 2000)
	trip := noteTrip(big)
	trip.Days[0].Title = strings.Repeat("Titel ", 200)

	res, err := gw.Save(ctx, trip)
	require.NoError(t, err)
	assert.True(t, res.Pointer)

	got, err := gw.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, big, got.Days[0].Entries[0].(*domain.NoteEntry).Content)
}

func TestSave_NoBlobStorageOverCeilingFails(t *testing.T) {
	t.Parallel()

	docs := repo.NewMemoryStore()
	gw := gateway.New(docs, blob.Unconfigured{}, 500, testLogger())

	trip := noteTrip(strings.Repeat("x", 2000))
	_, err := gw.Save(context.Background(), trip)
	assert.ErrorIs(t, err, domain.ErrDocumentTooLarge)

	// Nothing was written this cycle.
	_, err = docs.Get(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_MissingTrip(t *testing.T) {
	t.Parallel()

	gw := gateway.New(repo.NewMemoryStore(), blob.NewMemoryStore(), 0, testLogger())
	_, err := gw.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBlobs_RemovesReferencedObjects(t *testing.T) {
	t.Parallel()

	blobs := blob.NewMemoryStore()
	gw := gateway.New(repo.NewMemoryStore(), blobs, 0, testLogger())
	ctx := context.Background()

	imageURL, err := blobs.Upload(ctx, "images/1-a.jpg", []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	contentURL, err := blobs.Upload(ctx, "contents/1-e1.html", []byte("<p></p>"), "text/html; charset=utf-8")
	require.NoError(t, err)

	gw.DeleteBlobs(ctx, &domain.NoteEntry{ID: "e1", ImageURL: imageURL, ContentURL: contentURL})
	assert.Zero(t, blobs.Len())
}

func TestPayloadURL_RejectsRegularDocuments(t *testing.T) {
	t.Parallel()

	doc, err := json.Marshal(domain.SeedTrip())
	require.NoError(t, err)

	_, ok := gateway.PayloadURL(doc)
	assert.False(t, ok)
}
