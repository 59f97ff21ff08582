package service_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripboard/backend/internal/backup"
	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/gateway"
	"github.com/pkordes/tripboard/backend/internal/realtime"
	"github.com/pkordes/tripboard/backend/internal/repo"
	"github.com/pkordes/tripboard/backend/internal/service"
)

type fixture struct {
	svc     *service.TripService
	docs    *repo.MemoryStore
	blobs   *blob.MemoryStore
	backups string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	docs := repo.NewMemoryStore()
	docs.SetInitialDelay(time.Millisecond)
	blobs := blob.NewMemoryStore()
	gw := gateway.New(docs, blobs, 0, log)
	adapter := realtime.NewAdapter(docs, gw, log)
	dir := t.TempDir()
	backups := backup.NewStore(dir, 0, log)

	svc := service.NewTripService(gw, backups, adapter, service.Options{
		TripID:         "andalusien-2025",
		WriteDelay:     10 * time.Millisecond,
		InitialTimeout: 500 * time.Millisecond,
	}, log).WithBlobs(blobs)

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, svc.Close(context.Background()))
	})

	return &fixture{svc: svc, docs: docs, blobs: blobs, backups: dir}
}

func (f *fixture) waitSaved(t *testing.T) {
	t.Helper()
	assert.Eventually(t, func() bool {
		_, err := f.docs.Get(context.Background(), "andalusien-2025")
		return err == nil && f.svc.Status().Queue == "idle"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStart_EmptyStoreSeedsAndWritesBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	trip, err := f.svc.Trip()
	require.NoError(t, err)
	assert.Equal(t, "Andalusien 2025", trip.Title)
	require.Len(t, trip.Days, 3)

	// The seeded trip converges into the store without any mutation.
	f.waitSaved(t)

	doc, err := f.docs.Get(context.Background(), "andalusien-2025")
	require.NoError(t, err)
	var stored domain.Trip
	require.NoError(t, json.Unmarshal(doc, &stored))
	assert.Equal(t, trip.Title, stored.Title)
}

func TestStart_RestoresFromLocalBackup(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dir := t.TempDir()
	backups := backup.NewStore(dir, 0, log)

	saved := domain.SeedTrip()
	saved.Title = "Andalusien 2025 (lokal)"
	require.NoError(t, backups.WriteNormal(saved))

	docs := repo.NewMemoryStore()
	docs.SetInitialDelay(time.Millisecond)
	gw := gateway.New(docs, blob.NewMemoryStore(), 0, log)
	svc := service.NewTripService(gw, backups, realtime.NewAdapter(docs, gw, log), service.Options{
		TripID:         "andalusien-2025",
		WriteDelay:     10 * time.Millisecond,
		InitialTimeout: 500 * time.Millisecond,
	}, log)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close(context.Background())

	trip, err := svc.Trip()
	require.NoError(t, err)
	assert.Equal(t, "Andalusien 2025 (lokal)", trip.Title)
}

func TestAddEntry_DaySeparatorScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	trip, err := f.svc.Trip()
	require.NoError(t, err)
	dayID := trip.Days[0].ID

	_, err = f.svc.AddEntry(context.Background(), dayID,
		&domain.NoteEntry{Content: "<p>A</p>"})
	require.NoError(t, err)

	sep, err := f.svc.AddEntry(context.Background(), dayID,
		&domain.DaySeparatorEntry{Title: "Tag 1", Date: "2025-08-27"})
	require.NoError(t, err)
	assert.NotEmpty(t, sep.EntryID())

	trip, err = f.svc.Trip()
	require.NoError(t, err)
	entries := trip.Days[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-08-27", entries[1].(*domain.DaySeparatorEntry).Date)
}

func TestMoveDay_FirstToLast(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.svc.MoveDay(0, 2))

	trip, err := f.svc.Trip()
	require.NoError(t, err)
	got := []string{trip.Days[0].Title, trip.Days[1].Title, trip.Days[2].Title}
	assert.Equal(t, []string{"Marbella", "Torrox", "Cádiz"}, got)
}

func TestDayLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	day, err := f.svc.AddDay("Granada")
	require.NoError(t, err)
	assert.NotEmpty(t, day.ID)
	assert.Equal(t, domain.DefaultDayColor, day.Color)

	title := "Granada & Alhambra"
	color := "purple"
	updated, err := f.svc.UpdateDay(day.ID, domain.DayUpdate{Title: &title, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "purple", updated.Color)

	require.NoError(t, f.svc.DeleteDay(context.Background(), day.ID))
	_, err = f.svc.UpdateDay(day.ID, domain.DayUpdate{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddDay_EmptyTitleRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.AddDay("   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestToggleReaction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	trip, err := f.svc.Trip()
	require.NoError(t, err)
	dayID := trip.Days[0].ID

	entry, err := f.svc.AddEntry(context.Background(), dayID,
		&domain.NoteEntry{Content: "<p>Tapas</p>"})
	require.NoError(t, err)

	r, err := f.svc.ToggleReaction(dayID, entry.EntryID(), domain.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Likes)
	require.NotNil(t, r.UserReaction)
	assert.Equal(t, domain.ReactionLike, *r.UserReaction)

	r, err = f.svc.ToggleReaction(dayID, entry.EntryID(), domain.ReactionLike)
	require.NoError(t, err)
	assert.Zero(t, r.Likes)
	assert.Nil(t, r.UserReaction)

	_, err = f.svc.ToggleReaction(dayID, entry.EntryID(), "love")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteEntry_CleansUpBlobs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	imageURL, err := f.blobs.Upload(ctx, "images/1-e.jpg", []byte("jpg"), "image/jpeg")
	require.NoError(t, err)

	trip, err := f.svc.Trip()
	require.NoError(t, err)
	dayID := trip.Days[0].ID

	entry, err := f.svc.AddEntry(ctx, dayID, &domain.NoteEntry{Content: "<p>x</p>", ImageURL: imageURL})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEntry(ctx, dayID, entry.EntryID()))
	assert.Zero(t, f.blobs.Len())

	trip, err = f.svc.Trip()
	require.NoError(t, err)
	assert.Empty(t, trip.Days[0].Entries)
}

func TestAddEntry_InlineImageIsUploaded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	trip, err := f.svc.Trip()
	require.NoError(t, err)

	entry, err := f.svc.AddEntry(context.Background(), trip.Days[0].ID,
		&domain.NoteEntry{Content: "<p>Foto</p>", ImageURL: tinyPNGDataURL(t)})
	require.NoError(t, err)

	note := entry.(*domain.NoteEntry)
	assert.True(t, len(note.ImageURL) < 200, "image url should be a blob reference, not a data url")
	assert.Contains(t, note.ImageURL, "/images/")

	_, err = f.blobs.Fetch(context.Background(), note.ImageURL)
	assert.NoError(t, err)
}

func TestImportExport_RoundTripThroughService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	trip, err := f.svc.Trip()
	require.NoError(t, err)
	_, err = f.svc.AddEntry(context.Background(), trip.Days[0].ID,
		&domain.NoteEntry{Title: "Fähre", Content: "<p>9:00</p>"})
	require.NoError(t, err)

	data, filename, err := f.svc.Export()
	require.NoError(t, err)
	assert.Contains(t, filename, ".json")

	before, err := f.svc.Trip()
	require.NoError(t, err)

	// Wipe local state by importing the export again.
	imported, err := f.svc.Import(data)
	require.NoError(t, err)
	assert.Equal(t, before, imported)

	after, err := f.svc.Trip()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImport_BadFileLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before, err := f.svc.Trip()
	require.NoError(t, err)

	_, err = f.svc.Import([]byte(`{"exportDate": "2025-08-27T00:00:00Z"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	after, err := f.svc.Trip()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMutation_WritesNormalBackup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.AddDay("Sevilla")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(f.backups, backup.NormalFile))
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStart_LateSnapshotSupersedesFallback(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	docs := repo.NewMemoryStore()
	docs.SetInitialDelay(300 * time.Millisecond)
	gw := gateway.New(docs, blob.NewMemoryStore(), 0, log)

	remote := domain.SeedTrip()
	remote.Title = "Echte Urlaubsdaten"
	doc, err := json.Marshal(remote)
	require.NoError(t, err)
	require.NoError(t, docs.Set(context.Background(), "andalusien-2025", doc))

	svc := service.NewTripService(gw, backup.NewStore(t.TempDir(), 0, log),
		realtime.NewAdapter(docs, gw, log), service.Options{
			TripID:         "andalusien-2025",
			WriteDelay:     10 * time.Millisecond,
			InitialTimeout: 50 * time.Millisecond,
		}, log)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close(context.Background())

	// The store was too slow, so the seed serves as a stopgap.
	trip, err := svc.Trip()
	require.NoError(t, err)
	assert.Equal(t, "Andalusien 2025", trip.Title)

	// The late snapshot carries the real data and replaces the stopgap.
	assert.Eventually(t, func() bool {
		trip, err := svc.Trip()
		return err == nil && trip.Title == "Echte Urlaubsdaten"
	}, 2*time.Second, 10*time.Millisecond)

	// No write-back fires for a slow store: the stored document keeps the
	// real data instead of being overwritten with the seed.
	stored, err := docs.Get(context.Background(), "andalusien-2025")
	require.NoError(t, err)
	var got domain.Trip
	require.NoError(t, json.Unmarshal(stored, &got))
	assert.Equal(t, "Echte Urlaubsdaten", got.Title)
}

func TestStart_SlowEmptyStoreStillSeeded(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	docs := repo.NewMemoryStore()
	docs.SetInitialDelay(200 * time.Millisecond)
	gw := gateway.New(docs, blob.NewMemoryStore(), 0, log)

	svc := service.NewTripService(gw, backup.NewStore(t.TempDir(), 0, log),
		realtime.NewAdapter(docs, gw, log), service.Options{
			TripID:         "andalusien-2025",
			WriteDelay:     10 * time.Millisecond,
			InitialTimeout: 20 * time.Millisecond,
		}, log)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close(context.Background())

	// Once the late snapshot shows the store is really empty, the deferred
	// write-back converges it on the seed.
	assert.Eventually(t, func() bool {
		doc, err := docs.Get(context.Background(), "andalusien-2025")
		if err != nil {
			return false
		}
		var got domain.Trip
		return json.Unmarshal(doc, &got) == nil && got.Title == "Andalusien 2025"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSave_ClearsLargeBackupWhenTripFits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// A leftover large slot from an earlier over-ceiling cycle.
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	stale, err := f.svc.Trip()
	require.NoError(t, err)
	require.NoError(t, backup.NewStore(f.backups, 0, log).WriteLarge(stale))

	_, err = f.svc.AddDay("Granada")
	require.NoError(t, err)

	// The next successful under-ceiling save clears the slot so it cannot
	// shadow fresher normal backups on a later restore.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(f.backups, backup.LargeFile))
		return errors.Is(err, fs.ErrNotExist)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHashtags(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	trip, err := f.svc.Trip()
	require.NoError(t, err)

	_, err = f.svc.AddEntry(context.Background(), trip.Days[0].ID,
		&domain.NoteEntry{Content: "<p>#strand und nochmal #strand, dazu #tapas</p>"})
	require.NoError(t, err)

	tags := f.svc.Hashtags()
	require.NotEmpty(t, tags)
	assert.Equal(t, "strand", tags[0].Tag)
	assert.Equal(t, 2, tags[0].Count)
}

func tinyPNGDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
