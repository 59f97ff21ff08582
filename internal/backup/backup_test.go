package backup_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripboard/backend/internal/backup"
	"github.com/pkordes/tripboard/backend/internal/domain"
)

func newStore(t *testing.T) (*backup.Store, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return backup.NewStore(dir, backup.DefaultRetention, log), dir
}

func TestRestore_NothingSaved(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	_, err := store.Restore()
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestore_NormalSlotRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	trip := domain.SeedTrip()
	require.NoError(t, store.WriteNormal(trip))

	got, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, trip, got)
}

func TestRestore_PrefersLargeSlot(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	normal := domain.SeedTrip()
	large := domain.SeedTrip()
	large.Title = "Andalusien 2025 (vollständig)"

	require.NoError(t, store.WriteNormal(normal))
	require.NoError(t, store.WriteLarge(large))

	got, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, large.Title, got.Title)
}

func TestRestore_ExpiredNormalBackupIsCleared(t *testing.T) {
	t.Parallel()

	store, dir := newStore(t)

	stale := fmt.Sprintf(`{"savedAt": %q, "trip": %s}`,
		time.Now().Add(-8*24*time.Hour).UTC().Format(time.RFC3339),
		mustJSON(t, domain.SeedTrip()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, backup.NormalFile), []byte(stale), 0o644))

	_, err := store.Restore()
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(dir, backup.NormalFile))
}

func TestRestore_RecentNormalBackupSurvivesExpiryCheck(t *testing.T) {
	t.Parallel()

	store, dir := newStore(t)

	fresh := fmt.Sprintf(`{"savedAt": %q, "trip": %s}`,
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		mustJSON(t, domain.SeedTrip()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, backup.NormalFile), []byte(fresh), 0o644))

	got, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, "andalusien-2025", got.ID)
}

func TestClearLarge(t *testing.T) {
	t.Parallel()

	store, dir := newStore(t)
	require.NoError(t, store.WriteLarge(domain.SeedTrip()))
	require.NoError(t, store.ClearLarge())
	assert.NoFileExists(t, filepath.Join(dir, backup.LargeFile))

	// Clearing an empty slot is fine.
	require.NoError(t, store.ClearLarge())
}

func TestRestore_CorruptSlotFallsThrough(t *testing.T) {
	t.Parallel()

	store, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, backup.LargeFile), []byte("{not json"), 0o644))
	require.NoError(t, store.WriteNormal(domain.SeedTrip()))

	got, err := store.Restore()
	require.NoError(t, err)
	assert.Equal(t, "andalusien-2025", got.ID)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
