package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"imagededup/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitDatabaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('descriptors','runs','outcomes')",
	).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestDescriptorCache(t *testing.T) {
	db := setupTestDB(t)

	rec := types.ImageRecord{
		Path:       "/data/a.jpg",
		Kind:       "content",
		Descriptor: "0123456789abcdef0123456789abcdef",
		ModifiedAt: "2025-01-13T06:30:27Z",
		Size:       1024,
	}
	require.NoError(t, StoreDescriptor(db, rec, 128))

	got, ok, err := LookupDescriptor(db, rec.Path, rec.Kind, 128, rec.ModifiedAt, rec.Size)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec.Descriptor, got)

	// A changed file is a cache miss.
	_, ok, err = LookupDescriptor(db, rec.Path, rec.Kind, 128, "2025-01-14T00:00:00Z", rec.Size)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = LookupDescriptor(db, rec.Path, rec.Kind, 128, rec.ModifiedAt, 2048)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other kinds and sizes are separate entries.
	_, ok, err = LookupDescriptor(db, rec.Path, "average", 8, rec.ModifiedAt, rec.Size)
	require.NoError(t, err)
	assert.False(t, ok)

	// Replacing keeps a single row.
	rec.Descriptor = "ffffffffffffffffffffffffffffffff"
	require.NoError(t, StoreDescriptor(db, rec, 128))
	got, ok, err = LookupDescriptor(db, rec.Path, rec.Kind, 128, rec.ModifiedAt, rec.Size)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec.Descriptor, got)
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)

	run := Run{ID: "run-1", Variant: "dedup", Source: "imgs", Destination: "similar_images", Threshold: 0.08}
	require.NoError(t, StartRun(db, run))

	outcomes := []Outcome{
		{RunID: run.ID, Path: "imgs/a.jpg", State: types.StateUnique},
		{RunID: run.ID, Path: "imgs/b.jpg", State: types.StateDuplicate, MatchedPath: "imgs/a.jpg", Destination: "similar_images/b.jpg"},
		{RunID: run.ID, Path: "imgs/c.jpg", State: types.StateDuplicate, MatchedPath: "imgs/a.jpg", Distance: 0.03},
		{RunID: run.ID, Path: "imgs/d.jpg", State: types.StateError, Error: "decode failed"},
	}
	for _, o := range outcomes {
		require.NoError(t, RecordOutcome(db, o))
	}
	require.NoError(t, FinishRun(db, run.ID))

	stats, err := GetRunStats(db, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, stats.Run)
	assert.Equal(t, 1, stats.Unique)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 1, stats.Errors)
	assert.NotEmpty(t, stats.StartedAt)
	assert.NotEmpty(t, stats.FinishedAt)

	_, err = GetRunStats(db, "missing")
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, StartRun(db, Run{ID: id, Variant: "similar", Source: "s", Destination: "d", Reference: "ref.jpg", Threshold: 0.05}))
	}

	runs, err := ListRuns(db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].Run.ID)
	assert.Equal(t, "ref.jpg", runs[0].Run.Reference)
	assert.Empty(t, runs[0].FinishedAt)

	all, err := ListRuns(db, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
