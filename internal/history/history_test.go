package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/errors"
)

func testConfig(t *testing.T) config.HistoryConfig {
	t.Helper()
	return config.HistoryConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "history.db"),
		MaxRuns: 1000,
	}
}

func openTestStore(t *testing.T, cfg config.HistoryConfig) *Store {
	t.Helper()

	store, err := Open(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func recordRun(t *testing.T, store *Store, ts time.Time, path string, issues ...string) *Run {
	t.Helper()

	run := &Run{
		Timestamp:   ts,
		ProjectPath: path,
		Ready:       len(issues) == 0,
		Issues:      issues,
	}
	require.NoError(t, store.Record(context.Background(), run))
	return run
}

func TestOpen_CreatesDatabaseFile(t *testing.T) {
	cfg := testConfig(t)
	openTestStore(t, cfg)

	_, err := os.Stat(cfg.Path)
	require.NoError(t, err)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Path = filepath.Join(t.TempDir(), "state", "deep", "history.db")
	openTestStore(t, cfg)

	_, err := os.Stat(cfg.Path)
	require.NoError(t, err)
}

func TestOpen_CorruptFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Path, []byte("definitely not a sqlite database"), 0o644))

	_, err := Open(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeHistoryCorrupt, errors.GetCode(err))
}

func TestOpen_InMemoryWhenPathEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Path = ""
	store := openTestStore(t, cfg)

	recordRun(t, store, time.Time{}, "/tmp/proj")

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, store.Path())
}

func TestOpen_ReopenSeesExistingRuns(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)
	recordRun(t, store, time.Time{}, "/tmp/a")
	recordRun(t, store, time.Time{}, "/tmp/b")
	require.NoError(t, store.Close())

	reopened := openTestStore(t, cfg)
	count, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStore_RecordAssignsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t, testConfig(t))

	run := &Run{ProjectPath: "/tmp/proj", Ready: true}
	require.NoError(t, store.Record(context.Background(), run))

	_, err := uuid.Parse(run.ID)
	assert.NoError(t, err)
	assert.False(t, run.Timestamp.IsZero())
	assert.Equal(t, time.UTC, run.Timestamp.Location())
}

func TestStore_RecordKeepsCallerID(t *testing.T) {
	store := openTestStore(t, testConfig(t))

	run := &Run{ID: "run-123", ProjectPath: "/tmp/proj", Ready: true}
	require.NoError(t, store.Record(context.Background(), run))
	assert.Equal(t, "run-123", run.ID)

	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-123", runs[0].ID)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store := openTestStore(t, testConfig(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recordRun(t, store, base, "/tmp/oldest")
	recordRun(t, store, base.Add(time.Minute), "/tmp/middle")
	recordRun(t, store, base.Add(2*time.Minute), "/tmp/newest")

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "/tmp/newest", runs[0].ProjectPath)
	assert.Equal(t, "/tmp/middle", runs[1].ProjectPath)
	assert.Equal(t, "/tmp/oldest", runs[2].ProjectPath)
	assert.True(t, runs[0].Timestamp.Equal(base.Add(2*time.Minute)))
	assert.True(t, runs[2].Timestamp.Equal(base))
}

func TestStore_RecentRoundTripsFields(t *testing.T) {
	store := openTestStore(t, testConfig(t))

	run := &Run{
		ProjectPath:     "/home/dev/ml-project",
		Ready:           false,
		Issues:          []string{"GPU is required but not available", "Not enough RAM: 2.0 GB available"},
		FindingCount:    3,
		DependencyCount: 12,
		DurationMS:      42,
	}
	require.NoError(t, store.Record(context.Background(), run))

	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "/home/dev/ml-project", got.ProjectPath)
	assert.False(t, got.Ready)
	assert.Equal(t, run.Issues, got.Issues)
	assert.Equal(t, 3, got.FindingCount)
	assert.Equal(t, 12, got.DependencyCount)
	assert.Equal(t, int64(42), got.DurationMS)
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := openTestStore(t, testConfig(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		recordRun(t, store, base.Add(time.Duration(i)*time.Second), "/tmp/proj")
	}

	runs, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_RecentDefaultLimit(t *testing.T) {
	store := openTestStore(t, testConfig(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < DefaultRecentLimit+5; i++ {
		recordRun(t, store, base.Add(time.Duration(i)*time.Second), "/tmp/proj")
	}

	runs, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, DefaultRecentLimit)
}

func TestStore_EmptyIssuesRoundTripAsEmptySlice(t *testing.T) {
	store := openTestStore(t, testConfig(t))
	recordRun(t, store, time.Time{}, "/tmp/proj")

	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.NotNil(t, runs[0].Issues)
	assert.Empty(t, runs[0].Issues)
}

func TestStore_RecordPrunesToMaxRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRuns = 3
	store := openTestStore(t, cfg)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		recordRun(t, store, base.Add(time.Duration(i)*time.Second), "/tmp/proj")
	}

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// The newest three survive
	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[2].Timestamp.Equal(base.Add(2*time.Second)))
}

func TestStore_ZeroMaxRunsKeepsEverything(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRuns = 0
	store := openTestStore(t, cfg)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		recordRun(t, store, base.Add(time.Duration(i)*time.Second), "/tmp/proj")
	}

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	deleted, err := store.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestStore_PruneRemovesOldRuns(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		recordRun(t, store, base.Add(time.Duration(i)*time.Second), "/tmp/proj")
	}
	require.NoError(t, store.Close())

	// Reopen with a tighter retention and prune explicitly
	cfg.MaxRuns = 2
	reopened := openTestStore(t, cfg)

	deleted, err := reopened.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	runs, err := reopened.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Timestamp.Equal(base.Add(3*time.Second)))
	assert.True(t, runs[1].Timestamp.Equal(base.Add(2*time.Second)))
}

func TestStore_CountEmpty(t *testing.T) {
	store := openTestStore(t, testConfig(t))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
