package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/relix/internal/build"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	for i, outcome := range []build.Outcome{build.OutcomeSuccess, build.OutcomeWarning, build.OutcomeFailed} {
		require.NoError(t, store.Record(ctx, Run{
			ID:        string(rune('a'+i)) + "-run",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Duration:  1500 * time.Millisecond,
			Outcome:   outcome,
			Releases:  i,
			Pages:     i * 2,
		}))
	}

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Newest first
	assert.Equal(t, "c-run", runs[0].ID)
	assert.Equal(t, build.OutcomeFailed, runs[0].Outcome)
	assert.Equal(t, "a-run", runs[2].ID)
	assert.Equal(t, base, runs[2].StartedAt)
	assert.Equal(t, 1500*time.Millisecond, runs[2].Duration)
}

func TestRecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Run{
			ID:        string(rune('a' + i)),
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
			Outcome:   build.OutcomeSuccess,
		}))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := Run{ID: "same", StartedAt: time.Now(), Outcome: build.OutcomeSuccess}
	require.NoError(t, store.Record(ctx, run))
	require.Error(t, store.Record(ctx, run))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Run{ID: "persisted", StartedAt: time.Now(), Outcome: build.OutcomeSuccess}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].ID)
}

func TestFromReport(t *testing.T) {
	report := &build.Report{
		RunID:     "r1",
		StartedAt: time.Now().UTC(),
		Duration:  2 * time.Second,
		Outcome:   build.OutcomeWarning,
		Releases:  3,
		Artifacts: 6,
		Pages:     8,
		Warnings:  []string{"w1", "w2"},
		Error:     "",
	}
	run := FromReport(report)
	assert.Equal(t, "r1", run.ID)
	assert.Equal(t, 2, run.Warnings)
	assert.Equal(t, build.OutcomeWarning, run.Outcome)
}
