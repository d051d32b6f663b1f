package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/security"
	"github.com/banshee-data/tlabel/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"), t.Logf)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesPragmasAndSchema(t *testing.T) {
	db := openTestDB(t)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var busy int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 5000, busy)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	st, err := db.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{}, st)

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.MigrateUp(), "no change is not an error")
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestRun_RecordAndApplied(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := t.TempDir()

	run, err := db.StartRun(ctx, base, "changes.json")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	done, err := run.Applied(ctx, "gtFine/a.json", "abc")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, run.Record(ctx, changeset.Entry{Path: "gtFine/a.json", Digest: "abc", Created: 2}))

	done, err = run.Applied(ctx, "gtFine/a.json", "abc")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = run.Applied(ctx, "gtFine/a.json", "other")
	require.NoError(t, err)
	assert.False(t, done, "a different script is not applied")

	other, err := db.View(t.TempDir())
	require.NoError(t, err)
	done, err = other.Applied(ctx, "gtFine/a.json", "abc")
	require.NoError(t, err)
	assert.False(t, done, "another base directory is not applied")

	view, err := db.View(base)
	require.NoError(t, err)
	done, err = view.Applied(ctx, "gtFine/a.json", "abc")
	require.NoError(t, err)
	assert.True(t, done, "later runs see earlier records")
	assert.True(t, errors.Is(view.Record(ctx, changeset.Entry{}), ErrReadOnly))
}

func TestRun_FinishAndRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	run, err := db.StartRun(ctx, "/data/tree", "cs.json")
	require.NoError(t, err)
	rep := &changeset.Report{Files: []changeset.FileResult{
		{Path: "a", Status: changeset.StatusApplied},
		{Path: "b", Status: changeset.StatusApplied},
		{Path: "c", Status: changeset.StatusSkipped},
		{Path: "d", Status: changeset.StatusFailed},
	}}
	require.NoError(t, run.Finish(ctx, rep))

	runs, err := db.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "cs.json", runs[0].Changeset)
	assert.Equal(t, 2, runs[0].Applied)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, 1, runs[0].Failed)
	require.NotNil(t, runs[0].FinishedAt)
	assert.False(t, runs[0].FinishedAt.Before(runs[0].StartedAt))

	st, err := db.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 0, st.Scripts)
}

func TestRuns_OrderedByStartTime(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewManualClock(start)
	db.SetClock(clock)

	first, err := db.StartRun(ctx, "/data/tree", "first.json")
	require.NoError(t, err)
	clock.Advance(500 * time.Millisecond)
	require.NoError(t, first.Finish(ctx, &changeset.Report{}))

	// Same second as the first start, which has no fractional part.
	clock.Set(start.Add(750 * time.Millisecond))
	second, err := db.StartRun(ctx, "/data/tree", "second.json")
	require.NoError(t, err)

	runs, err := db.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.True(t, runs[1].StartedAt.Equal(start))
	require.NotNil(t, runs[1].FinishedAt)
	assert.Equal(t, 500*time.Millisecond, runs[1].FinishedAt.Sub(runs[1].StartedAt))
	assert.Nil(t, runs[0].FinishedAt)

	runs, err = db.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}

func TestApplyTree_WithJournalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := t.TempDir()
	fsys := fsutil.OSFileSystem{}
	const rel = "gtFine/train/aachen/a_000001_gtFine_polygons.json"
	target := filepath.Join(base, filepath.FromSlash(rel))

	original := []label.Object{{Label: label.TrafficLight, Polygon: label.Polygon{{0, 0}}}}
	updated := []label.Object{original[0], {Label: label.TrafficLight, Polygon: label.Polygon{{4, 4}}}}
	require.NoError(t, fsys.MkdirAll(filepath.Dir(target), 0755))
	require.NoError(t, label.WriteFile(fsys, target, &label.File{Objects: original}))
	cs := changeset.Changeset{rel: changeset.Build(original, updated)}

	for i := 0; i < 2; i++ {
		run, err := db.StartRun(ctx, base, "cs.json")
		require.NoError(t, err)
		rep, err := changeset.ApplyTree(ctx, changeset.ApplyOptions{
			FS:        fsys,
			Journal:   run,
			PathCheck: security.ValidatePathWithinDirectory,
		}, base, cs)
		require.NoError(t, err)
		require.NoError(t, rep.Err())
		require.NoError(t, run.Finish(ctx, rep))
	}

	f, err := label.ReadFile(fsys, target)
	require.NoError(t, err)
	assert.Len(t, f.Objects, 2, "second run skipped the create")

	runs, err := db.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	total := map[string]int{}
	for _, r := range runs {
		total["applied"] += r.Applied
		total["skipped"] += r.Skipped
	}
	assert.Equal(t, map[string]int{"applied": 1, "skipped": 1}, total)
}
