package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/journal"
)

func seeded(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := journal.Open(path, t.Logf)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	r, err := db.StartRun(ctx, "/labels", "cs.json")
	require.NoError(t, err)
	require.NoError(t, r.Record(ctx, changeset.Entry{Path: "gtFine/a.json", Digest: "d1", Created: 1}))
	require.NoError(t, r.Finish(ctx, &changeset.Report{Files: []changeset.FileResult{{Path: "gtFine/a.json", Status: changeset.StatusApplied}}}))
	return path
}

func TestRun_Status(t *testing.T) {
	db := seeded(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-db", db, "status"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Regexp(t, `schema version\s+1\n`, stdout.String())
	assert.Regexp(t, `runs\s+1\n`, stdout.String())
	assert.Regexp(t, `applied scripts\s+1\n`, stdout.String())
}

func TestRun_Runs(t *testing.T) {
	db := seeded(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-db", db, "runs"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "cs.json")
	assert.Contains(t, stdout.String(), "/labels")
}

func TestRun_Migrate(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(ctx, []string{"-db", db, "migrate", "down"}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "schema version 0")

	stdout.Reset()
	require.Equal(t, 0, run(ctx, []string{"-db", db, "migrate", "up"}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "schema version 1")

	assert.Equal(t, 2, run(ctx, []string{"-db", db, "migrate", "sideways"}, &stdout, &stderr))
	assert.Equal(t, 2, run(ctx, []string{"-db", db, "migrate", "force"}, &stdout, &stderr))
}

func TestRun_NoJournal(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"status"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no journal")
}
