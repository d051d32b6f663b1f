package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/security"
	"github.com/banshee-data/tlabel/internal/testutil"
)

func complete(relevant, state string) *label.Attributes {
	return &label.Attributes{
		Relevant:     label.Text(relevant),
		LaneRelevant: label.Text("unknown"),
		State:        label.Text(state),
		Type:         label.Text("car"),
		Visible:      label.Text("yes"),
		Depth:        label.Number(12),
	}
}

func testTree(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteLabels(t, mfs, "/gt/train/a/a_gtFine_polygons.json",
		label.Object{Label: label.TrafficLight, ID: json.RawMessage(`"tl-1"`), Attributes: complete("yes", "red")},
		label.Object{Label: "sky"},
		label.Object{Label: label.TrafficLight, Attributes: complete("no", "green")},
		label.Object{Label: label.TrafficLight, ID: json.RawMessage(`3`), Attributes: &label.Attributes{Relevant: label.Text("no")}},
	)
	testutil.WriteLabels(t, mfs, "/gt/train/a/b_gtFine_polygons.json",
		label.Object{Label: label.TrafficLight, ID: json.RawMessage(`7`), Attributes: complete("no", "off")},
		label.Object{Label: label.TrafficLight, Deleted: json.RawMessage(`true`), Attributes: complete("yes", "red")},
		label.Object{Label: label.TrafficLight, ID: json.RawMessage(`9`)},
	)
	return mfs
}

var testFiles = []string{"train/a/a_gtFine_polygons.json", "train/a/b_gtFine_polygons.json"}

func TestWriteCSV(t *testing.T) {
	mfs := testTree(t)
	var buf bytes.Buffer

	sum, err := WriteCSV(context.Background(), Options{FS: mfs, Workers: 2}, &buf, "/gt", testFiles)

	require.NoError(t, err)
	assert.Equal(t, 3, sum.Rows)
	assert.Empty(t, sum.Failures)
	want := "relative_file_path,id,relevant,state,type,visible\n" +
		"train/a/a_gtFine_polygons.json,tl-1,yes,red,car,yes\n" +
		"train/a/a_gtFine_polygons.json,none,no,green,car,yes\n" +
		"train/a/b_gtFine_polygons.json,7,no,off,car,yes\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_RecordsFailures(t *testing.T) {
	mfs := testTree(t)
	var buf bytes.Buffer

	sum, err := WriteCSV(context.Background(), Options{FS: mfs}, &buf, "/gt", append(testFiles, "train/a/missing.json"))

	require.NoError(t, err)
	require.Len(t, sum.Failures, 1)
	assert.True(t, errors.Is(sum.Failures[0], label.ErrNotFound))
	assert.Equal(t, 3, sum.Rows)
}

func TestMissingIDs(t *testing.T) {
	mfs := testTree(t)

	missing, sum, err := MissingIDs(context.Background(), Options{FS: mfs}, "/gt", testFiles)

	require.NoError(t, err)
	assert.Equal(t, []MissingID{{File: "train/a/a_gtFine_polygons.json", Index: 2}}, missing)
	assert.Equal(t, 1, sum.Rows)
}

func TestMarginalizeObjects(t *testing.T) {
	objs := []label.Object{
		{Label: label.TrafficLight, Attributes: complete("yes", "red")},
		{Label: label.TrafficLight, Attributes: complete("no", "red")},
		{Label: label.TrafficLight, Attributes: &label.Attributes{Relevant: label.Text("maybe")}},
		{Label: label.TrafficLight},
		{Label: "car", Attributes: complete("yes", "red")},
	}

	n := MarginalizeObjects(objs)

	assert.Equal(t, 3, n)
	got := make([]string, len(objs))
	for i, o := range objs {
		got[i] = o.Label
	}
	assert.Equal(t, []string{RelevantLabel, IrrelevantLabel, IrrelevantLabel, label.TrafficLight, "car"}, got)
}

func TestMarginalize(t *testing.T) {
	mfs := testTree(t)

	sum, err := Marginalize(context.Background(), Options{FS: mfs}, "/gt", "/out", testFiles)

	require.NoError(t, err)
	assert.Empty(t, sum.Failures)
	assert.Equal(t, 5, sum.Rows)

	f := testutil.ReadLabels(t, mfs, "/out/train/a/a_gtFine_polygons.json")
	assert.Equal(t, RelevantLabel, f.Objects[0].Label)
	assert.Equal(t, "sky", f.Objects[1].Label)
	assert.Equal(t, IrrelevantLabel, f.Objects[3].Label)

	src := testutil.ReadLabels(t, mfs, "/gt/train/a/a_gtFine_polygons.json")
	assert.Equal(t, label.TrafficLight, src.Objects[0].Label, "source tree untouched")

	b := testutil.ReadLabels(t, mfs, "/out/train/a/b_gtFine_polygons.json")
	assert.Equal(t, RelevantLabel, b.Objects[1].Label, "deletion marker is not consulted")
	assert.Equal(t, label.TrafficLight, b.Objects[2].Label)
}

func TestMarginalize_RejectsTraversal(t *testing.T) {
	mfs := testTree(t)

	sum, err := Marginalize(context.Background(), Options{FS: mfs}, "/gt", "/out", []string{"../escape.json"})

	require.NoError(t, err)
	require.Len(t, sum.Failures, 1)
	assert.True(t, errors.Is(sum.Failures[0], security.ErrPathTraversal))
}
