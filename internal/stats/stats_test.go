package stats

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/testutil"
)

func TestRelevance(t *testing.T) {
	tests := []struct {
		name  string
		attrs *label.Attributes
		want  string
		ok    bool
	}{
		{"nil", nil, "", false},
		{"missing visible", testutil.Attrs(t, "relevant", "yes", "type", "car"), "", false},
		{"ego", testutil.Attrs(t, "relevant", "yes", "type", "bus", "visible", "no"), EgoRelevant, true},
		{"car visible", testutil.Attrs(t, "relevant", "no", "type", "car", "visible", "yes"), CarVisibleIrrelevant, true},
		{"pedestrian", testutil.Attrs(t, "relevant", "no", "type", "pedestrian", "visible", "yes"), PedestrianVisible, true},
		{"bicycle", testutil.Attrs(t, "relevant", "no", "type", "bicycle", "visible", "yes"), BicycleVisible, true},
		{"visible train", testutil.Attrs(t, "relevant", "no", "type", "train", "visible", "yes"), OtherRelevance, true},
		{"invisible car", testutil.Attrs(t, "relevant", "no", "type", "car", "visible", "no"), OtherRelevance, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Relevance(tt.attrs)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestChangeset(t *testing.T) {
	cs := changeset.Changeset{
		"a.json": {
			Update: map[int]*label.Attributes{
				0: testutil.Attrs(t, "relevant", "yes", "type", "car", "visible", "yes"),
				2: testutil.Attrs(t, "type", "pedestrian"),
			},
			Delete: changeset.IndexList{4},
			Create: map[int]label.Object{
				5: {Label: label.TrafficLight, Attributes: testutil.Attrs(t, "relevant", "no", "type", "bicycle", "visible", "yes")},
			},
		},
		"b.json": {Delete: changeset.IndexList{0, 1}},
	}

	s := Changeset(cs)

	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 2, s.Updated)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 3, s.Deleted)
	if diff := cmp.Diff(map[int]int{2: 1, -2: 1}, s.NetChange); diff != "" {
		t.Errorf("NetChange mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"car": 1, "pedestrian": 1, "bicycle": 1}, s.Types); diff != "" {
		t.Errorf("Types mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{EgoRelevant: 1, BicycleVisible: 1}, s.Relevance); diff != "" {
		t.Errorf("Relevance mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 3.0, s.ChangesMean, 1e-9)
	assert.InDelta(t, math.Sqrt2, s.ChangesStdDev, 1e-9)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Regexp(t, `deleted\s+3\n`, buf.String())
	assert.Contains(t, buf.String(), "car_warning")
}

func TestChangeset_SingleFileHasZeroStdDev(t *testing.T) {
	s := Changeset(changeset.Changeset{"a.json": {Delete: changeset.IndexList{0}}})
	assert.Equal(t, 1.0, s.ChangesMean)
	assert.Equal(t, 0.0, s.ChangesStdDev)

	empty := Changeset(changeset.Changeset{})
	assert.Equal(t, 0.0, empty.ChangesMean)
}

func TestWidth(t *testing.T) {
	w, ok := Width(label.Polygon{{10.9, 0}, {20.2, 5}, {15, 3}})
	assert.True(t, ok)
	assert.Equal(t, 10, w)

	_, ok = Width(nil)
	assert.False(t, ok)
}

func TestCropCategory(t *testing.T) {
	c, ok := CropCategory(testutil.Attrs(t, "type", "car", "relevant", "no"))
	assert.True(t, ok)
	assert.Equal(t, CropEgoIrrelevant, c)

	c, _ = CropCategory(testutil.Attrs(t, "type", "train", "relevant", "yes"))
	assert.Equal(t, CropOther, c)

	_, ok = CropCategory(testutil.Attrs(t, "type", "car"))
	assert.False(t, ok)
}

func TestTree(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteLabels(t, mfs, "/gt/a.json",
		label.Object{Label: label.TrafficLight, Polygon: testutil.Box(0, 10), Attributes: testutil.Attrs(t, "type", "car", "relevant", "yes", "state", "red")},
		label.Object{Label: label.TrafficLight, Polygon: testutil.Box(0, 20), Attributes: testutil.Attrs(t, "type", "pedestrian", "relevant", "no")},
		label.Object{Label: "car", Polygon: testutil.Box(0, 500)},
	)
	testutil.WriteLabels(t, mfs, "/gt/b.json",
		label.Object{Label: label.TrafficLight, Polygon: testutil.Box(100, 200), Attributes: testutil.Attrs(t, "type", "car", "relevant", "no", "state", "red")},
		label.Object{Label: label.TrafficLight, Polygon: testutil.Box(0, 30), Deleted: []byte("1")},
	)
	require.NoError(t, mfs.WriteFile("/gt/c.json", []byte("{"), 0644))

	s, err := Tree(context.Background(), TreeOptions{FS: mfs, Workers: 2}, "/gt", []string{"a.json", "b.json", "c.json"})

	require.NoError(t, err)
	assert.Equal(t, 3, s.Files)
	assert.Equal(t, 3, s.Lights)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "c.json", s.Failures[0].Path)
	assert.True(t, errors.Is(s.Failures[0], label.ErrMalformed))

	assert.Equal(t, 1, s.Widths[10])
	assert.Equal(t, 1, s.Widths[20])
	assert.Equal(t, 1, s.Widths[WidthLimit+1])
	assert.InDelta(t, 130.0/3, s.WidthMean, 1e-9)
	assert.Equal(t, 20.0, s.WidthQuantiles[0.5])

	if diff := cmp.Diff(map[string]int{CropEgoRelevant: 1, CropEgoIrrelevant: 1, CropPedestrian: 1}, s.Crops); diff != "" {
		t.Errorf("Crops mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"red": 2}, s.Values[label.KeyState])
	assert.Equal(t, map[string]int{"car": 2, "pedestrian": 1}, s.Values[label.KeyType])

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), ">65")
	assert.Contains(t, buf.String(), "width p50")
}
