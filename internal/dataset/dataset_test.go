package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/depth"
	"github.com/banshee-data/tlabel/internal/fsutil"
)

func testDataset(t *testing.T) (*fsutil.MemoryFileSystem, *Dataset) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for _, p := range []string{
		"/cs/leftImg8bit/train/aachen/aachen_000002_000019_leftImg8bit.png",
		"/cs/leftImg8bit/train/aachen/aachen_000000_000019_leftImg8bit.png",
		"/cs/leftImg8bit/train/aachen/aachen_000001_000019_leftImg8bit.png",
		"/cs/leftImg8bit/val/bremen/bremen_000000_000019_leftImg8bit.png",
		"/cs/leftImg8bit/val/bremen/notes.txt",
	} {
		require.NoError(t, mfs.WriteFile(p, nil, 0644))
	}
	ds, err := Discover(mfs, "/cs")
	require.NoError(t, err)
	return mfs, ds
}

func TestDiscover(t *testing.T) {
	_, ds := testDataset(t)

	assert.Equal(t, []string{"train/aachen", "val/bremen"}, ds.Cities())
	stems, err := ds.Stems("train/aachen")
	require.NoError(t, err)
	assert.Equal(t, []string{"aachen_000000_000019", "aachen_000001_000019", "aachen_000002_000019"}, stems)

	_, err = ds.Stems("test/berlin")
	assert.True(t, errors.Is(err, ErrUnknownCity))
}

func TestDiscover_Empty(t *testing.T) {
	_, err := Discover(fsutil.NewMemoryFileSystem(), "/cs")
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestCursor_Wraparound(t *testing.T) {
	_, ds := testDataset(t)
	c, err := NewCursor(ds)
	require.NoError(t, err)

	assert.Equal(t, "train/aachen/aachen_000000_000019", c.Key())
	c.Prev()
	assert.Equal(t, "aachen_000002_000019", c.Stem())
	c.Next()
	assert.Equal(t, "aachen_000000_000019", c.Stem())
	c.Next()
	c.Next()
	c.Next()
	assert.Equal(t, "aachen_000000_000019", c.Stem())
}

func TestCursor_SetCityAndStem(t *testing.T) {
	_, ds := testDataset(t)
	c, err := NewCursor(ds)
	require.NoError(t, err)

	require.NoError(t, c.SetStem("aachen_000001_000019"))
	assert.Equal(t, "aachen_000001_000019", c.Stem())
	assert.True(t, errors.Is(c.SetStem("bremen_000000_000019"), ErrUnknownImage))

	require.NoError(t, c.SetCity("val/bremen"))
	assert.Equal(t, "val/bremen/bremen_000000_000019", c.Key())
	c.Next()
	assert.Equal(t, "bremen_000000_000019", c.Stem(), "single image wraps onto itself")

	assert.True(t, errors.Is(c.SetCity("nowhere"), ErrUnknownCity))
	assert.Equal(t, "val/bremen", c.City())
}

func TestPaths(t *testing.T) {
	p := Paths{CityscapesDir: "/cs", VideoDir: "/vid", LightsDir: "/tl/gtFine"}
	key := "train/aachen/aachen_000000_000019"

	assert.Equal(t, "/cs/leftImg8bit/train/aachen/aachen_000000_000019_leftImg8bit.png", p.Image(key))
	assert.Equal(t, "/cs/gtFine/train/aachen/aachen_000000_000019_gtFine_polygons.json", p.Label(key))
	assert.Equal(t, "/tl/gtFine/train/aachen/aachen_000000_000019_gtFine_polygons.json", p.Lights(key))
	assert.Equal(t, "/vid/train/aachen/aachen_000000_000019_leftImg8bit.mp4", p.Video(key))
	assert.Equal(t, "/cs/vehicle/train/aachen/aachen_000000_000019_vehicle.json", p.Vehicle(key))
}

func TestPaths_OpenStoreWithDepth(t *testing.T) {
	mfs, _ := testDataset(t)
	p := Paths{CityscapesDir: "/cs", LightsDir: "/tl/gtFine"}
	key := "train/aachen/aachen_000000_000019"
	require.NoError(t, mfs.WriteFile(p.Lights(key), []byte(`{"objects":[
		{"label":"sky"},
		{"label":"traffic light","polygon":[[1,1]]}
	]}`), 0644))
	idx, err := depth.Parse(strings.NewReader(
		"/x/gtFine/train/aachen/aachen_000000_000019_gtFine_polygons.json 8 0 1 0 1 23.5 1\n"),
		depth.Options{Prefix: "/x", Class: "8"})
	require.NoError(t, err)

	s, err := p.OpenStore(mfs, key, idx)

	require.NoError(t, err)
	lights := s.Lights()
	require.Len(t, lights, 1)
	assert.Equal(t, 1, lights[0].Index)
	assert.Equal(t, 23.5, lights[0].DepthMetric)

	s, err = p.OpenStore(mfs, key, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Lights()[0].DepthMetric)
}
