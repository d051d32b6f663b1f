// Package dataset discovers the images of a Cityscapes tree and steps
// through them city by city, resolving the files that belong to each image.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/tlabel/internal/depth"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

// File name endings of the per-image files.
const (
	ImageSuffix   = "_leftImg8bit.png"
	VideoSuffix   = "_leftImg8bit.mp4"
	LabelSuffix   = depth.LabelSuffix
	VehicleSuffix = "_vehicle.json"
)

var (
	// ErrEmpty is returned when no images were discovered.
	ErrEmpty = errors.New("no images found")
	// ErrUnknownCity is returned for a city that was not discovered.
	ErrUnknownCity = errors.New("unknown city")
	// ErrUnknownImage is returned for a stem not present in the city.
	ErrUnknownImage = errors.New("unknown image")
)

// Dataset lists image stems per city. A city is "<split>/<city>".
type Dataset struct {
	cities map[string][]string
}

// Discover finds leftImg8bit/<split>/<city>/<stem>_leftImg8bit.png under
// root.
func Discover(fsys fsutil.FileSystem, root string) (*Dataset, error) {
	matches, err := fsys.Glob(filepath.Join(root, "leftImg8bit", "*", "*", "*"+ImageSuffix))
	if err != nil {
		return nil, err
	}
	ds := &Dataset{cities: make(map[string][]string)}
	base := filepath.Join(root, "leftImg8bit")
	for _, m := range matches {
		rel, err := filepath.Rel(base, m)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			continue
		}
		city := parts[0] + "/" + parts[1]
		ds.cities[city] = append(ds.cities[city], strings.TrimSuffix(parts[2], ImageSuffix))
	}
	for _, stems := range ds.cities {
		sort.Strings(stems)
	}
	if len(ds.cities) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrEmpty, root)
	}
	return ds, nil
}

// Cities returns the discovered cities, sorted.
func (d *Dataset) Cities() []string {
	out := make([]string, 0, len(d.cities))
	for c := range d.cities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Stems returns the sorted image stems of city.
func (d *Dataset) Stems(city string) ([]string, error) {
	stems, ok := d.cities[city]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	return append([]string(nil), stems...), nil
}

// Cursor is a position in a Dataset.
type Cursor struct {
	ds   *Dataset
	city string
	pos  int
}

// NewCursor starts at the first image of the first city.
func NewCursor(ds *Dataset) (*Cursor, error) {
	cities := ds.Cities()
	if len(cities) == 0 {
		return nil, ErrEmpty
	}
	return &Cursor{ds: ds, city: cities[0]}, nil
}

// City returns the current city.
func (c *Cursor) City() string { return c.city }

// Stem returns the current image stem.
func (c *Cursor) Stem() string { return c.ds.cities[c.city][c.pos] }

// Key returns "<split>/<city>/<stem>".
func (c *Cursor) Key() string { return c.city + "/" + c.Stem() }

// SetCity moves to the first image of city.
func (c *Cursor) SetCity(city string) error {
	if _, ok := c.ds.cities[city]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	c.city, c.pos = city, 0
	return nil
}

// SetStem moves to stem within the current city.
func (c *Cursor) SetStem(stem string) error {
	stems := c.ds.cities[c.city]
	i := sort.SearchStrings(stems, stem)
	if i == len(stems) || stems[i] != stem {
		return fmt.Errorf("%w: %s in %s", ErrUnknownImage, stem, c.city)
	}
	c.pos = i
	return nil
}

// Next moves to the following image, wrapping to the first of the city.
func (c *Cursor) Next() {
	c.pos = (c.pos + 1) % len(c.ds.cities[c.city])
}

// Prev moves to the previous image, wrapping to the last of the city.
func (c *Cursor) Prev() {
	n := len(c.ds.cities[c.city])
	c.pos = (c.pos - 1 + n) % n
}

// Paths resolves the files of an image key.
type Paths struct {
	CityscapesDir string
	VideoDir      string
	LightsDir     string
}

func (p Paths) join(dir, key, suffix string) string {
	return filepath.Join(dir, filepath.FromSlash(key)+suffix)
}

// Image returns the camera frame.
func (p Paths) Image(key string) string {
	return p.join(filepath.Join(p.CityscapesDir, "leftImg8bit"), key, ImageSuffix)
}

// Label returns the stock Cityscapes polygon file.
func (p Paths) Label(key string) string {
	return p.join(filepath.Join(p.CityscapesDir, "gtFine"), key, LabelSuffix)
}

// Lights returns the traffic light label file that is edited.
func (p Paths) Lights(key string) string {
	return p.join(p.LightsDir, key, LabelSuffix)
}

// Video returns the sequence video.
func (p Paths) Video(key string) string {
	return p.join(p.VideoDir, key, VideoSuffix)
}

// Vehicle returns the vehicle metadata file.
func (p Paths) Vehicle(key string) string {
	return p.join(filepath.Join(p.CityscapesDir, "vehicle"), key, VehicleSuffix)
}

// OpenStore opens the traffic light labels of key with their depth
// metrics. depths may be nil.
func (p Paths) OpenStore(fsys fsutil.FileSystem, key string, depths *depth.Index) (*label.Store, error) {
	return label.Open(fsys, p.Lights(key), depths.For(key))
}
