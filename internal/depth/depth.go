// Package depth reads the per-object depth metrics produced by the box
// extraction step (all_boxes.txt) and serves them by image key.
package depth

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/tlabel/internal/fsutil"
)

// LabelSuffix ends every polygon label file name.
const LabelSuffix = "_gtFine_polygons.json"

// Options controls how file names in the box list become image keys.
type Options struct {
	// Prefix is stripped from file names, together with the "/gtFine/"
	// that follows it.
	Prefix string
	// Class keeps only boxes of this class id. Empty keeps all.
	Class string
}

// Index maps an image key ("train/aachen/aachen_000000_000019") to the
// depth metric of each object index.
type Index struct {
	byKey map[string]map[int]float64
}

// Load reads a box list from fsys.
func Load(fsys fsutil.FileSystem, path string, opts Options) (*Index, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read depth file: %w", err)
	}
	idx, err := Parse(bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Parse reads lines of the form
//
//	<file> <class> <x1> <x2> <y1> <y2> <depth> <index>
//
// Non-finite depths are stored as 0. Blank lines are ignored.
func Parse(r io.Reader, opts Options) (*Index, error) {
	idx := &Index{byKey: make(map[string]map[int]float64)}
	strip := ""
	if opts.Prefix != "" {
		strip = strings.TrimSuffix(opts.Prefix, "/") + "/gtFine/"
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 8 {
			return nil, fmt.Errorf("line %d: want 8 fields, got %d", line, len(fields))
		}
		fn, cls, depthStr, objStr := fields[0], fields[1], fields[6], fields[7]

		key := strings.TrimSuffix(strings.TrimPrefix(fn, strip), LabelSuffix)
		if _, ok := idx.byKey[key]; !ok {
			idx.byKey[key] = make(map[int]float64)
		}
		if opts.Class != "" && cls != opts.Class {
			continue
		}
		obj, err := strconv.Atoi(objStr)
		if err != nil {
			return nil, fmt.Errorf("line %d: object index %q: %w", line, objStr, err)
		}
		d, err := strconv.ParseFloat(depthStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: depth %q: %w", line, depthStr, err)
		}
		if math.IsNaN(d) || math.IsInf(d, 0) {
			d = 0
		}
		idx.byKey[key][obj] = d
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}

// For returns a copy of the depths of one image, nil when the image is
// unknown. A nil Index has no depths.
func (x *Index) For(key string) map[int]float64 {
	if x == nil {
		return nil
	}
	m, ok := x.byKey[key]
	if !ok {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the image keys in sorted order.
func (x *Index) Keys() []string {
	if x == nil {
		return nil
	}
	keys := make([]string, 0, len(x.byKey))
	for k := range x.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of images.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.byKey)
}
