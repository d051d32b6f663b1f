// Package testutil provides shared fixtures for tests that build label
// trees.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

// Attrs builds attributes from key/value pairs. Values of "depth" that
// parse as numbers are stored as numbers.
func Attrs(t testing.TB, kv ...string) *label.Attributes {
	t.Helper()
	if len(kv)%2 != 0 {
		t.Fatalf("Attrs: odd number of arguments: %q", kv)
	}
	a := &label.Attributes{}
	for i := 0; i < len(kv); i += 2 {
		slot, ok := a.Slot(kv[i])
		if !ok {
			t.Fatalf("Attrs: unknown attribute %q", kv[i])
		}
		f := label.Text(kv[i+1])
		if kv[i] == label.KeyDepth {
			var v float64
			if err := json.Unmarshal([]byte(kv[i+1]), &v); err == nil {
				f = label.Number(v)
			}
		}
		*slot = f
	}
	return a
}

// Light returns a live traffic light. An empty id leaves the id absent.
func Light(id string, attrs *label.Attributes) label.Object {
	o := label.Object{Label: label.TrafficLight, Attributes: attrs}
	if id != "" {
		o.ID = json.RawMessage(id)
	}
	return o
}

// Box is an axis-aligned rectangle from x0 to x1.
func Box(x0, x1 float64) label.Polygon {
	return label.Polygon{{x0, 10}, {x1, 10}, {x1, 30}, {x0, 30}}
}

// WriteLabels writes a label file holding objs to path.
func WriteLabels(t testing.TB, fsys fsutil.FileSystem, path string, objs ...label.Object) {
	t.Helper()
	if err := label.WriteFile(fsys, path, &label.File{Objects: objs}); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadLabels reads the label file at path.
func ReadLabels(t testing.TB, fsys fsutil.FileSystem, path string) *label.File {
	t.Helper()
	f, err := label.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return f
}
