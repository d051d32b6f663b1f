package testutil

import (
	"testing"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

func TestAttrs(t *testing.T) {
	a := Attrs(t, "relevant", "yes", "depth", "12.5", "state", "red")

	if got := a.Value(label.KeyRelevant); got != "yes" {
		t.Errorf("relevant = %q, want yes", got)
	}
	if d, ok := a.Depth.Float(); !ok || d != 12.5 {
		t.Errorf("depth = %v (%v), want 12.5", d, ok)
	}
	if a.Type.IsSet() {
		t.Errorf("type should be unset, got %v", a.Type)
	}
}

func TestLight(t *testing.T) {
	if o := Light("", nil); o.ID != nil || !o.IsLive() {
		t.Errorf("Light(\"\") = %+v, want a live light without id", o)
	}
	if got := Light(`"a"`, nil).IDString(); got != "a" {
		t.Errorf("IDString() = %q, want a", got)
	}
}

func TestWriteAndReadLabels(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	WriteLabels(t, mfs, "/gt/a.json", Light("1", nil), label.Object{Label: "sky"})

	f := ReadLabels(t, mfs, "/gt/a.json")
	if len(f.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(f.Objects))
	}
	if !f.Objects[0].IsTrafficLight() {
		t.Errorf("first object = %q, want a traffic light", f.Objects[0].Label)
	}
}
