package changeset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tlabel/internal/label"
)

func poly(pts ...float64) label.Polygon {
	var p label.Polygon
	for i := 0; i+1 < len(pts); i += 2 {
		p = append(p, label.Point{pts[i], pts[i+1]})
	}
	return p
}

func light(p label.Polygon, state string) label.Object {
	o := label.Object{Label: label.TrafficLight, Polygon: p}
	if state != "" {
		o.Attributes = &label.Attributes{State: label.Text(state)}
	}
	return o
}

func objectsEqual(t *testing.T, want, got []label.Object) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if !want[i].Equal(got[i]) {
			w, _ := json.Marshal(want[i])
			g, _ := json.Marshal(got[i])
			t.Fatalf("object %d differs:\nwant %s\n got %s", i, w, g)
		}
	}
}

// Scenario objects: A is deleted, B keeps its polygon with new attributes,
// C is new.
var (
	polyA = poly(0, 0, 1, 0, 1, 1)
	polyB = poly(5, 5, 6, 5, 6, 6)
	polyC = poly(9, 9, 10, 9, 10, 10)
)
