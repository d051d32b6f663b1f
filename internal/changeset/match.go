package changeset

import "github.com/banshee-data/tlabel/internal/label"

// Correspondence relates the traffic lights of two versions of one label
// file by polygon equality. Indices address the full object lists.
type Correspondence struct {
	// UpdatedToOriginal maps an updated index to its original index.
	UpdatedToOriginal map[int]int
	// OnlyInOriginal lists original indices no updated object matched.
	OnlyInOriginal []int
	// OnlyInUpdated lists updated indices that matched nothing.
	OnlyInUpdated []int
}

// Match pairs traffic lights of updated with traffic lights of original
// whose polygons are exactly equal. The deletion marker is not consulted.
//
// When a polygon occurs more than once, each updated index takes the first
// original index in ascending order. Several updated objects may therefore
// map to the same original object.
func Match(original, updated []label.Object) Correspondence {
	origIdx := trafficLightIndices(original)
	newIdx := trafficLightIndices(updated)

	c := Correspondence{UpdatedToOriginal: make(map[int]int)}
	matched := make(map[int]bool)
	for _, u := range newIdx {
		found := false
		for _, o := range origIdx {
			if original[o].Polygon.Equal(updated[u].Polygon) {
				c.UpdatedToOriginal[u] = o
				matched[o] = true
				found = true
				break
			}
		}
		if !found {
			c.OnlyInUpdated = append(c.OnlyInUpdated, u)
		}
	}
	for _, o := range origIdx {
		if !matched[o] {
			c.OnlyInOriginal = append(c.OnlyInOriginal, o)
		}
	}
	return c
}

func trafficLightIndices(objects []label.Object) []int {
	var idx []int
	for i, o := range objects {
		if o.IsTrafficLight() {
			idx = append(idx, i)
		}
	}
	return idx
}
