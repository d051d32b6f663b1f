package changeset

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/tlabel/internal/label"
)

func TestMatch_Scenario(t *testing.T) {
	original := []label.Object{light(polyA, "red"), light(polyB, "red")}
	updated := []label.Object{light(polyB, "green"), light(polyC, "off")}

	got := Match(original, updated)

	want := Correspondence{
		UpdatedToOriginal: map[int]int{0: 1},
		OnlyInOriginal:    []int{0},
		OnlyInUpdated:     []int{1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch_FiltersByLabelOnly(t *testing.T) {
	car := label.Object{Label: "car", Polygon: polyA}
	deleted := light(polyB, "")
	deleted.Deleted = json.RawMessage("1")

	original := []label.Object{car, deleted}
	updated := []label.Object{{Label: "car", Polygon: polyA}, light(polyB, "red")}

	got := Match(original, updated)

	assert.Equal(t, map[int]int{1: 1}, got.UpdatedToOriginal)
	assert.Empty(t, got.OnlyInOriginal)
	assert.Empty(t, got.OnlyInUpdated)
}

func TestMatch_DuplicatePolygonsTakeFirstOriginal(t *testing.T) {
	original := []label.Object{light(polyA, "red"), light(polyA, "green"), light(polyB, "off")}
	updated := []label.Object{light(polyA, "yellow"), light(polyA, "unknown")}

	got := Match(original, updated)

	// Both updated copies map to original 0; original 1 is left over even
	// though its polygon also appears in updated.
	assert.Equal(t, map[int]int{0: 0, 1: 0}, got.UpdatedToOriginal)
	assert.Equal(t, []int{1, 2}, got.OnlyInOriginal)
	assert.Empty(t, got.OnlyInUpdated)
}

func TestMatch_PolygonOrderMatters(t *testing.T) {
	original := []label.Object{light(poly(0, 0, 1, 1), "")}
	updated := []label.Object{light(poly(1, 1, 0, 0), "")}

	got := Match(original, updated)

	assert.Empty(t, got.UpdatedToOriginal)
	assert.Equal(t, []int{0}, got.OnlyInOriginal)
	assert.Equal(t, []int{0}, got.OnlyInUpdated)
}

func TestMatch_DeterministicPartition(t *testing.T) {
	original := []label.Object{
		light(polyA, ""), {Label: "road"}, light(polyB, ""), light(polyB, ""), light(polyC, ""),
	}
	updated := []label.Object{
		light(polyC, ""), light(poly(7, 7), ""), {Label: "sky"}, light(polyB, ""), light(polyA, ""),
	}

	first := Match(original, updated)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Match(original, updated), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("Match not deterministic (-first +again):\n%s", diff)
		}
	}

	for u, o := range updated {
		if !o.IsTrafficLight() {
			continue
		}
		_, matched := first.UpdatedToOriginal[u]
		created := false
		for _, c := range first.OnlyInUpdated {
			created = created || c == u
		}
		assert.True(t, matched != created, "updated %d must be matched xor created", u)
	}
}
