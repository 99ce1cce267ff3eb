package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGraphRoundTrip covers property 8: flattening a PointsToGraph built
// from a solved PointsToSets reproduces every pointer/pointee edge the
// solver itself recorded, once the graph is read back with
// ToPointsToSets.
func TestGraphRoundTrip(t *testing.T) {
	vs := syntheticValues(t, 4)
	p, q, obj1, obj2 := vs[0], vs[1], vs[2], vs[3]

	original := PointsToSets{
		selfLoc(p): {
			{Value: obj1, Offset: 0}: {},
			{Value: obj2, Offset: 0}: {},
		},
		selfLoc(q): {
			{Value: obj1, Offset: 0}: {},
		},
	}

	g := NewPointsToGraph(SameValueCategory)
	for k, set := range original {
		for pointee := range set {
			g.Insert(k, pointee)
		}
	}

	flattened := g.ToPointsToSets()

	for k, set := range original {
		for pointee := range set {
			assert.True(t, flattened[k].Has(pointee),
				"flattened graph should still contain %v -> %v", k, pointee)
		}
	}
}

// TestGraphInsertDeduplicates checks that inserting the same (pointer,
// pointee) pair twice does not grow the graph or report a second change.
func TestGraphInsertDeduplicates(t *testing.T) {
	vs := syntheticValues(t, 2)
	p, obj := vs[0], vs[1]

	g := NewPointsToGraph(SameValueCategory)
	loc := selfLoc(p)
	pointee := Loc{Value: obj, Offset: 0}

	assert.True(t, g.Insert(loc, pointee))
	assert.False(t, g.Insert(loc, pointee), "re-inserting the same edge must report no change")
}

// TestGraphInsertSetOrsChanges covers the set-argument overload: it must
// report changed even when only one of several locations is actually new,
// and report unchanged once every location has already been recorded.
func TestGraphInsertSetOrsChanges(t *testing.T) {
	vs := syntheticValues(t, 3)
	p, obj1, obj2 := vs[0], vs[1], vs[2]

	g := NewPointsToGraph(SameValueCategory)
	loc := selfLoc(p)
	locations := []Loc{{Value: obj1, Offset: 0}, {Value: obj2, Offset: 0}}

	g.Insert(loc, locations[0])

	assert.True(t, g.InsertSet(loc, locations),
		"InsertSet must report changed if any single location is new, even if others are already present")

	assert.False(t, g.InsertSet(loc, locations),
		"InsertSet must report unchanged once every location is already recorded")
}

// TestGraphCoarserCategoryMerges checks that a coarser CategoryFunc folds
// pointees that the default SameValueCategory would keep in separate
// nodes, demonstrating component E's categorization hook.
func TestGraphCoarserCategoryMerges(t *testing.T) {
	vs := syntheticValues(t, 2)
	p, obj := vs[0], vs[1]

	alwaysSame := func(a, b Loc) bool { return true }

	g := NewPointsToGraph(alwaysSame)
	loc := selfLoc(p)

	g.Insert(loc, Loc{Value: obj, Offset: 0})
	g.Insert(loc, Loc{Value: obj, Offset: 8})

	flattened := g.ToPointsToSets()
	assert.Len(t, flattened[loc], 2, "both offsets should still be reachable, merged into one successor node")
}
