package pointer

import (
	"fmt"
	"strings"
)

// nodeID is an arena index into PointsToGraph.nodes, not an owning pointer:
// nodes never move once created, and edges refer to each other by index, so
// the node slice can be a plain growable arena with no cyclic ownership to
// unwind when the graph is discarded.
type nodeID int

type ptNode struct {
	elems map[Loc]struct{}
	succ  map[nodeID]struct{}
}

// CategoryFunc decides whether two pointees belong in the same graph node.
// The default, SameValueCategory, groups a pointee with itself only (node
// identity mirrors Loc identity); a caller may supply a coarser predicate,
// e.g. grouping every pointee that shares an allocation site regardless of
// offset.
type CategoryFunc func(a, b Loc) bool

// SameValueCategory is the default CategoryFunc: two pointees are the same
// category iff they are the same Loc.
func SameValueCategory(a, b Loc) bool { return a == b }

// PointsToGraph is component E, the pointer-equivalence graph view: a set of
// category-homogeneous nodes connected by directed edges, equivalent to
// (but generally more compact than) a PointsToSets once flattened via
// ToPointsToSets. It owns its nodes and its category predicate; there is
// nothing to release explicitly, since nodes hold no resources beyond maps
// the garbage collector reclaims on its own.
type PointsToGraph struct {
	category CategoryFunc
	nodes    []*ptNode
	index    map[Loc]nodeID
}

// NewPointsToGraph returns an empty graph using category to decide which
// pointees may share a node. A nil category defaults to SameValueCategory.
func NewPointsToGraph(category CategoryFunc) *PointsToGraph {
	if category == nil {
		category = SameValueCategory
	}
	return &PointsToGraph{category: category, index: map[Loc]nodeID{}}
}

func (g *PointsToGraph) newNode() nodeID {
	id := nodeID(len(g.nodes))
	g.nodes = append(g.nodes, &ptNode{elems: map[Loc]struct{}{}, succ: map[nodeID]struct{}{}})
	return id
}

func (g *PointsToGraph) addElem(id nodeID, loc Loc) bool {
	if _, ok := g.nodes[id].elems[loc]; ok {
		return false
	}
	g.nodes[id].elems[loc] = struct{}{}
	g.index[loc] = id
	return true
}

func (g *PointsToGraph) addEdge(from, to nodeID) bool {
	if _, ok := g.nodes[from].succ[to]; ok {
		return false
	}
	g.nodes[from].succ[to] = struct{}{}
	return true
}

func (g *PointsToGraph) findOrCreateNode(loc Loc) nodeID {
	if id, ok := g.index[loc]; ok {
		return id
	}
	id := g.newNode()
	g.addElem(id, loc)
	return id
}

func (g *PointsToGraph) nodeHasCategory(id nodeID, loc Loc) bool {
	for e := range g.nodes[id].elems {
		if g.category(e, loc) {
			return true
		}
	}
	return false
}

// Insert records that pointer may point at location, per §4.6: find or
// create pointer's node, then either fold location into a same-category
// successor node, attach an edge to location's existing node, or create a
// fresh node for it. Reports whether the graph changed.
func (g *PointsToGraph) Insert(pointer, location Loc) bool {
	pid := g.findOrCreateNode(pointer)

	for succID := range g.nodes[pid].succ {
		if g.nodeHasCategory(succID, location) {
			return g.addElem(succID, location)
		}
	}

	if locID, ok := g.index[location]; ok {
		return g.addEdge(pid, locID)
	}

	newID := g.newNode()
	g.addElem(newID, location)
	g.addEdge(pid, newID)
	return true
}

// InsertSet records that pointer may point at every location in locations,
// the set-argument overload from §9 Open Question 1 (the source's two-arg
// insert never returned anything; this ORs together each per-element
// Insert so a caller replaying a whole PTSet in one call still learns
// whether any of it was new). Reports whether the graph changed at all.
func (g *PointsToGraph) InsertSet(pointer Loc, locations []Loc) bool {
	changed := false
	for _, location := range locations {
		if g.Insert(pointer, location) {
			changed = true
		}
	}
	return changed
}

// InsertDerefPointee records that p aliases whatever loc already points at
// (loading through a pointee rather than a pointer, e.g. *VAR=*VAR's left
// side). If loc has no node yet, or its node has no outgoing edges, there is
// nothing to propagate and this is a no-op.
func (g *PointsToGraph) InsertDerefPointee(p, loc Loc) bool {
	locID, ok := g.index[loc]
	if !ok || len(g.nodes[locID].succ) == 0 {
		return false
	}

	pid := g.findOrCreateNode(p)
	changed := false
	for succ := range g.nodes[locID].succ {
		if g.addEdge(pid, succ) {
			changed = true
		}
	}
	return changed
}

// InsertDerefPointer records that everything p points at also points at loc
// (the dual of InsertDerefPointee, e.g. *VAR=*VAR's right side). If p has no
// node yet, or its node has no outgoing edges, this is a no-op.
func (g *PointsToGraph) InsertDerefPointer(p, loc Loc) bool {
	pid, ok := g.index[p]
	if !ok || len(g.nodes[pid].succ) == 0 {
		return false
	}

	locID := g.findOrCreateNode(loc)
	changed := false
	for succ := range g.nodes[pid].succ {
		if g.addEdge(succ, locID) {
			changed = true
		}
	}
	return changed
}

// ToPointsToSets flattens the graph into an explicit PointsToSets: for every
// node with outgoing edges, every element of that node maps to the union of
// every successor node's elements.
func (g *PointsToGraph) ToPointsToSets() PointsToSets {
	sets := make(PointsToSets)
	for _, node := range g.nodes {
		if len(node.succ) == 0 {
			continue
		}
		for e := range node.elems {
			dst := sets.set(e)
			for succID := range node.succ {
				for elem := range g.nodes[succID].elems {
					dst.add(elem)
				}
			}
		}
	}
	return sets
}

// String renders the graph as a node/edge listing for debugging, the
// Go-idiomatic replacement for the source's dump() writing to llvm::errs().
func (g *PointsToGraph) String() string {
	var b strings.Builder
	for id, node := range g.nodes {
		var elems []string
		for e := range node.elems {
			elems = append(elems, describeLabel(e))
		}
		fmt.Fprintf(&b, "n%d {%s}", id, strings.Join(elems, ", "))

		if len(node.succ) > 0 {
			var succs []string
			for s := range node.succ {
				succs = append(succs, fmt.Sprintf("n%d", s))
			}
			fmt.Fprintf(&b, " -> %s", strings.Join(succs, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
