package pointer

import (
	"fmt"

	"golang.org/x/tools/go/ssa"

	"github.com/flowptr/andersen/internal/maps"
	"github.com/flowptr/andersen/slices"
)

// PointsTo returns the set of abstract objects v may point at. It panics if
// v is not pointer-like. The returned slice is a snapshot; mutating it has no
// effect on the analysis.
func (r Result) PointsTo(v ssa.Value) []Pointee {
	if !PointerLike(v.Type()) {
		panic(fmt.Errorf("pointer: %v is not pointer-like", v))
	}

	set := getPointsToSet(r.sets, v, SelfOffset)
	return maps.Keys(set)
}

// MayAlias reports whether a and b's points-to sets share any pointee,
// i.e. whether they could denote the same memory at runtime under this
// analysis's approximation.
func (r Result) MayAlias(a, b ssa.Value) bool {
	sa := getPointsToSet(r.sets, a, SelfOffset)
	sb := getPointsToSet(r.sets, b, SelfOffset)
	if len(sa) > len(sb) {
		sa, sb = sb, sa
	}
	for p := range sa {
		if sb.Has(p) {
			return true
		}
	}
	return false
}

// PointsToSubset reports whether everything a may point at is also
// something b may point at, i.e. whether b's points-to set is a safe
// over-approximation of a's. Unlike MayAlias this is not symmetric.
func (r Result) PointsToSubset(a, b ssa.Value) bool {
	sa := maps.Keys(getPointsToSet(r.sets, a, SelfOffset))
	sb := maps.Keys(getPointsToSet(r.sets, b, SelfOffset))
	return slices.Subset(sa, sb)
}

// Sets returns the raw solved points-to map. Callers must not mutate it.
func (r Result) Sets() PointsToSets { return r.sets }

// Graph returns the pointer-equivalence graph view, or nil if
// AnalysisConfig.BuildGraph was false.
func (r Result) Graph() *PointsToGraph { return r.graph }

// Reachable reports every function the whole-program SSA builder
// discovered. The analysis is whole-program rather than demand-driven, so
// this is every function in the module, not a reachability result computed
// by the solver itself.
func (r Result) Reachable() map[*ssa.Function]bool { return r.ctx.fns }
