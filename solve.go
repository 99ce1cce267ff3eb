package pointer

import (
	"golang.org/x/tools/go/ssa"

	"github.com/flowptr/andersen/layout"
)

// Solve runs rules to a fixed point over an initially empty PointsToSets,
// per §4.5: naive round-robin, no worklist, terminating because every
// rule's effect is monotone. Rules are replayed in program order on every
// pass; this affects how many passes are needed but never the final result.
func Solve(rules []Rule, sizes layout.Sizes) PointsToSets {
	sets := make(PointsToSets)

	for {
		changed := false
		for _, r := range rules {
			if applyRule(sets, sizes, r) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	pruneByType(sets)
	return sets
}

// applyRule dispatches on r.Tag and performs the set update described in §3,
// reporting whether any destination set grew.
func applyRule(sets PointsToSets, sizes layout.Sizes, r Rule) bool {
	switch r.Tag {
	case RuleAlloc:
		return sets.set(selfLoc(r.L)).add(Loc{Value: r.Site, Offset: 0})

	case RuleNull:
		return sets.set(selfLoc(r.L)).add(NullPointee)

	case RuleCopy:
		return sets.set(selfLoc(r.L)).addAll(sets.set(selfLoc(r.R)))

	case RuleGEP:
		dst := sets.set(selfLoc(r.L))
		grew := false
		for p := range sets.set(selfLoc(r.R)) {
			if applyGEP(sizes, dst, p.Value, p.Offset, r.Off, r.Array) {
				grew = true
			}
		}
		return grew

	case RuleAddrOf:
		return sets.set(selfLoc(r.L)).add(Loc{Value: r.R, Offset: 0})

	case RuleLoad:
		dst := sets.set(selfLoc(r.L))
		grew := false
		for p := range sets.set(selfLoc(r.R)) {
			if dst.addAll(sets.set(Loc{Value: p.Value, Offset: p.Offset})) {
				grew = true
			}
		}
		return grew

	case RuleStoreNull:
		grew := false
		for p := range sets.set(selfLoc(r.L)) {
			if sets.set(Loc{Value: p.Value, Offset: p.Offset}).add(NullPointee) {
				grew = true
			}
		}
		return grew

	case RuleStore:
		src := sets.set(selfLoc(r.R))
		grew := false
		for p := range sets.set(selfLoc(r.L)) {
			if sets.set(Loc{Value: p.Value, Offset: p.Offset}).addAll(src) {
				grew = true
			}
		}
		return grew

	case RuleStoreAddrOf:
		grew := false
		for p := range sets.set(selfLoc(r.L)) {
			if sets.set(Loc{Value: p.Value, Offset: p.Offset}).add(Loc{Value: r.R, Offset: 0}) {
				grew = true
			}
		}
		return grew

	case RuleStoreLoad:
		grew := false
		for p := range sets.set(selfLoc(r.L)) {
			dst := sets.set(Loc{Value: p.Value, Offset: p.Offset})
			for q := range sets.set(selfLoc(r.R)) {
				if dst.addAll(sets.set(Loc{Value: q.Value, Offset: q.Offset})) {
					grew = true
				}
			}
		}
		return grew

	case RuleDealloc:
		// No-op in the current semantics: deallocation sites carry no
		// points-to effect, they merely exist so a caller can find them.
		return false

	default:
		panic("pointer: unknown rule tag")
	}
}

func selfLoc(v ssa.Value) Loc { return Loc{Value: v, Offset: SelfOffset} }

// NullPointee is the single shared pointee representing the nil pointer
// value, analogous to LLVM's ConstantPointerNull. Every nil-valued pointer
// in the program is recorded as pointing at this one sentinel rather than a
// per-type or per-site null constant, collapsing an already-untracked
// distinction (the analysis never inspects what a null pointer's static
// type was).
var NullPointee = Loc{Value: nil, Offset: 0}

// pruneByType removes every entry whose key's value is a function symbol: a
// function symbol is never itself a pointer variable, only ever a pointee
// (per §4.5's post-processing pass). The source's additional type-based
// pointee pruning is documented as buggy and is deliberately not
// implemented; see DESIGN.md, Open Question 2.
func pruneByType(sets PointsToSets) {
	for k := range sets {
		if _, ok := k.Value.(*ssa.Function); ok {
			delete(sets, k)
		}
	}
}
