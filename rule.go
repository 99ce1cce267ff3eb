package pointer

import "golang.org/x/tools/go/ssa"

// RuleTag identifies the shape of a Rule. These are the only shapes the
// solver knows how to apply; there is no escape hatch for ad-hoc variants.
type RuleTag int

const (
	// RuleAlloc is "L = ALLOC": L points to a fresh abstract object named
	// by Site.
	RuleAlloc RuleTag = iota
	// RuleNull is "L = NULL": L points to null.
	RuleNull
	// RuleCopy is "L = R": L's set grows to include R's set.
	RuleCopy
	// RuleGEP is "L = GEP(R)": field/index projection. Off and Array carry
	// the projection computed at extraction time (see gep.go).
	RuleGEP
	// RuleAddrOf is "L = &R": L points to R at offset 0.
	RuleAddrOf
	// RuleLoad is "L = *R": for every p in set(R), L's set grows to
	// include set(p).
	RuleLoad
	// RuleStoreNull is "*L = NULL": every pointee of L gains null.
	RuleStoreNull
	// RuleStore is "*L = R": every pointee of L's set grows to include
	// R's set.
	RuleStore
	// RuleStoreAddrOf is "*L = &R": every pointee of L gains (R, 0).
	RuleStoreAddrOf
	// RuleStoreLoad is "*L = *R": every pointee of L is treated as the
	// target of a load from R.
	RuleStoreLoad
	// RuleDealloc is a no-op in the current semantics; it exists so that
	// deallocation sites are visible to callers who want to look for them.
	RuleDealloc
)

// Rule is a single canonical pointer-assignment constraint. It is the only
// currency the extractor (component C) and the call matcher (component B)
// deal in; the solver (component D) knows how to apply every shape above and
// nothing else.
type Rule struct {
	Tag RuleTag

	// L and R are the value operands of the rule. Their meaning depends on
	// Tag; see the RuleTag doc comments. Site is populated only for
	// RuleAlloc and RuleDealloc, naming the allocation/deallocation site.
	L, R, Site ssa.Value

	// Off and Array are populated only for RuleGEP: Off is the
	// statically-known offset accumulated from constant indices, and
	// Array records whether any sequential (array/slice) index
	// contributed to it. See gep.go for how these are computed and
	// applied.
	Off   int64
	Array bool
}

// VarAlloc builds "L = ALLOC(site)".
func VarAlloc(l, site ssa.Value) Rule { return Rule{Tag: RuleAlloc, L: l, Site: site} }

// VarNull builds "L = NULL".
func VarNull(l ssa.Value) Rule { return Rule{Tag: RuleNull, L: l} }

// VarCopy builds "L = R".
func VarCopy(l, r ssa.Value) Rule { return Rule{Tag: RuleCopy, L: l, R: r} }

// VarGEP builds "L = GEP(R)" with a precomputed offset.
func VarGEP(l, r ssa.Value, off int64, array bool) Rule {
	return Rule{Tag: RuleGEP, L: l, R: r, Off: off, Array: array}
}

// VarAddrOf builds "L = &R".
func VarAddrOf(l, r ssa.Value) Rule { return Rule{Tag: RuleAddrOf, L: l, R: r} }

// VarLoad builds "L = *R".
func VarLoad(l, r ssa.Value) Rule { return Rule{Tag: RuleLoad, L: l, R: r} }

// StoreNull builds "*L = NULL".
func StoreNull(l ssa.Value) Rule { return Rule{Tag: RuleStoreNull, L: l} }

// StoreVar builds "*L = R".
func StoreVar(l, r ssa.Value) Rule { return Rule{Tag: RuleStore, L: l, R: r} }

// StoreAddrOf builds "*L = &R".
func StoreAddrOf(l, r ssa.Value) Rule { return Rule{Tag: RuleStoreAddrOf, L: l, R: r} }

// StoreLoad builds "*L = *R".
func StoreLoad(l, r ssa.Value) Rule { return Rule{Tag: RuleStoreLoad, L: l, R: r} }

// DeallocSite builds a DEALLOC rule for site.
func DeallocSite(site ssa.Value) Rule { return Rule{Tag: RuleDealloc, Site: site} }

// RuleSink is an append-only sequence of rules. The extractor and call
// matcher write to it; they never read it back. RuleList is the only
// concrete implementation used in this module, but callers are free to
// substitute their own (e.g. to filter or count rules while they're being
// produced).
type RuleSink interface {
	Emit(Rule)
}

// RuleList is a RuleSink backed by a plain slice, growing in the order rules
// are emitted. Order matters: the solver replays rules in this order every
// pass, which affects how many passes are needed to reach a fixed point but
// never the fixed point itself.
type RuleList []Rule

// Emit appends r to the list.
func (l *RuleList) Emit(r Rule) { *l = append(*l, r) }
