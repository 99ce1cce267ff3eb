package pointer

import (
	"go/types"
	"log"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/types/typeutil"
)

// compatibleTypes reports whether t1 and t2 may be passed for one another at
// a call boundary. All pointer types are treated as interchangeable (a
// bitcast-tolerant over-approximation, mirroring how the source transitively
// stripped pointer casts before comparing types); anything else must be
// identical.
func compatibleTypes(t1, t2 types.Type) bool {
	if isPointerType(t1) && isPointerType(t2) {
		return true
	}
	return types.Identical(t1, t2)
}

// isPointerType reports whether t, after unwrapping any named-type alias, is
// a Go pointer type. Unlike PointerLike (used by the extractor to decide
// whether a value is worth tracking at all), this excludes maps, channels,
// and interfaces: the "pointer types are interchangeable" rule is specific
// to actual pointers, which is what a bitcast operates on.
func isPointerType(t types.Type) bool {
	for {
		named, ok := t.(*types.Named)
		if !ok {
			break
		}
		t = named.Underlying()
	}
	_, ok := t.(*types.Pointer)
	return ok
}

// resultType returns the type used to key and compare a signature's return
// value. A single result is compared as that result's own type (so the
// pointer-interchangeability rule in compatibleTypes applies to it); zero or
// multiple results compare as the whole result tuple.
func resultType(sig *types.Signature) types.Type {
	res := sig.Results()
	if res.Len() == 1 {
		return res.At(0).Type()
	}
	return res
}

// compatibleFunTypes reports whether two function signatures are compatible
// enough for one to stand in for the other at an indirect call site: their
// return types are compatible, and (unless either is variadic) they agree on
// parameter count, with every positional parameter in the common prefix
// compatible.
func compatibleFunTypes(f1, f2 *types.Signature) bool {
	p1, p2 := f1.Params().Len(), f2.Params().Len()
	if !f1.Variadic() && !f2.Variadic() && p1 != p2 {
		return false
	}
	if !compatibleTypes(resultType(f1), resultType(f2)) {
		return false
	}
	n := p1
	if p2 < n {
		n = p2
	}
	for i := 0; i < n; i++ {
		if !compatibleTypes(f1.Params().At(i).Type(), f2.Params().At(i).Type()) {
			return false
		}
	}
	return true
}

// pointerBucketKey is the canonical return-type key shared by every
// pointer-returning signature, so FM/CM bucket all of them together
// regardless of pointee type (mirroring compatibleTypes' treatment of
// pointers as interchangeable).
var pointerBucketKey = types.NewPointer(types.Typ[types.Invalid])

func canonicalReturnKey(t types.Type) types.Type {
	if isPointerType(t) {
		return pointerBucketKey
	}
	return t
}

type fmEntry struct {
	key types.Type
	fn  *ssa.Function
}

type cmEntry struct {
	key  types.Type
	call ssa.CallInstruction
}

// CallMatcher is component B: the call/return matcher. It is built once per
// analysis by walking every function in the program, and is then queried
// once per call instruction and once per return instruction during
// extraction. FM and CM are bucketed by typeutil.Hasher over the
// canonicalized return type, exactly the "multi-map keyed by the callee's
// return type" the source builds, reimplemented without a dependency on
// ordered multimap iterators (Go has none in the standard library).
type CallMatcher struct {
	hasher typeutil.Hasher
	fm     map[uint32][]fmEntry
	cm     map[uint32][]cmEntry
	warned int
}

// NewCallMatcher returns an empty CallMatcher. Callers build it up with
// BuildCallMaps before querying it.
func NewCallMatcher(hasher typeutil.Hasher) *CallMatcher {
	return &CallMatcher{hasher: hasher, fm: map[uint32][]fmEntry{}, cm: map[uint32][]cmEntry{}}
}

func (cm *CallMatcher) addFM(fn *ssa.Function) {
	key := canonicalReturnKey(resultType(fn.Signature))
	h := cm.hasher.Hash(key)
	cm.fm[h] = append(cm.fm[h], fmEntry{key: key, fn: fn})
}

func (cm *CallMatcher) addCM(call ssa.CallInstruction, sig *types.Signature) {
	key := canonicalReturnKey(resultType(sig))
	h := cm.hasher.Hash(key)
	cm.cm[h] = append(cm.cm[h], cmEntry{key: key, call: call})
}

// BuildCallMaps walks every instruction of every function in fns and
// populates FM and CM. fns must include every function reachable in the
// program, including synthetic wrappers and package init functions.
func (cm *CallMatcher) BuildCallMaps(fns []*ssa.Function) {
	for _, fn := range fns {
		if fn.Blocks == nil {
			// An external (declaration-only) function: it has no body to
			// walk and is never itself a legal direct-call target.
			continue
		}
		cm.addFM(fn)

		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instrs {
				switch i := instr.(type) {
				case ssa.CallInstruction:
					if isInlineAssembly(i) || callToMemoryManStuff(i) {
						continue
					}
					cm.addCM(i, getCalleePrototype(i))

				case *ssa.Store:
					// Reproduces the source's inclusion bug: an
					// address-taken function is only added to FM here if
					// it is itself flagged as memory-management
					// machinery, which is never true for an ordinary
					// function pointer stored to a variable. See
					// DESIGN.md, Open Question 3.
					if fn, ok := i.Val.(*ssa.Function); ok && memoryManStuff(fn) {
						cm.addFM(fn)
					}
				}
			}
		}
	}
}

func (cm *CallMatcher) lookupFM(sig *types.Signature) []fmEntry {
	key := canonicalReturnKey(resultType(sig))
	var out []fmEntry
	for _, e := range cm.fm[cm.hasher.Hash(key)] {
		if compatibleFunTypes(sig, e.fn.Signature) {
			out = append(out, e)
		}
	}
	return out
}

func (cm *CallMatcher) lookupCM(sig *types.Signature) []cmEntry {
	key := canonicalReturnKey(resultType(sig))
	var out []cmEntry
	for _, e := range cm.cm[cm.hasher.Hash(key)] {
		if compatibleFunTypes(sig, getCalleePrototype(e.call)) {
			out = append(out, e)
		}
	}
	return out
}

// argPassRuleCode emits the single rule governing how a pointer-typed value
// r flows into a pointer-typed slot l across a call boundary, LLVM's ABI
// having none of Go's implicit load/address-of distinctions. r's nil-ness is
// checked first since it short-circuits the "extra reference" logic
// entirely.
func argPassRuleCode(sink RuleSink, l, r ssa.Value) {
	if isNullConstant(r) {
		sink.Emit(VarNull(l))
		return
	}
	lRef, rRef := hasExtraReference(l), hasExtraReference(r)
	switch {
	case lRef && rRef:
		sink.Emit(VarCopy(l, r))
	case lRef && !rRef:
		sink.Emit(VarLoad(l, r))
	case !lRef && rRef:
		sink.Emit(VarAddrOf(l, r))
	default:
		sink.Emit(VarCopy(l, r))
	}
}

// emitDirectCall handles a call instruction whose callee f is statically
// known, whether it was resolved directly or is a candidate discovered for
// an indirect call site via FM.
func (cm *CallMatcher) emitDirectCall(sink RuleSink, call ssa.CallInstruction, f *ssa.Function) {
	if memoryManStuff(f) && !isMemoryAllocation(f) {
		return
	}
	if isMemoryAllocation(f) {
		if v, ok := call.(ssa.Value); ok {
			sink.Emit(VarAlloc(v, v))
		}
		return
	}

	args := call.Common().Args
	params := f.Params
	n := len(params)
	if len(args) < n {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		if isPointerValue(params[i]) {
			argPassRuleCode(sink, params[i], elimConstExpr(args[i]))
		}
	}
	if len(args) > n && cm.warned < 3 {
		log.Printf("pointer: skipped vararg arguments in call to %v (%d formal, %d actual)",
			f, len(params), len(args))
		cm.warned++
	}
}

// EmitCall dispatches a call instruction to the direct or indirect-call
// treatment and emits the resulting argument-passing rules to sink.
func (cm *CallMatcher) EmitCall(sink RuleSink, call ssa.CallInstruction) {
	if isInlineAssembly(call) {
		panic("pointer: inline assembly reached the call matcher")
	}

	if f := call.Common().StaticCallee(); f != nil {
		cm.emitDirectCall(sink, call, f)
		return
	}

	sig := getCalleePrototype(call)
	for _, cand := range cm.lookupFM(sig) {
		cm.emitDirectCall(sink, call, cand.fn)
	}
}

// EmitReturn handles a return of a pointer-typed value retVal from fn,
// looking up every call site that could plausibly have received it back and
// emitting the matching argument-passing rule. Only functions with exactly
// one result value participate: a Go function with multiple results returns
// a tuple that a caller must decompose with a separate extraction
// instruction, which has no analog in the single-return-register model this
// matcher was built against.
func (cm *CallMatcher) EmitReturn(sink RuleSink, fn *ssa.Function, retVal ssa.Value) {
	if retVal == nil || !isPointerValue(retVal) || fn.Signature.Results().Len() != 1 {
		return
	}

	for _, cand := range cm.lookupCM(fn.Signature) {
		if g := cand.call.Common().StaticCallee(); g != nil {
			if g != fn {
				continue
			}
		} else if !compatibleFunTypes(fn.Signature, getCalleePrototype(cand.call)) {
			continue
		}

		if v, ok := cand.call.(ssa.Value); ok {
			argPassRuleCode(sink, v, retVal)
		}
	}
}
