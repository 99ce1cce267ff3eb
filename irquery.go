package pointer

import (
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// This file binds the capability contract of spec §6 ("External Interfaces")
// to golang.org/x/tools/go/ssa. See SPEC_FULL.md's IR BINDING table for the
// rationale behind each choice.

// isPointerValue reports whether v's type is pointer-like: an actual pointer,
// or one of the reference-like Go types (map, chan, slice, interface,
// function value) that behave like a pointer to a heap object for aliasing
// purposes. PointerLike itself lives in util.go, inherited unchanged from the
// teacher since it already expresses exactly this notion.
func isPointerValue(v ssa.Value) bool {
	return PointerLike(v.Type())
}

// hasExtraReference reports whether v denotes an address rather than a
// loaded value: globals, stack/heap allocations, and function symbols carry
// an implicit address-of, everything else does not.
func hasExtraReference(v ssa.Value) bool {
	switch v.(type) {
	case *ssa.Global, *ssa.Alloc, *ssa.Function:
		return true
	default:
		return false
	}
}

// elimConstExpr strips the one wrapper Go's SSA form uses to mean "same bits,
// different static type": *ssa.ChangeType. Everything else the extractor
// looks at is already the value it means.
func elimConstExpr(v ssa.Value) ssa.Value {
	for {
		ct, ok := v.(*ssa.ChangeType)
		if !ok {
			return v
		}
		v = ct.X
	}
}

// isNullConstant reports whether v is the constant nil value of a
// pointer-like type.
func isNullConstant(v ssa.Value) bool {
	c, ok := v.(*ssa.Const)
	return ok && c.IsNil()
}

// isInlineAssembly always returns false: Go's SSA form has no
// representation for an inline-assembly call site (assembly lives in
// separate .s files, invisible to the instruction stream). The check exists
// so the invariant from spec §4.2.3 is still asserted in extract.go, even
// though it can never trip for this IR binding.
func isInlineAssembly(ssa.CallInstruction) bool { return false }

// recognized memory-management call targets, keyed by the fully qualified
// function name (Function.String()). Anything calling one of these is
// classified as memory-management "other" (dropped) unless it also appears
// in allocationIntrinsics, in which case it is an ALLOC site instead.
var allocationIntrinsics = map[string]bool{
	"reflect.New":      true,
	"reflect.MakeSlice": true,
	"reflect.MakeMap":  true,
	"reflect.MakeChan": true,
}

var otherMemoryManagementIntrinsics = map[string]bool{
	"runtime.GC":            true,
	"runtime.SetFinalizer":  true,
	"runtime/debug.FreeOSMemory": true,
}

// isMemoryAllocation reports whether fn is a recognized allocation
// intrinsic.
func isMemoryAllocation(fn *ssa.Function) bool {
	return fn != nil && allocationIntrinsics[fn.String()]
}

// memoryManStuff reports whether fn is any recognized memory-management
// intrinsic, allocating or not.
func memoryManStuff(fn *ssa.Function) bool {
	return fn != nil && (allocationIntrinsics[fn.String()] || otherMemoryManagementIntrinsics[fn.String()])
}

// callToMemoryManStuff reports whether c's statically-known callee is a
// recognized memory-management intrinsic. Indirect calls are never
// classified this way, matching the source's treatment (memory-management
// recognition only applies to calls with a known target).
func callToMemoryManStuff(c ssa.CallInstruction) bool {
	return memoryManStuff(c.Common().StaticCallee())
}

// getCalleePrototype returns the static function type of an indirect call
// site's callee value.
func getCalleePrototype(c ssa.CallInstruction) *types.Signature {
	return c.Common().Signature()
}
