package pointer

import (
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/flowptr/andersen/layout"
)

// crowdingLimit and crowdingEarlyOut implement the drop-on-crowding rule:
// once a destination set already holds at least crowdingLimit entries
// sharing a base value, further entries for that base are dropped. This is
// what keeps recursive structures (linked lists, trees) from growing an
// unbounded offset chain before the fixed point is reached. crowdingEarlyOut
// bounds the cost of the check on sets that are already large.
const (
	crowdingLimit    = 3
	crowdingEarlyOut = 5
)

// arrayCap is the largest offset a sequential (array/slice) index is allowed
// to contribute before being clamped. This is a deliberate unsoundness: wide
// indices into large arrays are folded together rather than tracked
// precisely, trading precision for termination and bounded memory.
const arrayCap = 64

// gepOffset computes the statically-known offset of a field/index
// projection and whether a sequential (array-like) index contributed to it,
// per §4.3. instr must be *ssa.FieldAddr or *ssa.IndexAddr.
func gepOffset(sizes layout.Sizes, instr ssa.Instruction) (off int64, array bool) {
	switch i := instr.(type) {
	case *ssa.FieldAddr:
		st := mustStructUnderPointer(i.X.Type())
		return sizes.FieldOffset(st, i.Field), false

	case *ssa.IndexAddr:
		elem := indexedElementType(i.X.Type())
		size := sizes.StoreSize(elem)

		if c, ok := i.Index.(*ssa.Const); ok && c.Value != nil {
			return c.Int64() * size, true
		}
		// A non-constant index is an over-approximation: it contributes no
		// offset and is not marked "array" on its own, but any later
		// constant-index projection through the same base still
		// accumulates on top of it normally.
		return 0, false

	default:
		panic("pointer: gepOffset called on a non-GEP instruction")
	}
}

func mustStructUnderPointer(t types.Type) *types.Struct {
	ptr, ok := t.Underlying().(*types.Pointer)
	if !ok {
		panic("pointer: FieldAddr base is not a pointer type")
	}
	st, ok := ptr.Elem().Underlying().(*types.Struct)
	if !ok {
		panic("pointer: FieldAddr base does not point to a struct")
	}
	return st
}

// indexedElementType returns the element type addressed by an IndexAddr
// whose base has type t: either *array or a slice.
func indexedElementType(t types.Type) types.Type {
	switch u := t.Underlying().(type) {
	case *types.Pointer:
		if arr, ok := u.Elem().Underlying().(*types.Array); ok {
			return arr.Elem()
		}
	case *types.Slice:
		return u.Elem()
	}
	panic("pointer: IndexAddr base is neither *array nor slice")
}

// projectAllocSize returns the allocation size to compare against for the
// overflow check in applyGEP, and whether base is a "sized" object the
// check applies to at all (global-with-initializer or non-array alloca; an
// array-backed alloca or anything else is exempt, matching the source's
// narrower check).
func projectAllocSize(sizes layout.Sizes, base ssa.Value) (size int64, sized bool) {
	switch v := base.(type) {
	case *ssa.Global:
		elem := v.Type().(*types.Pointer).Elem()
		return sizes.AllocSize(elem), true

	case *ssa.Alloc:
		elem := v.Type().(*types.Pointer).Elem()
		if _, isArray := elem.Underlying().(*types.Array); isArray {
			return 0, false
		}
		return sizes.AllocSize(elem), true

	default:
		return 0, false
	}
}

// applyGEP implements steps 1-6 of §4.3 for one entry (rval, rOff) drawn
// from the base pointer's points-to set, inserting into dst as appropriate.
// It reports whether dst grew.
func applyGEP(sizes layout.Sizes, dst PTSet, rval ssa.Value, rOff int, off int64, array bool) bool {
	if off != 0 {
		if _, isFunc := rval.(*ssa.Function); isFunc {
			return false
		}
		if rval == nil || isNullConstant(rval) {
			return false
		}
	}

	sum := int64(rOff) + off

	if size, sized := projectAllocSize(sizes, rval); sized && sum >= size {
		return false
	}

	if dst.CountValue(rval, crowdingEarlyOut) >= crowdingLimit {
		return false
	}

	if sum < 0 {
		sum = 0
	}
	if array && sum > arrayCap {
		sum = arrayCap
	}

	return dst.add(Loc{Value: rval, Offset: int(sum)})
}
