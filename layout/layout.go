// Package layout answers the narrow set of data-layout queries the
// constraint extractor needs: the byte offset of a struct field, and the
// store/allocation size of a type. It wraps go/types' own layout engine
// rather than reimplementing one.
package layout

import "go/types"

// Sizes is a data layout, analogous to an LLVM DataLayout. The zero value is
// not usable; use Default.
type Sizes struct {
	sizes types.Sizes
}

// Default returns the layout used by the Go compiler on a 64-bit platform,
// which is the only layout this analysis needs: absolute byte offsets are
// only ever compared against each other, never against a real linked binary.
func Default() Sizes {
	return Sizes{sizes: types.SizesFor("gc", "amd64")}
}

// FieldOffset returns the byte offset of field i within t.
func (s Sizes) FieldOffset(t *types.Struct, i int) int64 {
	fields := make([]*types.Var, t.NumFields())
	for j := range fields {
		fields[j] = t.Field(j)
	}
	return s.sizes.Offsetsof(fields)[i]
}

// StoreSize returns the number of bytes occupied by a value of type t.
func (s Sizes) StoreSize(t types.Type) int64 {
	return s.sizes.Sizeof(t)
}

// AllocSize returns the number of bytes occupied by an object of type t when
// it is the sole occupant of an allocation (as opposed to an array element).
// For this analysis the two coincide: Go's sizer already accounts for a
// type's full extent, including trailing array elements.
func (s Sizes) AllocSize(t types.Type) int64 {
	return s.sizes.Sizeof(t)
}
