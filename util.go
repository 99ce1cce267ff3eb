package pointer

import "go/types"

// PointerLike reports whether t denotes a value that can alias something
// else: an actual pointer, or one of Go's other reference-like types (map,
// channel, slice, interface, function value).
func PointerLike(t types.Type) bool {
	switch t := t.(type) {
	case *types.Pointer,
		*types.Map,
		*types.Chan,
		*types.Slice,
		*types.Interface,
		*types.Signature:
		return true
	case *types.Named:
		return PointerLike(t.Underlying())
	default:
		return false
	}
}
