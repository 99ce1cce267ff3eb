package pointer

import (
	"fmt"

	"golang.org/x/tools/go/ssa"
)

// This file renders abstract objects (allocation sites, or a field/element
// projection of one) as human-readable access paths, for use by
// PointsToGraph's dump output. The teacher's Go-team-compatible
// AllocationSite/FieldPointer/ElementPointer label hierarchy models access
// paths as types; this analysis already has a ground offset number for every
// projection (gep.go) and a site value for every allocation, so a label is
// just a (site, offset) pair printed with enough context to be readable,
// rather than a distinct type hierarchy.

// describeLabel renders p as an access path rooted at its allocation site:
// "site" for the site itself, "site+N" for a field/element projection N
// bytes into it.
func describeLabel(p Loc) string {
	if p.Value == nil {
		return "<null>"
	}
	if fn, ok := p.Value.(*ssa.Function); ok {
		return fn.String()
	}
	if p.Offset == 0 {
		return siteName(p.Value)
	}
	return fmt.Sprintf("%s+%d", siteName(p.Value), p.Offset)
}

// siteName renders the allocation-site value itself, preferring the name
// Go's SSA builder already assigned (register name, global path, or
// parameter name) over a raw pointer-ish Stringer dump.
func siteName(v ssa.Value) string {
	if n, ok := v.(interface{ Name() string }); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return v.String()
}
