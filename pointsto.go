package pointer

import (
	"fmt"
	"log"

	"golang.org/x/tools/go/ssa"
)

// SelfOffset is the sentinel offset meaning "the variable itself", i.e. no
// field projection.
const SelfOffset = -1

// Loc is a (value, offset) pair. As a Pointer it keys the points-to map,
// where Offset may be SelfOffset. As a Pointee it is an element of a
// points-to set, where Offset is always >= 0 except when Value is a function
// symbol or the null value, in which case Offset is always 0.
type Loc struct {
	Value  ssa.Value
	Offset int
}

func (l Loc) String() string {
	if l.Offset == SelfOffset {
		return fmt.Sprintf("%v", l.Value)
	}
	return fmt.Sprintf("%v+%d", l.Value, l.Offset)
}

// Pointer is a points-to map key: a program value together with the field
// offset being queried (or SelfOffset for the whole variable).
type Pointer = Loc

// Pointee is an abstract memory location that a Pointer may point to.
type Pointee = Loc

// PTSet is a set of Pointees. The zero value is a usable (but immutable)
// empty set; use make(PTSet) to obtain a mutable one.
type PTSet map[Pointee]struct{}

// Has reports whether p is in the set.
func (s PTSet) Has(p Pointee) bool {
	_, ok := s[p]
	return ok
}

// CountValue reports how many entries in the set share Value v, capping the
// scan at max once that many have been found (the crowding rule in gep.go
// only needs to know whether the count has crossed a threshold, not the
// exact count on a large set).
func (s PTSet) CountValue(v ssa.Value, max int) int {
	n := 0
	for p := range s {
		if p.Value == v {
			n++
			if n >= max {
				break
			}
		}
	}
	return n
}

// addAll copies every element of other into s, reporting whether s grew.
func (s PTSet) addAll(other PTSet) bool {
	grew := false
	for p := range other {
		if _, ok := s[p]; !ok {
			s[p] = struct{}{}
			grew = true
		}
	}
	return grew
}

// add inserts a single Pointee, reporting whether the set grew.
func (s PTSet) add(p Pointee) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// PointsToSets maps every Pointer that has been mentioned by a rule to its
// current points-to set. A missing key is semantically the empty set;
// getPointsToSet makes that explicit and logs when it happens, per §3/§4.5.
type PointsToSets map[Pointer]PTSet

// set returns the (possibly newly allocated) mutable set for p, creating an
// entry if none exists. Used internally by the solver, which always intends
// to grow the set it looks up.
func (s PointsToSets) set(p Pointer) PTSet {
	set, ok := s[p]
	if !ok {
		set = make(PTSet)
		s[p] = set
	}
	return set
}

var emptyPTSet = PTSet{}

// getPointsToSet returns the points-to set for (v, idx), or the shared empty
// set if none has been recorded. A missing key is not an error, since most
// non-pointer values never appear as keys, but it is worth a diagnostic: a
// caller expecting a populated set usually wants to see this in the logs.
func getPointsToSet(s PointsToSets, v ssa.Value, idx int) PTSet {
	set, ok := s[Loc{Value: v, Offset: idx}]
	if !ok {
		log.Printf("pointer: no points-to set recorded for %v+%d", v, idx)
		return emptyPTSet
	}
	return set
}
