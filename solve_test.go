package pointer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/flowptr/andersen/layout"
	"github.com/flowptr/andersen/pkgutil"
)

// syntheticValues returns n distinct pointer-typed ssa.Values, each the
// Alloc instruction for a local "new(int)" in a throwaway function, so the
// solver unit tests below have real, properly-parented ssa.Value operands
// to build rules out of rather than hand-constructed zero values.
func syntheticValues(t *testing.T, n int) []ssa.Value {
	t.Helper()

	var b strings.Builder
	b.WriteString("package main\n\nfunc main() {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\tv%d := new(int)\n\t_ = v%d\n", i, i)
	}
	b.WriteString("}\n")

	pkgs, err := pkgutil.LoadPackagesFromSource(b.String())
	require.NoError(t, err)

	prog, spkgs := ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions)
	prog.Build()
	require.Len(t, spkgs, 1)

	var allocs []ssa.Value
	for _, block := range spkgs[0].Func("main").Blocks {
		for _, instr := range block.Instrs {
			if a, ok := instr.(*ssa.Alloc); ok {
				allocs = append(allocs, a)
			}
		}
	}
	require.Len(t, allocs, n)
	return allocs
}

// TestSolveMonotoneFixedPoint covers property 1: re-running Solve over the
// same rules, or over rules whose effect has already reached a fixed point,
// never changes the result.
func TestSolveMonotoneFixedPoint(t *testing.T) {
	vs := syntheticValues(t, 3)
	l, r, site := vs[0], vs[1], vs[2]

	rules := []Rule{
		VarAlloc(site, site),
		VarAddrOf(l, site),
		VarCopy(r, l),
	}

	sets1 := Solve(rules, layout.Default())
	sets2 := Solve(rules, layout.Default())
	assert.Equal(t, sets1, sets2, "re-running Solve over the same rules must be idempotent")

	changed := false
	for _, rule := range rules {
		if applyRule(sets1, layout.Default(), rule) {
			changed = true
		}
	}
	assert.False(t, changed, "applying rules again at a fixed point must not grow any set")
}

// TestSolvePrunesFunctionKeys covers property 3: a function symbol is never
// a key in the solved map, only ever a pointee.
func TestSolvePrunesFunctionKeys(t *testing.T) {
	prog := ssa.NewProgram(nil, 0)
	fn := prog.NewFunction("callee", nil, "callee")

	vs := syntheticValues(t, 1)
	l := vs[0]

	rules := []Rule{VarAddrOf(l, fn)}
	sets := Solve(rules, layout.Default())

	for k := range sets {
		_, isFunc := k.Value.(*ssa.Function)
		assert.False(t, isFunc, "a function symbol must never be a points-to map key")
	}
	assert.True(t, sets.set(selfLoc(l)).Has(Loc{Value: fn, Offset: 0}))
}

// TestApplyRuleAddrOfAndLoad covers properties 4 and 6: "L = &R" inserts R
// at offset 0, and "L = *R" propagates whatever R's pointees themselves
// point at.
func TestApplyRuleAddrOfAndLoad(t *testing.T) {
	vs := syntheticValues(t, 4)
	obj, p, q, r := vs[0], vs[1], vs[2], vs[3]

	sets := make(PointsToSets)
	sizes := layout.Default()

	assert.True(t, applyRule(sets, sizes, VarAlloc(obj, obj)))
	assert.True(t, applyRule(sets, sizes, VarAddrOf(p, obj)))
	assert.True(t, applyRule(sets, sizes, VarAddrOf(q, p)))
	// *q = p writes p's pointees into the memory q points at, (p, 0).
	assert.True(t, applyRule(sets, sizes, StoreVar(q, p)))

	// r = *q reads the memory q points at, (p, 0), which now holds obj.
	assert.True(t, applyRule(sets, sizes, VarLoad(r, q)))

	assert.True(t, sets.set(selfLoc(r)).Has(Loc{Value: obj, Offset: 0}))
	assert.False(t, applyRule(sets, sizes, VarLoad(r, q)), "re-applying at a fixed point must not grow the set")
}

// TestApplyRuleStoreClosure covers property 7: "*L = R" grows every pointee
// of L by R's full points-to set, and "*L = *R" composes the same through a
// load on the right-hand side.
func TestApplyRuleStoreClosure(t *testing.T) {
	vs := syntheticValues(t, 5)
	obj1, obj2, l, r, p := vs[0], vs[1], vs[2], vs[3], vs[4]

	sets := make(PointsToSets)
	sizes := layout.Default()

	applyRule(sets, sizes, VarAlloc(obj1, obj1))
	applyRule(sets, sizes, VarAlloc(obj2, obj2))
	applyRule(sets, sizes, VarAddrOf(l, obj1))
	applyRule(sets, sizes, VarAddrOf(r, obj2))

	assert.True(t, applyRule(sets, sizes, StoreVar(l, r)))
	assert.True(t, sets.set(Loc{Value: obj1, Offset: 0}).Has(Loc{Value: obj2, Offset: 0}))

	applyRule(sets, sizes, VarAddrOf(p, r))
	assert.True(t, applyRule(sets, sizes, StoreLoad(l, p)),
		"*l = *p should load through p (which points at r) and store r's set into l's pointees")
	assert.True(t, sets.set(Loc{Value: obj1, Offset: 0}).Has(Loc{Value: obj2, Offset: 0}))
}

// TestApplyRuleNull covers the null-pointee rules: "L = NULL" and
// "*L = NULL" both record NullPointee, the single shared sentinel for every
// nil pointer value in the program.
func TestApplyRuleNull(t *testing.T) {
	vs := syntheticValues(t, 3)
	obj, l, p := vs[0], vs[1], vs[2]

	sets := make(PointsToSets)
	sizes := layout.Default()

	applyRule(sets, sizes, VarAlloc(obj, obj))
	applyRule(sets, sizes, VarAddrOf(p, obj))

	assert.True(t, applyRule(sets, sizes, VarNull(l)))
	assert.True(t, sets.set(selfLoc(l)).Has(NullPointee))

	assert.True(t, applyRule(sets, sizes, StoreNull(p)))
	assert.True(t, sets.set(Loc{Value: obj, Offset: 0}).Has(NullPointee))
}
