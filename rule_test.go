package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRuleConstructors checks that each constructor tags its Rule
// correctly and carries the operands into the fields the solver expects,
// since solve.go's applyRule trusts this wiring without re-validating it.
func TestRuleConstructors(t *testing.T) {
	vs := syntheticValues(t, 2)
	l, r := vs[0], vs[1]

	cases := []struct {
		name string
		rule Rule
		tag  RuleTag
	}{
		{"VarAlloc", VarAlloc(l, r), RuleAlloc},
		{"VarNull", VarNull(l), RuleNull},
		{"VarCopy", VarCopy(l, r), RuleCopy},
		{"VarAddrOf", VarAddrOf(l, r), RuleAddrOf},
		{"VarLoad", VarLoad(l, r), RuleLoad},
		{"StoreNull", StoreNull(l), RuleStoreNull},
		{"StoreVar", StoreVar(l, r), RuleStore},
		{"StoreAddrOf", StoreAddrOf(l, r), RuleStoreAddrOf},
		{"StoreLoad", StoreLoad(l, r), RuleStoreLoad},
		{"DeallocSite", DeallocSite(r), RuleDealloc},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.tag, c.rule.Tag)
		})
	}

	alloc := VarAlloc(l, r)
	assert.Equal(t, l, alloc.L)
	assert.Equal(t, r, alloc.Site)

	gep := VarGEP(l, r, 16, true)
	assert.Equal(t, RuleGEP, gep.Tag)
	assert.Equal(t, int64(16), gep.Off)
	assert.True(t, gep.Array)
}

// TestRuleListEmitAppends checks that RuleList grows in emission order,
// which the solver relies on for its per-pass replay.
func TestRuleListEmitAppends(t *testing.T) {
	vs := syntheticValues(t, 2)
	l, r := vs[0], vs[1]

	var list RuleList
	list.Emit(VarAlloc(l, l))
	list.Emit(VarAddrOf(r, l))

	assert.Len(t, list, 2)
	assert.Equal(t, RuleAlloc, list[0].Tag)
	assert.Equal(t, RuleAddrOf, list[1].Tag)
}
