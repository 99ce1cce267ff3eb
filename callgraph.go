package pointer

import (
	"go/types"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"

	"github.com/flowptr/andersen/internal/slices"
	rootslices "github.com/flowptr/andersen/slices"
)

// CallGraph returns a call graph for the analysed program. Direct calls are
// resolved statically; indirect calls through a function-typed value are
// resolved the same way the solver resolved their argument-passing rules
// (component B's FM, by signature compatibility, never by consulting
// points-to sets); interface method calls ("invoke" instructions) are
// resolved by class-hierarchy analysis over every runtime type the SSA
// builder recorded, since Go's dynamic dispatch has no LLVM analog for the
// call matcher to bind to.
func (r *Result) CallGraph() *callgraph.Graph {
	if r.callGraphOnce {
		return r.callGraph
	}
	r.callGraphOnce = true

	cg := callgraph.New(nil)
	ctx := r.ctx

	for fn := range ctx.fns {
		if fn.Blocks == nil {
			continue
		}
		n := cg.CreateNode(fn)

		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				call, ok := instr.(ssa.CallInstruction)
				if !ok {
					continue
				}
				common := call.Common()

				var callees []*ssa.Function
				switch {
				case common.IsInvoke():
					callees = resolveInvokeCallees(ctx.prog, common)

				case common.StaticCallee() != nil:
					callees = []*ssa.Function{common.StaticCallee()}

				default:
					callees = slices.Map(ctx.matcher.lookupFM(getCalleePrototype(call)),
						func(e fmEntry) *ssa.Function { return e.fn })
				}

				for _, callee := range callees {
					callgraph.AddEdge(n, call, cg.CreateNode(callee))
				}
			}
		}
	}

	r.callGraph = cg
	return cg
}

// resolveInvokeCallees returns every concrete method implementation that
// could be the target of an interface method invocation, by scanning every
// runtime type the SSA builder recorded for one whose method set both
// contains the invoked method and implements the static interface type. A
// value type and its pointer type can resolve to the same promoted method,
// so the result is deduplicated before being handed to the caller.
func resolveInvokeCallees(prog *ssa.Program, common *ssa.CallCommon) []*ssa.Function {
	var callees []*ssa.Function
	iface := common.Value.Type()

	for _, t := range prog.RuntimeTypes() {
		if !typeImplements(t, iface) {
			continue
		}
		mset := prog.MethodSets.MethodSet(t)
		sel := mset.Lookup(common.Method.Pkg(), common.Method.Name())
		if sel == nil {
			continue
		}
		fn := prog.MethodValue(sel)
		if fn == nil || rootslices.Contains(callees, fn) {
			continue
		}
		callees = append(callees, fn)
	}
	return callees
}

func typeImplements(t, iface types.Type) bool {
	i, ok := iface.Underlying().(*types.Interface)
	if !ok {
		return false
	}
	return types.Implements(t, i) || types.Implements(types.NewPointer(t), i)
}
