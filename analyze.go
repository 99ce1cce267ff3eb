package pointer

import (
	"errors"
	"log"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/flowptr/andersen/internal/maps"
	"github.com/flowptr/andersen/layout"
)

func init() {
	log.SetFlags(log.Ltime | log.Lshortfile)
}

// ErrNoPackages is returned by Analyze when the supplied program has no
// packages to analyse.
var ErrNoPackages = errors.New("pointer: program has no packages")

// AnalysisConfig configures a single run of Analyze.
type AnalysisConfig struct {
	// Program is the whole-program SSA form to analyse. It must already be
	// built (Program.Build called).
	Program *ssa.Program

	// Sizes supplies the data layout used to resolve field offsets and
	// allocation sizes. The zero value is invalid; callers should pass
	// layout.Default() unless they have a specific reason not to.
	Sizes layout.Sizes

	// BuildGraph additionally constructs the pointer-equivalence graph view
	// (component E) from the solved points-to sets. The returned points-to
	// sets are the solver's own and are not changed by the graph; this
	// only matters to a caller that wants the graph itself via
	// Result.Graph.
	BuildGraph bool
}

// Result is the outcome of one analysis run: the solved points-to sets,
// together with enough bookkeeping to answer MayAlias/PointsTo queries and
// to build a call graph on demand.
type Result struct {
	sets PointsToSets
	ctx  *analysisContext

	graph *PointsToGraph

	callGraphOnce bool
	callGraph     *callgraph.Graph
}

type analysisContext struct {
	prog    *ssa.Program
	fns     map[*ssa.Function]bool
	matcher *CallMatcher
	sizes   layout.Sizes
}

// Analyze runs the full pipeline: builds component B's call/return matcher,
// extracts component C's rule sequence, runs component D's solver to a
// fixed point, and optionally builds component E's graph view.
func Analyze(config AnalysisConfig) (Result, error) {
	prog := config.Program
	pkgs := prog.AllPackages()
	if len(pkgs) == 0 {
		return Result{}, ErrNoPackages
	}

	sizes := config.Sizes
	fns := ssautil.AllFunctions(prog)

	hasher := typeutil.MakeHasher()
	matcher := NewCallMatcher(hasher)

	matcher.BuildCallMaps(maps.Keys(fns))

	ps := ExtractProgram(prog, fns, sizes, matcher)
	sets := Solve(ps.Rules, sizes)

	ctx := &analysisContext{prog: prog, fns: fns, matcher: matcher, sizes: sizes}

	res := Result{sets: sets, ctx: ctx}

	if config.BuildGraph {
		res.graph = buildGraphView(sets)
	}

	return res, nil
}

// buildGraphView replays a solved PointsToSets into a PointsToGraph,
// categorizing purely by value identity. This is not how the solver itself
// computes the fixed point (solve.go works directly over PointsToSets,
// which is both simpler and needed regardless of BuildGraph), but it gives
// callers who want the equivalence-class structure of §4.6 a way to obtain
// it without re-deriving it from scratch.
func buildGraphView(sets PointsToSets) *PointsToGraph {
	g := NewPointsToGraph(SameValueCategory)
	for k, set := range sets {
		g.InsertSet(k, maps.Keys(set))
	}
	return g
}
