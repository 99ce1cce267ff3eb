package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	pointer "github.com/flowptr/andersen"
	"github.com/flowptr/andersen/layout"
	"github.com/flowptr/andersen/pkgutil"
)

var blackHole any

// BenchmarkStdlibAnalysis measures analysis time (including call graph
// construction) over the standard library, with and without building the
// pointer-equivalence graph view.
func BenchmarkStdlibAnalysis(b *testing.B) {
	pkgs, err := pkgutil.LoadPackagesWithConfig(
		&packages.Config{
			Mode:  pkgutil.LoadMode,
			Tests: true,
			Dir:   "",
		}, "std")
	require.NoError(b, err)

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	for _, buildGraph := range [...]bool{false, true} {
		buildGraph := buildGraph
		b.Run(boolLabel("BuildGraph", buildGraph), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				res, err := pointer.Analyze(pointer.AnalysisConfig{
					Program:    prog,
					Sizes:      layout.Default(),
					BuildGraph: buildGraph,
				})
				require.NoError(b, err)
				blackHole = res.CallGraph()
			}
		})
	}
}

func boolLabel(name string, v bool) string {
	if v {
		return name + "=true"
	}
	return name + "=false"
}
