// Command andersen runs an Andersen-style points-to analysis over a Go
// package query and reports basic statistics about the result.
package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/flowptr/andersen"
	"github.com/flowptr/andersen/layout"
	"github.com/flowptr/andersen/pkgutil"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	dir        = flag.String("dir", "", "alternative directory to run the go build tool in")
	graph      = flag.Bool("graph", false, "also build and print the pointer-equivalence graph")
)

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Specify a package query on the command line")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Fatal("failed to close ", f)
			}
		}()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	pkgs, err := pkgutil.LoadPackagesWithConfig(&packages.Config{
		Mode:  pkgutil.LoadMode,
		Tests: true,
		Dir:   *dir,
	}, flag.Args()...)
	if err != nil {
		log.Fatalf("loading packages failed: %v", err)
	}

	log.Printf("loaded %d packages", len(pkgs))

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	log.Println("built packages")

	res, err := pointer.Analyze(pointer.AnalysisConfig{
		Program:    prog,
		Sizes:      layout.Default(),
		BuildGraph: *graph,
	})
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	log.Printf("%d functions analysed", len(res.Reachable()))
	log.Printf("%d entries in the points-to map", len(res.Sets()))

	if *graph {
		log.Print(res.Graph())
	}
}
