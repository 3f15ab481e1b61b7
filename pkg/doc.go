// Package pkg provides the core libraries for graphir.
//
// # Overview
//
// graphir is an in-memory intermediate representation for dataflow and
// visual programs: a hierarchical typed port graph mutated through
// change sets, with traversal algorithms and a compound rewrite engine
// layered on top. The pkg directory is organized into six main areas:
//
//  1. [portgraph] - Data model, path addressing, change-set engine, memo cache
//  2. [portgraph/algo] - Topological sort, reachability, lowest common ancestors
//  3. [portgraph/rewrite] - Compoundify, include/exclude, flatten, lambda lifting
//  4. [graphdoc] - JSON document form with validation and round-tripping
//  5. [locator] - Compact selector strings resolving to graph locations
//  6. [render] - DOT/SVG visualization and debug dumps
//
// Supporting infrastructure lives in [cache] (file, redis, and null
// artifact cache backends shared by the CLI).
//
// # Architecture
//
// The typical data flow through graphir:
//
//	JSON document
//	         ↓
//	    [graphdoc] package (validate + build via change sets)
//	         ↓
//	    [portgraph] package (graph structure + mutation)
//	         ↓
//	    [portgraph/rewrite] package (structural transformations)
//	         ↓
//	    [render] package (DOT, SVG, debug dumps)
//
// # Quick Start
//
// Build a two-stage graph, group the stages into a compound, and render:
//
//	load := portgraph.NewAtomic("load",
//	    portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "rows"}).WithID("load")
//	clean := portgraph.NewAtomic("clean",
//	    portgraph.Port{Name: "in", Kind: portgraph.In, Type: "rows"},
//	    portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "rows"}).WithID("clean")
//
//	g, _ := portgraph.ApplyAll(portgraph.NewBuilder(nil),
//	    portgraph.InsertNode(nil, load),
//	    portgraph.InsertNode(nil, clean),
//	    portgraph.InsertEdge(portgraph.NewEdge(
//	        portgraph.Ref{Node: "load", Port: "out"},
//	        portgraph.Ref{Node: "clean", Port: "in"})),
//	)
//	g = g.Freeze()
//
//	g, _, _ = rewrite.Compoundify(g, nil, []string{"load", "clean"},
//	    rewrite.Options{Name: "prepare"})
//	dot := render.ToDOT(g, render.Options{})
//
// Serialize and restore:
//
//	data, _ := graphdoc.Marshal(g)
//	g2, _ := graphdoc.Read(bytes.NewReader(data))
//
// Address a node with a selector:
//
//	ref, _ := locator.Match(g, "prepare/clean@out")
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                # All tests
//	go test ./pkg/portgraph/...      # Core model and algorithms
//
// [portgraph]: https://pkg.go.dev/github.com/graphir/graphir/pkg/portgraph
// [portgraph/algo]: https://pkg.go.dev/github.com/graphir/graphir/pkg/portgraph/algo
// [portgraph/rewrite]: https://pkg.go.dev/github.com/graphir/graphir/pkg/portgraph/rewrite
// [graphdoc]: https://pkg.go.dev/github.com/graphir/graphir/pkg/graphdoc
// [locator]: https://pkg.go.dev/github.com/graphir/graphir/pkg/locator
// [render]: https://pkg.go.dev/github.com/graphir/graphir/pkg/render
// [cache]: https://pkg.go.dev/github.com/graphir/graphir/pkg/cache
package pkg
