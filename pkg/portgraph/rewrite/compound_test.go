package rewrite

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/graphir/graphir/pkg/portgraph"
)

func stage(id string, ins, outs []string) *portgraph.Node {
	var ports []portgraph.Port
	for _, n := range ins {
		ports = append(ports, portgraph.Port{Name: n, Kind: portgraph.In, Type: "int"})
	}
	for _, n := range outs {
		ports = append(ports, portgraph.Port{Name: n, Kind: portgraph.Out, Type: "int"})
	}
	return portgraph.NewAtomic(id, ports...).WithID(id)
}

func pipe(from, to portgraph.Ref) portgraph.ChangeSet {
	return portgraph.InsertEdge(portgraph.NewEdge(from, to))
}

func mustBuild(t *testing.T, css ...portgraph.ChangeSet) *portgraph.Graph {
	t.Helper()
	g, err := portgraph.ApplyAll(portgraph.NewBuilder(nil), css...)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g.Freeze()
}

// chainFixture is a flat four-stage pipeline: a -> b -> c -> d.
func chainFixture(t *testing.T) *portgraph.Graph {
	t.Helper()
	return mustBuild(t,
		portgraph.InsertNode(nil, stage("a", nil, []string{"out"})),
		portgraph.InsertNode(nil, stage("b", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(nil, stage("c", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(nil, stage("d", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "a", Port: "out"}, portgraph.Ref{Node: "b", Port: "in"}),
		pipe(portgraph.Ref{Node: "b", Port: "out"}, portgraph.Ref{Node: "c", Port: "in"}),
		pipe(portgraph.Ref{Node: "c", Port: "out"}, portgraph.Ref{Node: "d", Port: "in"}),
	)
}

// canonical renders the graph as sorted structural facts with the given
// identifier substituted, so graphs differing only in a generated compound
// identifier can be compared.
func canonical(g *portgraph.Graph, subst map[string]string) []string {
	re := func(id string) string {
		if s, ok := subst[id]; ok {
			return s
		}
		return id
	}
	var facts []string
	for _, n := range g.NodesDeep() {
		parts := make([]string, 0, len(n.Path()))
		for _, id := range n.Path() {
			parts = append(parts, re(id))
		}
		facts = append(facts, fmt.Sprintf("node %v kind=%s ports=%v", parts, n.Kind(), n.Ports()))
	}
	for _, oe := range g.EdgesDeep() {
		owner := re(oe.Owner)
		if oe.Owner == g.RootID() {
			owner = "root"
		}
		facts = append(facts, fmt.Sprintf("edge %s: %s@%s -> %s@%s [%s]",
			owner, re(oe.Edge.From.Node), oe.Edge.From.Port, re(oe.Edge.To.Node), oe.Edge.To.Port, oe.Edge.Layer))
	}
	sort.Strings(facts)
	return facts
}

func TestCompoundifyClosure(t *testing.T) {
	g := chainFixture(t)
	g, compID, err := Compoundify(g, nil, []string{"b", "c"}, Options{Name: "middle"})
	if err != nil {
		t.Fatalf("Compoundify: %v", err)
	}

	comp, err := g.NodeByID(compID)
	if err != nil {
		t.Fatalf("NodeByID: %v", err)
	}
	if comp.Name() != "middle" {
		t.Errorf("compound name = %q, want middle", comp.Name())
	}
	var childIDs []string
	for _, c := range comp.Children() {
		childIDs = append(childIDs, c.ID())
	}
	if !slices.Equal(childIDs, []string{"b", "c"}) {
		t.Errorf("compound children = %v, want [b c]", childIDs)
	}

	// Every edge between subset members is internal now, and nothing crosses
	// the boundary except through the compound's ports.
	for _, oe := range g.EdgesDeep() {
		e := oe.Edge
		if e.From.Node == "b" && e.To.Node == "c" {
			if oe.Owner != compID {
				t.Errorf("internal edge %s owned by %s, want the compound", e, oe.Owner)
			}
			continue
		}
		inside := map[string]bool{"b": true, "c": true}
		if inside[e.From.Node] != inside[e.To.Node] {
			boundaryEnd := e.From.Node == compID || e.To.Node == compID
			if !boundaryEnd {
				t.Errorf("edge %s crosses the boundary without a port", e)
			}
		}
	}

	// External wiring survives end to end.
	preds, err := g.Predecessors(portgraph.Ref{Node: "d", Port: "in"}, portgraph.ConnectOptions{IntoCompounds: true})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(preds) != 1 || preds[0] != (portgraph.Ref{Node: "c", Port: "out"}) {
		t.Errorf("deep predecessors of d@in = %v, want c@out", preds)
	}
}

func TestCompoundifyStrategiesAgree(t *testing.T) {
	batch, batchID, err := Compoundify(chainFixture(t), nil, []string{"b", "c"}, Options{Strategy: StrategyBatch})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	incr, incrID, err := Compoundify(chainFixture(t), nil, []string{"b", "c"}, Options{Strategy: StrategyIncremental})
	if err != nil {
		t.Fatalf("incremental: %v", err)
	}

	a := canonical(batch, map[string]string{batchID: "C"})
	b := canonical(incr, map[string]string{incrID: "C"})
	if !slices.Equal(a, b) {
		t.Errorf("strategies disagree:\nbatch:\n%v\nincremental:\n%v", a, b)
	}
}

func TestCompoundifySharedExternalSource(t *testing.T) {
	// One external source feeding two subset members gets exactly one
	// boundary input port.
	g := mustBuild(t,
		portgraph.InsertNode(nil, stage("src", nil, []string{"out"})),
		portgraph.InsertNode(nil, stage("x", []string{"in"}, nil)),
		portgraph.InsertNode(nil, stage("y", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "src", Port: "out"}, portgraph.Ref{Node: "x", Port: "in"}),
		pipe(portgraph.Ref{Node: "src", Port: "out"}, portgraph.Ref{Node: "y", Port: "in"}),
	)
	g, compID, err := Compoundify(g, nil, []string{"x", "y"}, Options{})
	if err != nil {
		t.Fatalf("Compoundify: %v", err)
	}
	comp, _ := g.NodeByID(compID)
	if n := len(comp.InputPorts()); n != 1 {
		t.Errorf("boundary input ports = %d, want 1 shared port", n)
	}
	edges, _ := g.EdgesAt(compID)
	if len(edges) != 2 {
		t.Errorf("inner edges = %d, want 2 fan-out edges", len(edges))
	}
}

func TestCompoundifyNotCompoundable(t *testing.T) {
	// x sits between the subset members: fed by a, feeding b. Grouping a and
	// b would force a cycle through the new boundary.
	g := mustBuild(t,
		portgraph.InsertNode(nil, stage("a", nil, []string{"out"})),
		portgraph.InsertNode(nil, stage("x", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(nil, stage("b", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "a", Port: "out"}, portgraph.Ref{Node: "x", Port: "in"}),
		pipe(portgraph.Ref{Node: "x", Port: "out"}, portgraph.Ref{Node: "b", Port: "in"}),
	)
	if _, _, err := Compoundify(g, nil, []string{"a", "b"}, Options{}); !errors.Is(err, portgraph.ErrNotCompoundable) {
		t.Errorf("error = %v, want ErrNotCompoundable", err)
	}
}

func TestCompoundifyValidation(t *testing.T) {
	g := chainFixture(t)
	if _, _, err := Compoundify(g, nil, nil, Options{}); !errors.Is(err, portgraph.ErrNotCompoundable) {
		t.Errorf("empty subset error = %v, want ErrNotCompoundable", err)
	}
	if _, _, err := Compoundify(g, nil, []string{"ghost"}, Options{}); !errors.Is(err, portgraph.ErrNotFound) {
		t.Errorf("unknown member error = %v, want ErrNotFound", err)
	}
}

func TestCompoundifyCarriesOrderingEdges(t *testing.T) {
	g := mustBuild(t,
		portgraph.InsertNode(nil, stage("a", nil, []string{"out"})),
		portgraph.InsertNode(nil, stage("b", []string{"in"}, nil)),
		portgraph.InsertNode(nil, stage("w", nil, nil)),
		pipe(portgraph.Ref{Node: "a", Port: "out"}, portgraph.Ref{Node: "b", Port: "in"}),
		portgraph.InsertEdge(portgraph.Edge{
			From:  portgraph.EdgeEnd{Node: "w"},
			To:    portgraph.EdgeEnd{Node: "b"},
			Layer: "ordering",
		}),
	)
	g, compID, err := Compoundify(g, nil, []string{"a", "b"}, Options{})
	if err != nil {
		t.Fatalf("Compoundify: %v", err)
	}

	// The ordering constraint is rerouted portlessly through the compound.
	outer, err := g.Predecessors(portgraph.Ref{Node: compID}, portgraph.ConnectOptions{Layers: []string{"ordering"}})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(outer) != 1 || outer[0].Node != "w" {
		t.Errorf("ordering predecessors of compound = %v, want w", outer)
	}
	inner, err := g.Predecessors(portgraph.Ref{Node: "b"}, portgraph.ConnectOptions{Layers: []string{"ordering"}})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(inner) != 1 || inner[0].Node != compID {
		t.Errorf("ordering predecessors of b = %v, want the compound boundary", inner)
	}
}
