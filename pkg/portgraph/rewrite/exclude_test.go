package rewrite

import (
	"errors"
	"slices"
	"testing"

	"github.com/graphir/graphir/pkg/portgraph"
)

// nestedFixture builds a compound holding a two-stage pipeline:
//
//	src@out -> box@in | box: in -> inner1 -> inner2 -> out | box@out -> sink@in
func nestedFixture(t *testing.T) *portgraph.Graph {
	t.Helper()
	box := portgraph.NewCompound("box",
		portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"},
		portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "int"},
	).WithID("box")
	return mustBuild(t,
		portgraph.InsertNode(nil, stage("src", nil, []string{"out"})),
		portgraph.InsertNode(nil, box),
		portgraph.InsertNode(portgraph.CompoundPath{"box"}, stage("inner1", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(portgraph.CompoundPath{"box"}, stage("inner2", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(nil, stage("sink", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "src", Port: "out"}, portgraph.Ref{Node: "box", Port: "in"}),
		pipe(portgraph.Ref{Node: "box", Port: "in"}, portgraph.Ref{Node: "inner1", Port: "in"}),
		pipe(portgraph.Ref{Node: "inner1", Port: "out"}, portgraph.Ref{Node: "inner2", Port: "in"}),
		pipe(portgraph.Ref{Node: "inner2", Port: "out"}, portgraph.Ref{Node: "box", Port: "out"}),
		pipe(portgraph.Ref{Node: "box", Port: "out"}, portgraph.Ref{Node: "sink", Port: "in"}),
	)
}

func TestExcludeNodeBlockedByInternalPredecessor(t *testing.T) {
	g := nestedFixture(t)
	// inner2 is fed by its sibling inner1, not the boundary.
	if _, err := ExcludeNode(g, "inner2"); !errors.Is(err, portgraph.ErrBlocked) {
		t.Errorf("error = %v, want ErrBlocked", err)
	}
}

func TestExcludeNodeRewiresBoundary(t *testing.T) {
	g := nestedFixture(t)
	g, err := ExcludeNode(g, "inner1")
	if err != nil {
		t.Fatalf("ExcludeNode: %v", err)
	}

	p, err := g.PathOf("inner1")
	if err != nil {
		t.Fatalf("PathOf: %v", err)
	}
	if !p.Equal(portgraph.CompoundPath{"inner1"}) {
		t.Errorf("inner1 path = %s, want /inner1", p)
	}

	// The external source now feeds inner1 directly; the boundary input
	// port that existed only for inner1 is gone.
	preds, err := g.Predecessors(portgraph.Ref{Node: "inner1", Port: "in"}, portgraph.ConnectOptions{})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(preds) != 1 || preds[0] != (portgraph.Ref{Node: "src", Port: "out"}) {
		t.Errorf("inner1 predecessors = %v, want src@out", preds)
	}
	box, _ := g.NodeByID("box")
	if _, ok := box.Port("in"); ok {
		t.Error("obsolete boundary input port survived")
	}

	// inner2 still reaches inner1 through a mirror input port.
	mirror := box.InputPorts()
	if len(mirror) != 1 {
		t.Fatalf("mirror ports = %v, want exactly one", mirror)
	}
	deep, err := g.Predecessors(portgraph.Ref{Node: "inner2", Port: "in"}, portgraph.ConnectOptions{IntoCompounds: true})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(deep) != 1 || deep[0] != (portgraph.Ref{Node: "inner1", Port: "out"}) {
		t.Errorf("inner2 deep predecessors = %v, want inner1@out", deep)
	}

	// End-to-end dataflow is intact.
	end, err := g.Predecessors(portgraph.Ref{Node: "sink", Port: "in"}, portgraph.ConnectOptions{IntoCompounds: true})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(end) != 1 || end[0] != (portgraph.Ref{Node: "inner2", Port: "out"}) {
		t.Errorf("sink deep predecessors = %v, want inner2@out", end)
	}
}

func TestExcludeNodeRenamesOnNameCollision(t *testing.T) {
	g, err := portgraph.Apply(nestedFixture(t),
		portgraph.InsertNode(nil, portgraph.NewAtomic("inner1").WithID("twin")))
	if err != nil {
		t.Fatalf("insert twin: %v", err)
	}
	g, err = ExcludeNode(g, "inner1")
	if err != nil {
		t.Fatalf("ExcludeNode with colliding sibling name: %v", err)
	}

	p, err := g.PathOf("inner1")
	if err != nil {
		t.Fatalf("PathOf: %v", err)
	}
	if !p.Equal(portgraph.CompoundPath{"inner1"}) {
		t.Errorf("inner1 path = %s, want /inner1", p)
	}
	moved, _ := g.NodeByID("inner1")
	if moved.Name() != "inner1_2" {
		t.Errorf("excluded node name = %q, want the suffixed fresh name", moved.Name())
	}
	twin, _ := g.NodeByID("twin")
	if twin.Name() != "inner1" {
		t.Errorf("existing sibling name = %q, want untouched", twin.Name())
	}
}

func TestExcludeThenIncludeRoundTrips(t *testing.T) {
	g := nestedFixture(t)
	g, err := ExcludeNode(g, "inner1")
	if err != nil {
		t.Fatalf("ExcludeNode: %v", err)
	}
	box, _ := g.NodeByID("box")
	mirror := box.InputPorts()[0].Name

	g, err = IncludePredecessor(g, portgraph.Ref{Node: "box", Port: mirror})
	if err != nil {
		t.Fatalf("IncludePredecessor: %v", err)
	}

	// Same node set in the same containment, same dataflow up to
	// boundary-port renaming.
	p, err := g.PathOf("inner1")
	if err != nil {
		t.Fatalf("PathOf: %v", err)
	}
	if !p.Equal(portgraph.CompoundPath{"box", "inner1"}) {
		t.Errorf("inner1 path = %s, want /box/inner1", p)
	}
	box, _ = g.NodeByID("box")
	if n := len(box.InputPorts()); n != 1 {
		t.Errorf("boundary input ports = %d, want 1", n)
	}
	for ref, want := range map[portgraph.Ref]portgraph.Ref{
		{Node: "inner1", Port: "in"}: {Node: "src", Port: "out"},
		{Node: "inner2", Port: "in"}: {Node: "inner1", Port: "out"},
		{Node: "sink", Port: "in"}:   {Node: "inner2", Port: "out"},
	} {
		got, err := g.Predecessors(ref, portgraph.ConnectOptions{IntoCompounds: true})
		if err != nil {
			t.Fatalf("Predecessors(%s): %v", ref, err)
		}
		if len(got) != 1 || got[0] != want {
			t.Errorf("deep predecessors of %s = %v, want %s", ref, got, want)
		}
	}
}

func TestIncludePredecessorBlockedByOtherConsumer(t *testing.T) {
	// feeder serves both the compound and a sibling; pulling it in would
	// disconnect the sibling.
	box := portgraph.NewCompound("box",
		portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"},
	).WithID("box")
	g := mustBuild(t,
		portgraph.InsertNode(nil, stage("feeder", nil, []string{"out"})),
		portgraph.InsertNode(nil, box),
		portgraph.InsertNode(portgraph.CompoundPath{"box"}, stage("user", []string{"in"}, nil)),
		portgraph.InsertNode(nil, stage("other", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "feeder", Port: "out"}, portgraph.Ref{Node: "box", Port: "in"}),
		pipe(portgraph.Ref{Node: "box", Port: "in"}, portgraph.Ref{Node: "user", Port: "in"}),
		pipe(portgraph.Ref{Node: "feeder", Port: "out"}, portgraph.Ref{Node: "other", Port: "in"}),
	)
	if _, err := IncludePredecessor(g, portgraph.Ref{Node: "box", Port: "in"}); !errors.Is(err, portgraph.ErrBlocked) {
		t.Errorf("error = %v, want ErrBlocked", err)
	}
}

func TestIncludePredecessorValidation(t *testing.T) {
	g := nestedFixture(t)

	if _, err := IncludePredecessor(g, portgraph.Ref{Node: "src", Port: "out"}); !errors.Is(err, portgraph.ErrInvalidStructure) {
		t.Errorf("non-compound error = %v, want ErrInvalidStructure", err)
	}
	if _, err := IncludePredecessor(g, portgraph.Ref{Node: "box", Port: "out"}); !errors.Is(err, portgraph.ErrInvalidStructure) {
		t.Errorf("output port error = %v, want ErrInvalidStructure", err)
	}
	if _, err := IncludePredecessor(g, portgraph.Ref{Node: "box", Port: "ghost"}); !errors.Is(err, portgraph.ErrNotFound) {
		t.Errorf("missing port error = %v, want ErrNotFound", err)
	}
}

func TestUnCompoundFlattens(t *testing.T) {
	g, err := UnCompound(nestedFixture(t), "box")
	if err != nil {
		t.Fatalf("UnCompound: %v", err)
	}

	// Child order in the flattened scope: survivors first, then the
	// ex-children in exclusion order.
	want := mustBuild(t,
		portgraph.InsertNode(nil, stage("src", nil, []string{"out"})),
		portgraph.InsertNode(nil, stage("sink", []string{"in"}, nil)),
		portgraph.InsertNode(nil, stage("inner1", []string{"in"}, []string{"out"})),
		portgraph.InsertNode(nil, stage("inner2", []string{"in"}, []string{"out"})),
		pipe(portgraph.Ref{Node: "src", Port: "out"}, portgraph.Ref{Node: "inner1", Port: "in"}),
		pipe(portgraph.Ref{Node: "inner1", Port: "out"}, portgraph.Ref{Node: "inner2", Port: "in"}),
		pipe(portgraph.Ref{Node: "inner2", Port: "out"}, portgraph.Ref{Node: "sink", Port: "in"}),
	)
	if !portgraph.Equal(g, want) {
		t.Errorf("flattened graph differs from the direct pipeline:\ngot:  %v\nwant: %v",
			canonical(g, nil), canonical(want, nil))
	}
}

func TestUnCompoundPassThrough(t *testing.T) {
	// An empty compound passing its input straight to its output dissolves
	// into a direct edge.
	box := portgraph.NewCompound("box",
		portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"},
		portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "int"},
	).WithID("box")
	g := mustBuild(t,
		portgraph.InsertNode(nil, stage("a", nil, []string{"out"})),
		portgraph.InsertNode(nil, box),
		portgraph.InsertNode(nil, stage("z", []string{"in"}, nil)),
		pipe(portgraph.Ref{Node: "a", Port: "out"}, portgraph.Ref{Node: "box", Port: "in"}),
		pipe(portgraph.Ref{Node: "box", Port: "in"}, portgraph.Ref{Node: "box", Port: "out"}),
		pipe(portgraph.Ref{Node: "box", Port: "out"}, portgraph.Ref{Node: "z", Port: "in"}),
	)
	g, err := UnCompound(g, "box")
	if err != nil {
		t.Fatalf("UnCompound: %v", err)
	}

	if _, err := g.NodeByID("box"); !errors.Is(err, portgraph.ErrNotFound) {
		t.Fatalf("compound still present: %v", err)
	}
	preds, err := g.Predecessors(portgraph.Ref{Node: "z", Port: "in"}, portgraph.ConnectOptions{})
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if len(preds) != 1 || preds[0] != (portgraph.Ref{Node: "a", Port: "out"}) {
		t.Errorf("predecessors = %v, want a@out", preds)
	}
}

func TestUnCompoundRoot(t *testing.T) {
	g := nestedFixture(t)
	if _, err := UnCompound(g, g.RootID()); !errors.Is(err, portgraph.ErrInvalidStructure) {
		t.Errorf("error = %v, want ErrInvalidStructure", err)
	}
}

func TestUnCompoundKeepsChildOrderDeterministic(t *testing.T) {
	g, err := UnCompound(nestedFixture(t), "box")
	if err != nil {
		t.Fatalf("UnCompound: %v", err)
	}
	var ids []string
	for _, n := range g.NodesDeep() {
		ids = append(ids, n.ID())
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"inner1", "inner2", "sink", "src"}) {
		t.Errorf("node set = %v", ids)
	}
}
