package portgraph

import (
	"errors"
	"slices"
	"testing"
)

// pipelineFixture builds the reference shape used across the engine tests:
//
//	src@out -> comp@in | comp: comp@in -> inner@in, inner@out -> comp@out | comp@out -> sink@in
func pipelineFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := ApplyAll(NewBuilder(nil), pipelineChanges()...)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return g.Freeze()
}

func pipelineChanges() []ChangeSet {
	src := NewAtomic("src", Port{Name: "out", Kind: Out, Type: "int"}).WithID("src")
	comp := NewCompound("comp",
		Port{Name: "in", Kind: In, Type: "int"},
		Port{Name: "out", Kind: Out, Type: "int"},
	).WithID("comp")
	inner := NewAtomic("inner",
		Port{Name: "in", Kind: In, Type: "int"},
		Port{Name: "out", Kind: Out, Type: "int"},
	).WithID("inner")
	sink := NewAtomic("sink", Port{Name: "in", Kind: In, Type: "int"}).WithID("sink")

	return []ChangeSet{
		InsertNode(nil, src),
		InsertNode(nil, comp),
		InsertNode(CompoundPath{"comp"}, inner),
		InsertNode(nil, sink),
		InsertEdge(NewEdge(Ref{Node: "src", Port: "out"}, Ref{Node: "comp", Port: "in"})),
		InsertEdge(NewEdge(Ref{Node: "comp", Port: "in"}, Ref{Node: "inner", Port: "in"})),
		InsertEdge(NewEdge(Ref{Node: "inner", Port: "out"}, Ref{Node: "comp", Port: "out"})),
		InsertEdge(NewEdge(Ref{Node: "comp", Port: "out"}, Ref{Node: "sink", Port: "in"})),
	}
}

func TestResolution(t *testing.T) {
	g := pipelineFixture(t)

	inner, err := g.NodeByID("inner")
	if err != nil {
		t.Fatalf("NodeByID: %v", err)
	}
	if !inner.Path().Equal(CompoundPath{"comp", "inner"}) {
		t.Errorf("inner path = %s, want /comp/inner", inner.Path())
	}

	byPath, err := g.NodeByPath(CompoundPath{"comp", "inner"})
	if err != nil {
		t.Fatalf("NodeByPath: %v", err)
	}
	if byPath != inner {
		t.Error("NodeByPath and NodeByID disagree")
	}

	byName, err := g.NodeByName("comp", "inner")
	if err != nil {
		t.Fatalf("NodeByName: %v", err)
	}
	if byName.ID() != "inner" {
		t.Errorf("NodeByName = %s, want inner", byName.ID())
	}

	parent, err := g.ParentOf("inner")
	if err != nil {
		t.Fatalf("ParentOf: %v", err)
	}
	if parent.ID() != "comp" {
		t.Errorf("ParentOf(inner) = %s, want comp", parent.ID())
	}
	if _, err := g.ParentOf(g.RootID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("ParentOf(root) error = %v, want ErrNotFound", err)
	}

	if _, err := g.NodeByID("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("NodeByID(ghost) error = %v, want ErrNotFound", err)
	}

	p, err := g.Port(Ref{Node: "comp", Port: "in"})
	if err != nil {
		t.Fatalf("Port: %v", err)
	}
	if p.Kind != In || p.Type != "int" {
		t.Errorf("Port = %+v, want input int", p)
	}
}

func TestDeepEnumeration(t *testing.T) {
	g := pipelineFixture(t)

	var ids []string
	for _, n := range g.NodesDeep() {
		ids = append(ids, n.ID())
	}
	want := []string{"src", "comp", "inner", "sink"}
	if !slices.Equal(ids, want) {
		t.Errorf("NodesDeep = %v, want %v", ids, want)
	}

	edges := g.EdgesDeep()
	if len(edges) != 4 {
		t.Fatalf("EdgesDeep = %d edges, want 4", len(edges))
	}
	owners := map[string]int{}
	for _, oe := range edges {
		owners[oe.Owner]++
	}
	if owners[g.RootID()] != 2 || owners["comp"] != 2 {
		t.Errorf("edge owners = %v, want 2 at root and 2 at comp", owners)
	}
}

func TestScopedAccessors(t *testing.T) {
	g := pipelineFixture(t)

	kids, err := g.Children(g.RootID())
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(kids) != 3 {
		t.Errorf("root children = %d, want 3", len(kids))
	}

	edges, err := g.EdgesAt("comp")
	if err != nil {
		t.Fatalf("EdgesAt: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("comp edges = %d, want 2", len(edges))
	}

	if _, err := g.Children("src"); !errors.Is(err, ErrInvalidStructure) {
		t.Errorf("Children(atomic) error = %v, want ErrInvalidStructure", err)
	}
}

func TestEqualIgnoresModeAndRootIdentity(t *testing.T) {
	// Same structure built through both mutation modes, with independently
	// generated root identifiers.
	inPlace := pipelineFixture(t)
	persistent, err := ApplyAll(New(nil), pipelineChanges()...)
	if err != nil {
		t.Fatalf("persistent build: %v", err)
	}

	if !Equal(inPlace, persistent) {
		t.Error("graphs built in both modes should be structurally equal")
	}

	// A real difference must still be detected.
	changed, err := Apply(persistent, RemoveEdge(NewEdge(Ref{Node: "comp", Port: "out"}, Ref{Node: "sink", Port: "in"})))
	if err != nil {
		t.Fatalf("RemoveEdge: %v", err)
	}
	if Equal(inPlace, changed) {
		t.Error("graphs differing by one edge compared equal")
	}
}

func TestEqualIgnoresEdgeOrder(t *testing.T) {
	base := pipelineChanges()
	reordered := slices.Clone(base[:4])
	reordered = append(reordered, base[7], base[4], base[6], base[5])

	a, err := ApplyAll(New(nil), base...)
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	b, err := ApplyAll(New(nil), reordered...)
	if err != nil {
		t.Fatalf("build b: %v", err)
	}
	if !Equal(a, b) {
		t.Error("edge insertion order should not affect equality")
	}
}

func TestEqualComparesComponentsByIDAndVersion(t *testing.T) {
	build := func(def *Node, version string) *Graph {
		t.Helper()
		g, err := ApplyAll(New(nil),
			InsertComponent(Component{ID: "lib/impl", Version: version, Definition: def}))
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		return g
	}
	defA := NewAtomic("impl", Port{Name: "in", Kind: In}).WithID("impl-a")
	defB := NewAtomic("impl", Port{Name: "in", Kind: In, Type: "int"}).WithID("impl-b")

	if !Equal(build(defA, "1.0.0"), build(defB, "1.0.0")) {
		t.Error("component definitions should not participate in equality")
	}
	if Equal(build(defA, "1.0.0"), build(defA, "2.0.0")) {
		t.Error("component versions should participate in equality")
	}
}

func TestMetaAndComponents(t *testing.T) {
	g := New(map[string]any{"lang": "df"})
	g, err := ApplyAll(g,
		SetMeta("version", 2),
		InsertComponent(Component{ID: "math/add", Version: "1.0"}),
		InsertComponent(Component{ID: "math/mul", Version: "1.0"}),
	)
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	if v, ok := g.MetaValue("version"); !ok || v != 2 {
		t.Errorf("MetaValue(version) = %v, %v", v, ok)
	}
	if _, ok := g.Component("math/add"); !ok {
		t.Error("component math/add not registered")
	}
	cs := g.Components()
	if len(cs) != 2 || cs[0].ID != "math/add" || cs[1].ID != "math/mul" {
		t.Errorf("Components = %v, want sorted by identifier", cs)
	}

	if _, err := Apply(g, InsertComponent(Component{ID: "math/add"})); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate component error = %v, want ErrExists", err)
	}
	if _, err := Apply(g, RemoveComponent("ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove missing component error = %v, want ErrNotFound", err)
	}
}
