package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/graphir/graphir/pkg/portgraph"
)

func sampleGraph(t *testing.T) *portgraph.Graph {
	t.Helper()
	box := portgraph.NewCompound("box",
		portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"},
		portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "int"},
	).WithID("box")
	g, err := portgraph.ApplyAll(portgraph.NewBuilder(nil),
		portgraph.InsertNode(nil, portgraph.NewAtomic("src",
			portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "int"}).WithID("src")),
		portgraph.InsertNode(nil, box),
		portgraph.InsertNode(portgraph.CompoundPath{"box"}, portgraph.NewAtomic("inner",
			portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"},
			portgraph.Port{Name: "out", Kind: portgraph.Out, Type: "int"}).WithID("inner")),
		portgraph.InsertNode(nil, portgraph.NewAtomic("sink",
			portgraph.Port{Name: "in", Kind: portgraph.In, Type: "int"}).WithID("sink")),
		portgraph.InsertEdge(portgraph.NewEdge(
			portgraph.Ref{Node: "src", Port: "out"}, portgraph.Ref{Node: "box", Port: "in"})),
		portgraph.InsertEdge(portgraph.NewEdge(
			portgraph.Ref{Node: "box", Port: "in"}, portgraph.Ref{Node: "inner", Port: "in"})),
		portgraph.InsertEdge(portgraph.NewEdge(
			portgraph.Ref{Node: "inner", Port: "out"}, portgraph.Ref{Node: "box", Port: "out"})),
		portgraph.InsertEdge(portgraph.NewEdge(
			portgraph.Ref{Node: "box", Port: "out"}, portgraph.Ref{Node: "sink", Port: "in"})),
		portgraph.InsertEdge(portgraph.Edge{
			From:  portgraph.EdgeEnd{Node: "src"},
			To:    portgraph.EdgeEnd{Node: "sink"},
			Layer: "ordering",
		}),
	)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g.Freeze()
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{})

	for _, want := range []string{
		`subgraph "cluster_box"`,
		`"box@in" [shape=ellipse`,
		`"box@out" [shape=ellipse`,
		`"src" -> "box@in" [taillabel="out"];`,
		`"box@in" -> "inner" [headlabel="in"];`,
		`"inner" -> "box@out" [taillabel="out"];`,
		`"src" -> "sink" [style=dashed, label="ordering"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailedIncludesTypes(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Detailed: true})
	if !strings.Contains(dot, "out: int") {
		t.Errorf("detailed DOT missing port type:\n%s", dot)
	}
}

func TestToDOTLayerFilter(t *testing.T) {
	dot := ToDOT(sampleGraph(t), Options{Layers: []string{"ordering"}})
	if strings.Contains(dot, `"src" -> "box@in"`) {
		t.Error("dataflow edge rendered despite layer filter")
	}
	if !strings.Contains(dot, `label="ordering"`) {
		t.Error("ordering edge missing")
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, sampleGraph(t), true)
	out := buf.String()

	for _, want := range []string{
		"!! graph in error state",
		"atomic src",
		"compound box",
		"  atomic inner",
		"src@out -> box@in [dataflow]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="8pt" height="6pt" viewBox="0.00 0.00 120.00 80.00">`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 120.00 80.00"`) {
		t.Errorf("viewBox not normalized: %s", out)
	}
	if !strings.Contains(out, `width="120" height="80"`) {
		t.Errorf("pixel dimensions not set: %s", out)
	}
}
