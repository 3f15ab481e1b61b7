// Package render turns port graphs into visual output: Graphviz DOT source
// with compounds as nested clusters, in-process SVG rendering, and a plain
// text dump for debugging.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/graphir/graphir/pkg/portgraph"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes port types in labels. When false, only names are
	// shown.
	Detailed bool
	// Layers selects which edge layers appear. Empty renders every layer.
	Layers []string
}

// ToDOT converts a graph to Graphviz DOT. Compound nodes become nested
// clusters with their boundary ports drawn as small ellipses inside the
// cluster, so boundary edges have a concrete endpoint to attach to. The
// result can be rendered with [RenderSVG] or external Graphviz tools.
func ToDOT(g *portgraph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	w := dotWriter{buf: &buf, opts: opts}
	root := g.Root()
	for _, c := range root.Children() {
		w.node(c, 1)
	}
	buf.WriteString("\n")
	w.edges(root, 1)

	buf.WriteString("}\n")
	return buf.String()
}

type dotWriter struct {
	buf  *bytes.Buffer
	opts Options
}

func (w dotWriter) node(n *portgraph.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	if !n.IsCompound() {
		attrs := []string{fmt.Sprintf("label=%q", w.label(n))}
		if n.IsReference() {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
		}
		fmt.Fprintf(w.buf, "%s%q [%s];\n", pad, n.ID(), strings.Join(attrs, ", "))
		return
	}

	fmt.Fprintf(w.buf, "%ssubgraph \"cluster_%s\" {\n", pad, n.ID())
	fmt.Fprintf(w.buf, "%s  label=%q;\n", pad, n.Name())
	fmt.Fprintf(w.buf, "%s  style=rounded;\n", pad)
	for _, p := range n.Ports() {
		fmt.Fprintf(w.buf, "%s  %q [shape=ellipse, fontsize=10, label=%q];\n",
			pad, portKey(n.ID(), p.Name), w.portLabel(p))
	}
	for _, c := range n.Children() {
		w.node(c, depth+1)
	}
	w.edges(n, depth+1)
	fmt.Fprintf(w.buf, "%s}\n", pad)
}

// edges renders one scope's edge list. Endpoints on the scope's own
// boundary or on a child compound attach to the matching port ellipse;
// endpoints on atomic children attach to the box with the port as an
// end label.
func (w dotWriter) edges(scope *portgraph.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, e := range scope.Edges() {
		if !w.layerVisible(e.Layer) {
			continue
		}
		from, tail := w.anchor(scope, e.From)
		to, head := w.anchor(scope, e.To)
		var attrs []string
		if tail != "" {
			attrs = append(attrs, fmt.Sprintf("taillabel=%q", tail))
		}
		if head != "" {
			attrs = append(attrs, fmt.Sprintf("headlabel=%q", head))
		}
		if e.Layer != portgraph.LayerDataflow {
			attrs = append(attrs, "style=dashed", fmt.Sprintf("label=%q", e.Layer))
		}
		fmt.Fprintf(w.buf, "%s%q -> %q", pad, from, to)
		if len(attrs) > 0 {
			fmt.Fprintf(w.buf, " [%s]", strings.Join(attrs, ", "))
		}
		w.buf.WriteString(";\n")
	}
}

// anchor maps an edge end to a DOT node key plus an optional end label.
func (w dotWriter) anchor(scope *portgraph.Node, end portgraph.EdgeEnd) (string, string) {
	if end.Port == "" {
		return end.Node, ""
	}
	if end.Node == scope.ID() {
		return portKey(scope.ID(), end.Port), ""
	}
	if c, ok := scope.Child(end.Node); ok && c.IsCompound() {
		return portKey(end.Node, end.Port), ""
	}
	return end.Node, end.Port
}

func (w dotWriter) layerVisible(layer string) bool {
	if len(w.opts.Layers) == 0 {
		return true
	}
	for _, l := range w.opts.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

func (w dotWriter) label(n *portgraph.Node) string {
	if !w.opts.Detailed {
		return n.Name()
	}
	parts := []string{n.Name()}
	for _, p := range n.Ports() {
		parts = append(parts, w.portLabel(p))
	}
	if n.IsReference() {
		parts = append(parts, "-> "+n.Component())
	}
	return strings.Join(parts, "\n")
}

func (w dotWriter) portLabel(p portgraph.Port) string {
	if !w.opts.Detailed || p.Type == nil {
		return p.Name
	}
	return fmt.Sprintf("%s: %v", p.Name, p.Type)
}

func portKey(node, port string) string { return node + "@" + port }
