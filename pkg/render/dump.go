package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/graphir/graphir/pkg/portgraph"
)

// Dump writes a plain-text outline of the graph: the node tree with ports,
// each scope's edges, components, and metadata. When highlightErr is set a
// warning banner precedes the outline. Intended for debugging; the format
// is not stable.
func Dump(w io.Writer, g *portgraph.Graph, highlightErr bool) {
	if highlightErr {
		fmt.Fprintln(w, "!! graph in error state")
	}
	root := g.Root()
	for _, c := range root.Children() {
		dumpNode(w, c, 0)
	}
	dumpEdges(w, root.Edges(), 0)
	for _, c := range g.Components() {
		fmt.Fprintf(w, "component %s", c.ID)
		if c.Version != "" {
			fmt.Fprintf(w, " v%s", c.Version)
		}
		fmt.Fprintln(w)
	}
	for k, v := range g.Meta() {
		fmt.Fprintf(w, "meta %s = %v\n", k, v)
	}
}

func dumpNode(w io.Writer, n *portgraph.Node, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s %s", pad, n.Kind(), n.Name())
	if n.HasName() {
		fmt.Fprintf(w, " (%s)", n.ID())
	}
	if ports := n.Ports(); len(ports) > 0 {
		labels := make([]string, len(ports))
		for i, p := range ports {
			labels[i] = string(p.Kind[0]) + ":" + p.Name
		}
		fmt.Fprintf(w, " [%s]", strings.Join(labels, " "))
	}
	if n.IsReference() {
		fmt.Fprintf(w, " -> %s", n.Component())
	}
	fmt.Fprintln(w)
	for _, c := range n.Children() {
		dumpNode(w, c, depth+1)
	}
	dumpEdges(w, n.Edges(), depth+1)
}

func dumpEdges(w io.Writer, edges []portgraph.Edge, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, e := range edges {
		fmt.Fprintf(w, "%s%s\n", pad, e)
	}
}
