package rewrite

import (
	"fmt"

	"github.com/graphir/graphir/pkg/portgraph"
	"github.com/graphir/graphir/pkg/portgraph/algo"
)

// UnCompound flattens a compound into its enclosing scope: every child is
// excluded in topological order (so no child ever has an internal
// predecessor left when its turn comes), boundary pass-through connections
// are reconnected directly, and the emptied compound is removed.
//
// Non-dataflow edges rerouted through the compound are replaced by the
// transitive closure across it, preserving every ordering constraint the
// compound mediated.
func UnCompound(g *portgraph.Graph, compoundID string) (*portgraph.Graph, error) {
	original := g

	comp, err := g.NodeByID(compoundID)
	if err != nil {
		return g, err
	}
	if !comp.IsCompound() {
		return g, fmt.Errorf("node %s is not a compound: %w", comp.Name(), portgraph.ErrInvalidStructure)
	}
	path, err := g.PathOf(compoundID)
	if err != nil {
		return g, err
	}
	if path.IsRoot() {
		return g, fmt.Errorf("cannot flatten the root compound: %w", portgraph.ErrInvalidStructure)
	}

	for {
		children, err := g.Children(compoundID)
		if err != nil {
			return original, err
		}
		if len(children) == 0 {
			break
		}
		sorted, err := algo.TopologicalSort(g, compoundID)
		if err != nil {
			return original, err
		}
		if g, err = ExcludeNode(g, sorted[0].ID()); err != nil {
			return original, err
		}
	}

	comp, err = g.NodeByID(compoundID)
	if err != nil {
		return original, err
	}
	outer, err := g.NodeByPath(path.Parent())
	if err != nil {
		return original, err
	}

	existing := map[portgraph.Edge]bool{}
	for _, e := range outer.Edges() {
		existing[e] = true
	}
	var css []portgraph.ChangeSet
	addEdge := func(e portgraph.Edge) {
		if !existing[e] {
			existing[e] = true
			css = append(css, portgraph.InsertEdge(e))
		}
	}

	// Dataflow pass-throughs: an input boundary port wired straight to an
	// output boundary port. Bridge the external source to each external
	// consumer directly.
	for _, pt := range comp.Edges() {
		if pt.Layer != portgraph.LayerDataflow || pt.From.Node != compoundID || pt.To.Node != compoundID {
			continue
		}
		var sources []portgraph.Ref
		var consumers []portgraph.Edge
		for _, e := range outer.Edges() {
			if e.Layer != portgraph.LayerDataflow {
				continue
			}
			if e.To == pt.From {
				sources = append(sources, e.From.Ref())
			}
			if e.From == pt.To {
				consumers = append(consumers, e)
			}
		}
		for _, ce := range consumers {
			// Free the consumer's input before bridging it.
			css = append(css, portgraph.RemoveEdge(ce))
			for _, src := range sources {
				addEdge(portgraph.NewEdge(src, ce.To.Ref()))
			}
		}
	}

	// Non-dataflow layers: replace the compound by the transitive closure of
	// the constraints running through it.
	type layered struct {
		layer string
		end   portgraph.EdgeEnd
	}
	var inbound, outbound []layered
	for _, e := range outer.Edges() {
		if e.Layer == portgraph.LayerDataflow {
			continue
		}
		if e.To.Node == compoundID {
			inbound = append(inbound, layered{layer: e.Layer, end: e.From})
		}
		if e.From.Node == compoundID {
			outbound = append(outbound, layered{layer: e.Layer, end: e.To})
		}
	}
	for _, in := range inbound {
		for _, out := range outbound {
			if in.layer != out.layer || in.end.Node == out.end.Node {
				continue
			}
			addEdge(portgraph.Edge{From: in.end, To: out.end, Layer: in.layer})
		}
	}

	// Dropping the compound takes its remaining incident edges with it.
	css = append(css, portgraph.RemoveNode(compoundID))

	out, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return original, err
	}
	return out, nil
}
