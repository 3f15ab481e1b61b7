package rewrite

import (
	"fmt"

	"github.com/graphir/graphir/pkg/portgraph"
)

// IncludePredecessor pulls the node feeding the given compound boundary
// input port from the enclosing scope into the compound. The boundary ports
// the predecessor fed disappear and their internal consumers are rewired to
// the predecessor directly; the predecessor's own external inputs become
// new boundary input ports preserving their wiring.
//
// The predecessor must have no dataflow successor besides the compound,
// since moving it inside would disconnect any other consumer; that fails
// with [portgraph.ErrBlocked].
func IncludePredecessor(g *portgraph.Graph, ref portgraph.Ref) (*portgraph.Graph, error) {
	comp, err := g.NodeByID(ref.Node)
	if err != nil {
		return g, err
	}
	if !comp.IsCompound() {
		return g, fmt.Errorf("node %s is not a compound: %w", comp.Name(), portgraph.ErrInvalidStructure)
	}
	port, ok := comp.Port(ref.Port)
	if !ok {
		return g, fmt.Errorf("port %s: %w", ref, portgraph.ErrNotFound)
	}
	if port.Kind != portgraph.In {
		return g, fmt.Errorf("port %s is not an input: %w", ref, portgraph.ErrInvalidStructure)
	}
	compPath, err := g.PathOf(comp.ID())
	if err != nil {
		return g, err
	}
	outer, err := g.NodeByPath(compPath.Parent())
	if err != nil {
		return g, err
	}

	preds, err := g.Predecessors(ref, portgraph.ConnectOptions{})
	if err != nil {
		return g, err
	}
	if len(preds) == 0 {
		return g, fmt.Errorf("port %s has no predecessor: %w", ref, portgraph.ErrNotFound)
	}
	if preds[0].Node == outer.ID() {
		return g, fmt.Errorf("port %s is fed by the enclosing boundary: %w", ref, portgraph.ErrBlocked)
	}
	pred, err := g.NodeByID(preds[0].Node)
	if err != nil {
		return g, err
	}

	// The predecessor must feed nothing but the compound.
	for _, op := range pred.OutputPorts() {
		succs, err := g.Successors(portgraph.Ref{Node: pred.ID(), Port: op.Name}, portgraph.ConnectOptions{})
		if err != nil {
			return g, err
		}
		for _, s := range succs {
			if s.Node != comp.ID() {
				return g, fmt.Errorf("predecessor %s also feeds %s: %w", pred.Name(), s, portgraph.ErrBlocked)
			}
		}
	}

	usedPorts := map[string]struct{}{}
	for _, p := range comp.Ports() {
		usedPorts[p.Name] = struct{}{}
	}

	var (
		innerRemovals []portgraph.Edge
		outerRemovals []portgraph.Edge
		obsolete      []string
		newPorts      []portgraph.Port
		inserts       []portgraph.Edge
		insertSeen    = map[portgraph.Edge]bool{}
	)
	addEdge := func(e portgraph.Edge) {
		if !insertSeen[e] {
			insertSeen[e] = true
			inserts = append(inserts, e)
		}
	}

	for _, e := range outer.Edges() {
		if e.From.Node != pred.ID() && e.To.Node != pred.ID() {
			continue
		}
		outerRemovals = append(outerRemovals, e)

		if e.Layer != portgraph.LayerDataflow {
			// Reroute portlessly on the same layer.
			if e.To.Node == pred.ID() {
				if e.From.Node != comp.ID() {
					addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: e.From.Node}, To: portgraph.EdgeEnd{Node: comp.ID()}, Layer: e.Layer})
				}
				addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: comp.ID()}, To: portgraph.EdgeEnd{Node: pred.ID()}, Layer: e.Layer})
			} else {
				addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: pred.ID()}, To: portgraph.EdgeEnd{Node: comp.ID()}, Layer: e.Layer})
				if e.To.Node != comp.ID() {
					addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: comp.ID()}, To: portgraph.EdgeEnd{Node: e.To.Node}, Layer: e.Layer})
				}
			}
			continue
		}

		if e.From.Node == pred.ID() {
			// The predecessor fed a boundary input port; that port dissolves
			// and its internal consumers connect to the predecessor directly.
			boundary := e.To.Port
			obsolete = append(obsolete, boundary)
			for _, ie := range comp.Edges() {
				if ie.Layer == portgraph.LayerDataflow && ie.From.Node == comp.ID() && ie.From.Port == boundary {
					innerRemovals = append(innerRemovals, ie)
					addEdge(portgraph.NewEdge(portgraph.Ref{Node: pred.ID(), Port: e.From.Port}, ie.To.Ref()))
				}
			}
			continue
		}

		// An external source fed the predecessor; keep the wiring through a
		// new boundary input port.
		name := freshName(pred.Name()+"_"+e.To.Port, usedPorts)
		p, err := g.Port(e.To.Ref())
		if err != nil {
			return g, err
		}
		newPorts = append(newPorts, portgraph.Port{Name: name, Kind: portgraph.In, Type: p.Type})
		addEdge(portgraph.NewEdge(e.From.Ref(), portgraph.Ref{Node: comp.ID(), Port: name}))
		addEdge(portgraph.NewEdge(portgraph.Ref{Node: comp.ID(), Port: name}, portgraph.Ref{Node: pred.ID(), Port: e.To.Port}))
	}

	var css []portgraph.ChangeSet
	for _, e := range outerRemovals {
		css = append(css, portgraph.RemoveEdge(e))
	}
	for _, e := range innerRemovals {
		css = append(css, portgraph.RemoveEdge(e))
	}
	if len(obsolete) > 0 || len(newPorts) > 0 {
		css = append(css, portgraph.UpdateNode(comp.ID(), portgraph.NodeUpdate{AddPorts: newPorts, RemovePorts: obsolete}))
	}
	css = append(css, portgraph.MoveNode(pred.ID(), compPath))
	for _, e := range inserts {
		css = append(css, portgraph.InsertEdge(e))
	}
	out, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return g, err
	}
	return out, nil
}
