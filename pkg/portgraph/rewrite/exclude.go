package rewrite

import (
	"fmt"

	"github.com/graphir/graphir/pkg/portgraph"
)

// ExcludeNode moves a child node out of its compound into the enclosing
// scope. It is legal only when every dataflow predecessor of the node
// inside the compound is the compound's own boundary; a sibling predecessor
// fails with [portgraph.ErrBlocked].
//
// Boundary input ports that existed solely to feed the node are removed and
// their external sources rewired straight to the node. Output ports fed
// solely by the node are removed and their external consumers rewired
// likewise. Siblings that consumed one of the node's outputs keep a path in
// through a new boundary input port mirroring that output. When the
// enclosing scope already has a sibling with the node's name, the node is
// renamed with a numeric suffix so the move always lands.
func ExcludeNode(g *portgraph.Graph, nodeID string) (*portgraph.Graph, error) {
	path, err := g.PathOf(nodeID)
	if err != nil {
		return g, err
	}
	if len(path) < 2 {
		return g, fmt.Errorf("node %s is not inside a compound: %w", nodeID, portgraph.ErrInvalidStructure)
	}
	compID := path.Parent().Leaf()
	comp, err := g.NodeByID(compID)
	if err != nil {
		return g, err
	}
	node, err := g.NodeByID(nodeID)
	if err != nil {
		return g, err
	}
	outerPath := path.Parent().Parent()
	outer, err := g.NodeByPath(outerPath)
	if err != nil {
		return g, err
	}

	usedPorts := map[string]struct{}{}
	for _, p := range comp.Ports() {
		usedPorts[p.Name] = struct{}{}
	}

	var (
		innerRemovals []portgraph.Edge
		outerRemovals []portgraph.Edge
		outerRemoved  = map[portgraph.Edge]bool{}
		obsolete      []string
		obsoleteSeen  = map[string]bool{}
		mirrors       []portgraph.Port
		mirrorByPort  = map[string]string{} // node output port -> mirror boundary port
		inserts       []portgraph.Edge
		insertSeen    = map[portgraph.Edge]bool{}
	)
	addEdge := func(e portgraph.Edge) {
		if !insertSeen[e] {
			insertSeen[e] = true
			inserts = append(inserts, e)
		}
	}
	removeOuter := func(e portgraph.Edge) {
		if !outerRemoved[e] {
			outerRemoved[e] = true
			outerRemovals = append(outerRemovals, e)
		}
	}
	dropPort := func(name string) {
		if !obsoleteSeen[name] {
			obsoleteSeen[name] = true
			obsolete = append(obsolete, name)
		}
	}
	outerFeeds := func(boundary portgraph.Ref) []portgraph.Edge {
		var out []portgraph.Edge
		for _, e := range outer.Edges() {
			if e.Layer == portgraph.LayerDataflow && e.To == (portgraph.EdgeEnd{Node: boundary.Node, Port: boundary.Port}) {
				out = append(out, e)
			}
		}
		return out
	}
	outerConsumers := func(boundary portgraph.Ref) []portgraph.Edge {
		var out []portgraph.Edge
		for _, e := range outer.Edges() {
			if e.Layer == portgraph.LayerDataflow && e.From == (portgraph.EdgeEnd{Node: boundary.Node, Port: boundary.Port}) {
				out = append(out, e)
			}
		}
		return out
	}
	feedsOthers := func(bport string) bool {
		for _, e := range comp.Edges() {
			if e.Layer == portgraph.LayerDataflow && e.From.Node == compID && e.From.Port == bport && e.To.Node != nodeID {
				return true
			}
		}
		return false
	}

	for _, e := range comp.Edges() {
		if e.From.Node != nodeID && e.To.Node != nodeID {
			continue
		}
		innerRemovals = append(innerRemovals, e)

		if e.Layer != portgraph.LayerDataflow {
			// Reroute portlessly on the same layer.
			if e.To.Node == nodeID {
				if e.From.Node != compID {
					addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: e.From.Node}, To: portgraph.EdgeEnd{Node: compID}, Layer: e.Layer})
				}
				addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: compID}, To: portgraph.EdgeEnd{Node: nodeID}, Layer: e.Layer})
			} else {
				addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: nodeID}, To: portgraph.EdgeEnd{Node: compID}, Layer: e.Layer})
				if e.To.Node != compID {
					addEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: compID}, To: portgraph.EdgeEnd{Node: e.To.Node}, Layer: e.Layer})
				}
			}
			continue
		}

		if e.To.Node == nodeID {
			if e.From.Node != compID {
				return g, fmt.Errorf("node %s has internal predecessor %s: %w", node.Name(), e.From, portgraph.ErrBlocked)
			}
			boundary := e.From.Ref()
			for _, fe := range outerFeeds(boundary) {
				addEdge(portgraph.NewEdge(fe.From.Ref(), portgraph.Ref{Node: nodeID, Port: e.To.Port}))
				if !feedsOthers(boundary.Port) {
					removeOuter(fe)
				}
			}
			if !feedsOthers(boundary.Port) {
				dropPort(boundary.Port)
			}
			continue
		}

		// e.From.Node == nodeID
		if e.To.Node == compID {
			boundary := e.To.Ref()
			for _, ce := range outerConsumers(boundary) {
				removeOuter(ce)
				addEdge(portgraph.NewEdge(portgraph.Ref{Node: nodeID, Port: e.From.Port}, ce.To.Ref()))
			}
			dropPort(boundary.Port)
			continue
		}

		// A sibling consumed this output: mirror it as a boundary input.
		mirror, ok := mirrorByPort[e.From.Port]
		if !ok {
			p, err := g.Port(e.From.Ref())
			if err != nil {
				return g, err
			}
			mirror = freshName(node.Name()+"_"+e.From.Port, usedPorts)
			mirrorByPort[e.From.Port] = mirror
			mirrors = append(mirrors, portgraph.Port{Name: mirror, Kind: portgraph.In, Type: p.Type})
			addEdge(portgraph.NewEdge(portgraph.Ref{Node: nodeID, Port: e.From.Port}, portgraph.Ref{Node: compID, Port: mirror}))
		}
		addEdge(portgraph.NewEdge(portgraph.Ref{Node: compID, Port: mirror}, e.To.Ref()))
	}

	var css []portgraph.ChangeSet
	for _, e := range innerRemovals {
		css = append(css, portgraph.RemoveEdge(e))
	}
	for _, e := range outerRemovals {
		css = append(css, portgraph.RemoveEdge(e))
	}
	if len(obsolete) > 0 || len(mirrors) > 0 {
		css = append(css, portgraph.UpdateNode(compID, portgraph.NodeUpdate{AddPorts: mirrors, RemovePorts: obsolete}))
	}
	outerNames := map[string]struct{}{}
	for _, c := range outer.Children() {
		outerNames[c.Name()] = struct{}{}
	}
	if _, taken := outerNames[node.Name()]; taken {
		// Renamed before the move, so the fresh name must also be free
		// among the current siblings.
		for _, c := range comp.Children() {
			outerNames[c.Name()] = struct{}{}
		}
		renamed := freshName(node.Name(), outerNames)
		css = append(css, portgraph.UpdateNode(nodeID, portgraph.NodeUpdate{Name: &renamed}))
	}
	css = append(css, portgraph.MoveNode(nodeID, outerPath))
	for _, e := range inserts {
		css = append(css, portgraph.InsertEdge(e))
	}
	out, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return g, err
	}
	return out, nil
}
