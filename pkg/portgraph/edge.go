package portgraph

import "fmt"

// LayerDataflow is the default edge layer. Dataflow edges are the ones the
// traversal and rewrite algorithms follow; they connect output ports to
// input ports (or compound boundary ports playing those roles). Edges on
// any other layer, e.g. control or ordering edges, bypass the port-kind
// constraints and may connect nodes directly.
const LayerDataflow = "dataflow"

// EdgeEnd is one endpoint of an edge: a node identifier plus an optional
// port name. An empty port means the node's single applicable default port
// on the dataflow layer, and a direct node-level connection on other layers.
type EdgeEnd struct {
	Node string
	Port string
}

// Ref converts the endpoint into a port reference.
func (e EdgeEnd) Ref() Ref { return Ref{Node: e.Node, Port: e.Port} }

func (e EdgeEnd) String() string { return e.Ref().String() }

// Edge is a directed connection between two endpoints, tagged with a layer
// used purely for traversal filtering. Every edge is recorded in the edge
// list of the nearest common ancestor compound of its endpoints, so its
// endpoints always resolve to direct children of that compound or to the
// compound's own boundary ports.
type Edge struct {
	From  EdgeEnd
	To    EdgeEnd
	Layer string
}

// NewEdge creates a dataflow edge between two endpoints given as Refs.
func NewEdge(from, to Ref) Edge {
	return Edge{
		From:  EdgeEnd{Node: from.Node, Port: from.Port},
		To:    EdgeEnd{Node: to.Node, Port: to.Port},
		Layer: LayerDataflow,
	}
}

// OnLayer returns a copy of the edge tagged with the given layer.
func (e Edge) OnLayer(layer string) Edge {
	e.Layer = layer
	return e
}

// Equal reports whether two edges connect the same endpoints on the same layer.
func (e Edge) Equal(other Edge) bool { return e == other }

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s [%s]", e.From, e.To, e.Layer)
}

// OwnedEdge pairs an edge with the identifier of the compound whose edge
// list records it. Deep edge enumeration returns OwnedEdges because the
// same endpoints are only meaningful relative to their owning scope.
type OwnedEdge struct {
	Owner string // identifier of the owning compound (the root's for top-level edges)
	Edge  Edge
}
