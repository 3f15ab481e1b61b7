// Package graphdoc converts port graphs to and from their external
// document form: a plain JSON tree of nodes, edges, components, and
// metadata, with compound nodes recursively nesting the same shape.
// Internal caches and the mutation-mode flag never appear in documents.
package graphdoc

import "github.com/graphir/graphir/pkg/portgraph"

// Document is the root of the external form.
type Document struct {
	Nodes           []Node         `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Edges           []Edge         `json:"edges,omitempty" bson:"edges,omitempty"`
	Components      []Component    `json:"components,omitempty" bson:"components,omitempty"`
	MetaInformation map[string]any `json:"metaInformation,omitempty" bson:"metaInformation,omitempty"`
}

// Node is one node document. Compound nodes carry their nested scope in
// Nodes and Edges; reference nodes carry the referenced component
// identifier instead of ports.
type Node struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Kind      string `json:"kind" bson:"kind"`
	Ports     []Port `json:"ports,omitempty" bson:"ports,omitempty"`
	Component string `json:"component,omitempty" bson:"component,omitempty"`
	Nodes     []Node `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Edges     []Edge `json:"edges,omitempty" bson:"edges,omitempty"`
}

// Port is one port document.
type Port struct {
	Name string `json:"name" bson:"name"`
	Kind string `json:"kind" bson:"kind"`
	Type any    `json:"type,omitempty" bson:"type,omitempty"`
}

// Edge is one edge document within its owning scope.
type Edge struct {
	From  End    `json:"from" bson:"from"`
	To    End    `json:"to" bson:"to"`
	Layer string `json:"layer,omitempty" bson:"layer,omitempty"`
}

// End is one edge endpoint. An empty port selects the node's default port
// on the dataflow layer and a direct node connection elsewhere.
type End struct {
	Node string `json:"node" bson:"node"`
	Port string `json:"port,omitempty" bson:"port,omitempty"`
}

// Component is one registered component definition.
type Component struct {
	ID         string `json:"id" bson:"id"`
	Version    string `json:"version,omitempty" bson:"version,omitempty"`
	Definition *Node  `json:"definition,omitempty" bson:"definition,omitempty"`
}

const (
	kindAtomic    = "atomic"
	kindCompound  = "compound"
	kindReference = "reference"
)

func kindString(k portgraph.Kind) string { return k.String() }
