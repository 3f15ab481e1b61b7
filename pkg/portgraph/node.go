package portgraph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Kind is the closed set of node variants. The rewrite engine branches
// exhaustively over exactly these three shapes.
type Kind int

const (
	// Atomic nodes are leaves: they expose ports and have no children.
	Atomic Kind = iota
	// Compound nodes own a nested sub-graph. Their ports double as the
	// boundary between the inner scope and the outside.
	Compound
	// Reference nodes name an external, not-yet-realized component and
	// carry no ports until resolved.
	Reference
)

func (k Kind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a vertex in the graph tree. The identifier is assigned once at
// construction and never changes, even when the node is moved to another
// compound. All structural state is reachable only through accessors; nodes
// are mutated exclusively by applying change-sets to a [Graph].
type Node struct {
	id    string
	name  string
	kind  Kind
	ports []Port
	path  CompoundPath

	// Compound only.
	children []*Node
	edges    []Edge

	// Reference only.
	component string
}

// NewAtomic creates an atomic node with a fresh identifier. The name may be
// empty, in which case the identifier doubles as the name.
func NewAtomic(name string, ports ...Port) *Node {
	return &Node{id: uuid.NewString(), name: name, kind: Atomic, ports: slices.Clone(ports)}
}

// NewCompound creates an empty compound node with a fresh identifier.
// The given ports form its boundary.
func NewCompound(name string, ports ...Port) *Node {
	return &Node{id: uuid.NewString(), name: name, kind: Compound, ports: slices.Clone(ports)}
}

// NewReference creates a reference node pointing at the component with the
// given identifier. Reference nodes have no ports until resolved.
func NewReference(name, component string) *Node {
	return &Node{id: uuid.NewString(), name: name, kind: Reference, component: component}
}

// WithID overrides the generated identifier. It exists for loaders that
// restore serialized graphs and must be called before the node is inserted
// into a graph; identifiers of inserted nodes never change.
func (n *Node) WithID(id string) *Node {
	n.id = id
	return n
}

// ID returns the globally unique, immutable identifier.
func (n *Node) ID() string { return n.id }

// Name returns the sibling-unique name, falling back to the identifier when
// no name was assigned.
func (n *Node) Name() string {
	if n.name == "" {
		return n.id
	}
	return n.name
}

// HasName reports whether an explicit name was assigned.
func (n *Node) HasName() bool { return n.name != "" }

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// IsAtomic reports whether the node is a leaf.
func (n *Node) IsAtomic() bool { return n.kind == Atomic }

// IsCompound reports whether the node owns a nested sub-graph.
func (n *Node) IsCompound() bool { return n.kind == Compound }

// IsReference reports whether the node is an unresolved component reference.
func (n *Node) IsReference() bool { return n.kind == Reference }

// Component returns the referenced component identifier for reference nodes,
// and the empty string otherwise.
func (n *Node) Component() string { return n.component }

// Path returns the node's position as identifiers from the root.
func (n *Node) Path() CompoundPath { return slices.Clone(n.path) }

// Ports returns the node's ordered port list.
func (n *Node) Ports() []Port { return slices.Clone(n.ports) }

// Port looks up a port by name.
func (n *Node) Port(name string) (Port, bool) {
	for _, p := range n.ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// InputPorts returns the ports of kind [In], in declaration order.
func (n *Node) InputPorts() []Port { return n.portsOfKind(In) }

// OutputPorts returns the ports of kind [Out], in declaration order.
func (n *Node) OutputPorts() []Port { return n.portsOfKind(Out) }

func (n *Node) portsOfKind(k PortKind) []Port {
	var out []Port
	for _, p := range n.ports {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

// Children returns the direct children of a compound, in insertion order.
// Non-compound nodes have none.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Child looks up a direct child by identifier.
func (n *Node) Child(id string) (*Node, bool) {
	if i := n.childIndex(id); i >= 0 {
		return n.children[i], true
	}
	return nil, false
}

// Edges returns the edge list owned by a compound's scope.
func (n *Node) Edges() []Edge { return slices.Clone(n.edges) }

func (n *Node) childIndex(id string) int {
	return slices.IndexFunc(n.children, func(c *Node) bool { return c.id == id })
}

func (n *Node) childByName(name string) *Node {
	for _, c := range n.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// clone copies the node one level deep: the port, edge, and child slices are
// fresh, the child pointers are shared. Used by the persistent apply path to
// rebuild only the chain from the root to the edit site.
func (n *Node) clone() *Node {
	c := *n
	c.ports = slices.Clone(n.ports)
	c.edges = slices.Clone(n.edges)
	c.children = slices.Clone(n.children)
	c.path = slices.Clone(n.path)
	return &c
}

// cloneDeep copies the whole subtree. Used when a caller-owned node is
// inserted into a persistent graph, and when a move must re-path a subtree
// without touching the original objects.
func (n *Node) cloneDeep() *Node {
	c := n.clone()
	for i, ch := range c.children {
		c.children[i] = ch.cloneDeep()
	}
	return c
}

// setPaths assigns the path of n and recomputes the paths of every
// descendant. Callers must hold exclusive ownership of the subtree.
func (n *Node) setPaths(parent CompoundPath) {
	n.path = parent.Child(n.id)
	for _, c := range n.children {
		c.setPaths(n.path)
	}
}

// validateShape checks the invariants a node must satisfy before insertion:
// a non-empty identifier, well-formed uniquely named ports, and no ports on
// reference nodes.
func (n *Node) validateShape() error {
	if n.id == "" {
		return fmt.Errorf("node identifier must not be empty: %w", ErrInvalidStructure)
	}
	if n.kind == Reference {
		if n.component == "" {
			return fmt.Errorf("reference node %s names no component: %w", n.Name(), ErrInvalidStructure)
		}
		if len(n.ports) > 0 {
			return fmt.Errorf("reference node %s must not carry ports: %w", n.Name(), ErrInvalidStructure)
		}
	}
	seen := make(map[string]struct{}, len(n.ports))
	for _, p := range n.ports {
		if err := p.validate(); err != nil {
			return fmt.Errorf("node %s: %w", n.Name(), err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("node %s: duplicate port %q: %w", n.Name(), p.Name, ErrInvalidStructure)
		}
		seen[p.Name] = struct{}{}
	}
	if n.kind != Compound && len(n.children) > 0 {
		return fmt.Errorf("%s node %s must not have children: %w", n.kind, n.Name(), ErrInvalidStructure)
	}
	for _, c := range n.children {
		if err := c.validateShape(); err != nil {
			return err
		}
	}
	return nil
}
