package portgraph

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Graph is the top-level compound: the root node list and edge list, the
// flat component registry, free-form metadata, and the mode flag selecting
// persistent versus in-place mutation semantics for the whole tree.
//
// In persistent mode (the default), applying a change-set returns a new
// Graph value and never observably alters the original, so one graph may
// safely be referenced from many places. In in-place mode the same Graph is
// mutated and returned; an in-place graph must be treated as uniquely owned
// by the call sequence constructing it. The engine performs no
// synchronization of its own.
type Graph struct {
	root       *Node
	components map[string]Component
	meta       map[string]any
	inPlace    bool
	memo       *memoTable
}

// New creates an empty graph in persistent mode. The metadata map may be nil.
func New(meta map[string]any) *Graph {
	if meta == nil {
		meta = map[string]any{}
	}
	return &Graph{
		root:       &Node{id: newRootID(), kind: Compound},
		components: map[string]Component{},
		meta:       meta,
		memo:       newMemoTable(),
	}
}

func newRootID() string { return NewCompound("").id }

// NewBuilder creates an empty graph in in-place mode: an isolated arena for
// bulk construction, where applying change-sets mutates the graph directly
// instead of rebuilding container chains. Call [Graph.Freeze] once
// construction is done and the graph is about to be shared.
func NewBuilder(meta map[string]any) *Graph {
	g := New(meta)
	g.inPlace = true
	return g
}

// Freeze switches the graph to persistent mode and returns it. Subsequent
// change-sets leave this value untouched.
func (g *Graph) Freeze() *Graph {
	g.inPlace = false
	return g
}

// InPlace reports whether change-sets mutate this graph directly.
func (g *Graph) InPlace() bool { return g.inPlace }

// Root returns the root compound node. Treat the returned node as read-only;
// all mutation goes through change-sets.
func (g *Graph) Root() *Node { return g.root }

// RootID returns the root compound's identifier.
func (g *Graph) RootID() string { return g.root.id }

// Meta returns a copy of the graph-level metadata map.
func (g *Graph) Meta() map[string]any { return maps.Clone(g.meta) }

// MetaValue looks up one metadata key.
func (g *Graph) MetaValue(key string) (any, bool) {
	v, ok := g.meta[key]
	return v, ok
}

// Component looks up a component definition by identifier.
func (g *Graph) Component(id string) (Component, bool) {
	c, ok := g.components[id]
	return c, ok
}

// Components returns all registered components sorted by identifier.
func (g *Graph) Components() []Component {
	out := make([]Component, 0, len(g.components))
	for _, c := range g.components {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Component) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// =============================================================================
// Deep enumeration (memoized)
// =============================================================================

// NodesDeep returns every node in the tree at any nesting level, in
// pre-order, excluding the root compound itself. The result is memoized;
// treat it as read-only.
func (g *Graph) NodesDeep() []*Node {
	if v, ok := g.memo.get(memoNodesDeep, ""); ok {
		return v.([]*Node)
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(g.root)
	g.memo.put(memoNodesDeep, "", out)
	return out
}

// EdgesDeep returns every edge at any nesting level, paired with its owning
// compound, in pre-order of owners. The result is memoized; treat it as
// read-only.
func (g *Graph) EdgesDeep() []OwnedEdge {
	if v, ok := g.memo.get(memoEdgesDeep, ""); ok {
		return v.([]OwnedEdge)
	}
	var out []OwnedEdge
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, e := range n.edges {
			out = append(out, OwnedEdge{Owner: n.id, Edge: e})
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(g.root)
	g.memo.put(memoEdgesDeep, "", out)
	return out
}

// pathIndex maps every node identifier in the tree to its path. Memoized.
func (g *Graph) pathIndex() map[string]CompoundPath {
	if v, ok := g.memo.get(memoPathIndex, ""); ok {
		return v.(map[string]CompoundPath)
	}
	idx := map[string]CompoundPath{g.root.id: nil}
	for _, n := range g.NodesDeep() {
		idx[n.id] = n.path
	}
	g.memo.put(memoPathIndex, "", idx)
	return idx
}

// =============================================================================
// Location resolution
// =============================================================================

// PathOf returns the path of the node with the given identifier. The root's
// path is empty.
func (g *Graph) PathOf(id string) (CompoundPath, error) {
	p, ok := g.pathIndex()[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return slices.Clone(p), nil
}

// NodeByID resolves an identifier to its node in O(depth) once the path
// index is warm.
func (g *Graph) NodeByID(id string) (*Node, error) {
	p, err := g.PathOf(id)
	if err != nil {
		return nil, err
	}
	return g.NodeByPath(p)
}

// NodeByPath resolves a path by descending from the root. The empty path
// resolves to the root compound.
func (g *Graph) NodeByPath(path CompoundPath) (*Node, error) {
	cur := g.root
	for _, id := range path {
		next, ok := cur.Child(id)
		if !ok {
			return nil, fmt.Errorf("path %s: %w", path, ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

// NodeByName resolves a chain of sibling names starting below the root.
// Unnamed nodes match by identifier, mirroring the name fallback.
func (g *Graph) NodeByName(names ...string) (*Node, error) {
	cur := g.root
	for _, name := range names {
		next := cur.childByName(name)
		if next == nil {
			return nil, fmt.Errorf("name %s: %w", strings.Join(names, "/"), ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

// Port resolves a port reference to the port value.
func (g *Graph) Port(ref Ref) (Port, error) {
	n, err := g.NodeByID(ref.Node)
	if err != nil {
		return Port{}, err
	}
	p, ok := n.Port(ref.Port)
	if !ok {
		return Port{}, fmt.Errorf("port %s: %w", ref, ErrNotFound)
	}
	return p, nil
}

// ParentOf returns the compound that logically owns the node: the nearest
// ancestor compound respecting the edge-locality rule. The root is its own
// frame and has no parent; asking for it fails with [ErrNotFound].
func (g *Graph) ParentOf(id string) (*Node, error) {
	if id == g.root.id {
		return nil, fmt.Errorf("root has no parent: %w", ErrNotFound)
	}
	p, err := g.PathOf(id)
	if err != nil {
		return nil, err
	}
	return g.NodeByPath(p.Parent())
}

// Children returns the direct children of the compound with the given
// identifier. Pass [Graph.RootID] for the top level.
func (g *Graph) Children(id string) ([]*Node, error) {
	n, err := g.NodeByID(id)
	if err != nil {
		return nil, err
	}
	if !n.IsCompound() {
		return nil, fmt.Errorf("node %s is not a compound: %w", n.Name(), ErrInvalidStructure)
	}
	return n.Children(), nil
}

// EdgesAt returns the edge list owned by the compound with the given
// identifier. Pass [Graph.RootID] for the top-level edges.
func (g *Graph) EdgesAt(id string) ([]Edge, error) {
	n, err := g.NodeByID(id)
	if err != nil {
		return nil, err
	}
	if !n.IsCompound() {
		return nil, fmt.Errorf("node %s is not a compound: %w", n.Name(), ErrInvalidStructure)
	}
	return n.Edges(), nil
}

// compoundAt resolves a path and checks the target is a compound.
func (g *Graph) compoundAt(path CompoundPath) (*Node, error) {
	n, err := g.NodeByPath(path)
	if err != nil {
		return nil, err
	}
	if !n.IsCompound() {
		return nil, fmt.Errorf("path %s is not a compound: %w", path, ErrInvalidStructure)
	}
	return n, nil
}

// =============================================================================
// Structural equality
// =============================================================================

// Equal reports whether two graphs are structurally equal: same node tree
// (identifiers, names, kinds, ports including types), same edges per scope
// regardless of list order, same components and metadata. Components
// compare by identifier and version, matching [Component] equality
// semantics; their definitions do not participate. The memo table and the
// mode flag are not part of the observable structure and are ignored, so a
// persistent and an in-place graph can compare equal. The root's own
// identifier is a construction artifact and is ignored too.
func Equal(a, b *Graph) bool {
	if a == nil || b == nil {
		return a == b
	}
	return scopesEqual(a.root, b.root) &&
		componentsEqual(a.components, b.components) &&
		reflect.DeepEqual(a.meta, b.meta)
}

func componentsEqual(a, b map[string]Component) bool {
	if len(a) != len(b) {
		return false
	}
	for id, ca := range a {
		cb, ok := b[id]
		if !ok || ca.Version != cb.Version {
			return false
		}
	}
	return true
}

func nodesEqual(a, b *Node) bool {
	if a.id != b.id || a.name != b.name || a.kind != b.kind || a.component != b.component {
		return false
	}
	return scopesEqual(a, b)
}

// scopesEqual compares everything about a node except its identity fields:
// ports, owned edges (order-insensitive, with the owner's own id normalized
// away so differing root ids still compare equal), and children in order.
func scopesEqual(a, b *Node) bool {
	if !reflect.DeepEqual(a.ports, b.ports) {
		return false
	}
	if len(a.children) != len(b.children) || len(a.edges) != len(b.edges) {
		return false
	}
	keys := func(n *Node) []string {
		out := make([]string, len(n.edges))
		for i, e := range n.edges {
			// Normalize boundary references so the owner's id drops out.
			if e.From.Node == n.id {
				e.From.Node = ""
			}
			if e.To.Node == n.id {
				e.To.Node = ""
			}
			out[i] = e.String()
		}
		slices.Sort(out)
		return out
	}
	if !slices.Equal(keys(a), keys(b)) {
		return false
	}
	for i := range a.children {
		if !nodesEqual(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}
