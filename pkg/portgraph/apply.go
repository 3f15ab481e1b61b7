package portgraph

import (
	"fmt"
	"maps"
	"slices"
)

// Apply executes one change-set against the graph.
//
// In persistent mode, Apply rebuilds only the container chain from the root
// to the edit site (structural sharing everywhere else) and returns a new
// graph value with a fresh memo table; the original graph is never
// observably altered, and inserted nodes are deep-copied so the caller's
// values stay independent. In in-place mode, Apply mutates the receiver
// graph, takes ownership of inserted nodes, performs targeted memo
// invalidation, and returns the same graph reference.
//
// A change-set either fully applies or the graph is left exactly as it was:
// every edit validates before it commits.
func Apply(g *Graph, cs ChangeSet) (*Graph, error) {
	s := newSession(g)
	if err := s.apply(cs); err != nil {
		return g, err
	}
	if s.persistent() {
		// Reads during validation may have warmed the new graph's table
		// with pre-edit state; start clean.
		s.g.memo.reset()
	}
	return s.g, nil
}

// ApplyAll executes change-sets strictly left to right, each seeing the
// result of the previous one. It stops at the first failure and returns the
// graph as of the last successful edit; there is no batch atomicity beyond
// that.
func ApplyAll(g *Graph, css ...ChangeSet) (*Graph, error) {
	cur := g
	for i, cs := range css {
		next, err := Apply(cur, cs)
		if err != nil {
			return cur, fmt.Errorf("change-set %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// =============================================================================
// Edit session
// =============================================================================

// editSession tracks one Apply. For persistent graphs it works on a copy of
// the root whose edit chain is cloned on demand; for in-place graphs it
// works on the graph directly.
type editSession struct {
	g      *Graph
	cloned map[*Node]struct{} // nil in in-place mode
}

func newSession(g *Graph) *editSession {
	if g.inPlace {
		return &editSession{g: g}
	}
	root := g.root.clone()
	g2 := &Graph{
		root:       root,
		components: maps.Clone(g.components),
		meta:       maps.Clone(g.meta),
		memo:       newMemoTable(),
	}
	return &editSession{g: g2, cloned: map[*Node]struct{}{root: {}}}
}

func (s *editSession) persistent() bool { return s.cloned != nil }

// materialize walks to the node at path, cloning the chain in persistent
// mode so the edit never touches nodes shared with the original graph.
// Nodes already cloned within this session are reused, which lets one edit
// touch two scopes that share a prefix.
func (s *editSession) materialize(path CompoundPath) (*Node, error) {
	cur := s.g.root
	for _, id := range path {
		idx := cur.childIndex(id)
		if idx < 0 {
			return nil, fmt.Errorf("path %s: %w", path, ErrNotFound)
		}
		ch := cur.children[idx]
		if s.persistent() {
			if _, ok := s.cloned[ch]; !ok {
				ch = ch.clone()
				s.cloned[ch] = struct{}{}
				cur.children[idx] = ch
			}
		}
		cur = ch
	}
	return cur, nil
}

func (s *editSession) materializeCompound(path CompoundPath) (*Node, error) {
	n, err := s.materialize(path)
	if err != nil {
		return nil, err
	}
	if !n.IsCompound() {
		return nil, fmt.Errorf("path %s is not a compound: %w", path, ErrInvalidStructure)
	}
	return n, nil
}

func (s *editSession) apply(cs ChangeSet) error {
	switch cs.op {
	case opInsertNode:
		return s.insertNode(cs.path, cs.node)
	case opRemoveNode:
		return s.removeNode(cs.nodeID)
	case opUpdateNode:
		return s.updateNode(cs.nodeID, cs.update)
	case opMoveNode:
		return s.moveNode(cs.nodeID, cs.path)
	case opInsertEdge:
		return s.insertEdge(cs.edge)
	case opRemoveEdge:
		return s.removeEdge(cs.edge)
	case opUpdateEdge:
		return s.updateEdge(cs.edge, cs.newLayer)
	case opInsertComponent:
		return s.insertComponent(cs.component)
	case opRemoveComponent:
		return s.removeComponent(cs.component.ID)
	case opUpdateComponent:
		return s.updateComponent(cs.component)
	case opSetMeta:
		s.g.meta[cs.metaKey] = cs.metaValue
		return nil
	case opMergeMeta:
		maps.Copy(s.g.meta, cs.metaMerge)
		return nil
	case opRemoveMeta:
		delete(s.g.meta, cs.metaKey)
		return nil
	default:
		return ErrMalformedChangeSet
	}
}

// =============================================================================
// Node edits
// =============================================================================

func (s *editSession) insertNode(parent CompoundPath, n *Node) error {
	if n == nil {
		return fmt.Errorf("insert-node without node: %w", ErrMalformedChangeSet)
	}
	if err := n.validateShape(); err != nil {
		return err
	}
	if _, err := s.g.compoundAt(parent); err != nil {
		return err
	}
	idx := s.g.pathIndex()
	if err := checkFreshIDs(n, idx); err != nil {
		return err
	}
	parentNode, err := s.g.NodeByPath(parent)
	if err != nil {
		return err
	}
	if parentNode.childByName(n.Name()) != nil {
		return fmt.Errorf("sibling named %q: %w", n.Name(), ErrExists)
	}

	scope, err := s.materializeCompound(parent)
	if err != nil {
		return err
	}
	node := n
	if s.persistent() {
		node = n.cloneDeep()
	}
	node.setPaths(parent)
	scope.children = append(scope.children, node)
	s.g.memo.reset()
	return nil
}

// checkFreshIDs verifies global identifier uniqueness: no identifier in the
// inserted subtree may exist anywhere in the tree, and the subtree itself
// must not repeat one.
func checkFreshIDs(n *Node, existing map[string]CompoundPath) error {
	seen := map[string]struct{}{}
	var walk func(x *Node) error
	walk = func(x *Node) error {
		if _, ok := existing[x.id]; ok {
			return fmt.Errorf("node identifier %s: %w", x.id, ErrExists)
		}
		if _, ok := seen[x.id]; ok {
			return fmt.Errorf("node identifier %s repeated in subtree: %w", x.id, ErrExists)
		}
		seen[x.id] = struct{}{}
		for _, c := range x.children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(n)
}

func (s *editSession) removeNode(id string) error {
	path, err := s.g.PathOf(id)
	if err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("cannot remove the root compound: %w", ErrInvalidStructure)
	}
	scope, err := s.materializeCompound(path.Parent())
	if err != nil {
		return err
	}
	idx := scope.childIndex(id)
	scope.edges = slices.DeleteFunc(scope.edges, func(e Edge) bool {
		return e.From.Node == id || e.To.Node == id
	})
	scope.children = slices.Delete(scope.children, idx, idx+1)
	s.g.memo.reset()
	return nil
}

func (s *editSession) updateNode(id string, upd NodeUpdate) error {
	path, err := s.g.PathOf(id)
	if err != nil {
		return err
	}
	cur, err := s.g.NodeByPath(path)
	if err != nil {
		return err
	}

	if upd.Name != nil && *upd.Name != cur.name && !path.IsRoot() {
		parent, err := s.g.NodeByPath(path.Parent())
		if err != nil {
			return err
		}
		wantName := *upd.Name
		if wantName == "" {
			wantName = cur.id
		}
		if sib := parent.childByName(wantName); sib != nil && sib.id != id {
			return fmt.Errorf("sibling named %q: %w", wantName, ErrExists)
		}
	}
	if cur.IsReference() && len(upd.AddPorts) > 0 {
		return fmt.Errorf("reference node %s must not carry ports: %w", cur.Name(), ErrInvalidStructure)
	}

	remaining := map[string]struct{}{}
	for _, p := range cur.ports {
		remaining[p.Name] = struct{}{}
	}
	for _, name := range upd.RemovePorts {
		if _, ok := remaining[name]; !ok {
			return fmt.Errorf("port %s@%s: %w", id, name, ErrNotFound)
		}
		if err := s.checkPortUnused(id, name, path); err != nil {
			return err
		}
		delete(remaining, name)
	}
	for _, p := range upd.AddPorts {
		if err := p.validate(); err != nil {
			return fmt.Errorf("node %s: %w", cur.Name(), err)
		}
		if _, dup := remaining[p.Name]; dup {
			return fmt.Errorf("node %s: port %q: %w", cur.Name(), p.Name, ErrExists)
		}
		remaining[p.Name] = struct{}{}
	}

	node, err := s.materialize(path)
	if err != nil {
		return err
	}
	if upd.Name != nil {
		node.name = *upd.Name
	}
	if len(upd.RemovePorts) > 0 {
		node.ports = slices.DeleteFunc(node.ports, func(p Port) bool {
			return slices.Contains(upd.RemovePorts, p.Name)
		})
	}
	node.ports = append(node.ports, upd.AddPorts...)
	s.g.memo.reset()
	return nil
}

// checkPortUnused fails when any edge in the node's own scope or its
// parent's scope still references the port.
func (s *editSession) checkPortUnused(id, port string, path CompoundPath) error {
	uses := func(e Edge) bool {
		return e.From.Node == id && e.From.Port == port || e.To.Node == id && e.To.Port == port
	}
	scopes := []CompoundPath{path}
	if !path.IsRoot() {
		scopes = append(scopes, path.Parent())
	}
	for _, sp := range scopes {
		n, err := s.g.NodeByPath(sp)
		if err != nil {
			return err
		}
		for _, e := range n.edges {
			if uses(e) {
				return fmt.Errorf("port %s@%s still connected by %s: %w", id, port, e, ErrInvalidStructure)
			}
		}
	}
	return nil
}

func (s *editSession) moveNode(id string, parent CompoundPath) error {
	path, err := s.g.PathOf(id)
	if err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("cannot move the root compound: %w", ErrInvalidStructure)
	}
	if path.IsPrefixOf(parent) {
		return fmt.Errorf("cannot move %s into its own subtree: %w", id, ErrInvalidStructure)
	}
	if _, err := s.g.compoundAt(parent); err != nil {
		return err
	}
	oldParent := path.Parent()
	if oldParent.Equal(parent) {
		return nil
	}
	oldScope0, err := s.g.NodeByPath(oldParent)
	if err != nil {
		return err
	}
	for _, e := range oldScope0.edges {
		if e.From.Node == id || e.To.Node == id {
			return fmt.Errorf("node %s still connected by %s: %w", id, e, ErrInvalidStructure)
		}
	}
	moved0, _ := oldScope0.Child(id)
	dest0, err := s.g.NodeByPath(parent)
	if err != nil {
		return err
	}
	if sib := dest0.childByName(moved0.Name()); sib != nil {
		return fmt.Errorf("sibling named %q: %w", moved0.Name(), ErrExists)
	}

	oldScope, err := s.materializeCompound(oldParent)
	if err != nil {
		return err
	}
	dest, err := s.materializeCompound(parent)
	if err != nil {
		return err
	}
	idx := oldScope.childIndex(id)
	moved := oldScope.children[idx]
	oldScope.children = slices.Delete(oldScope.children, idx, idx+1)
	if s.persistent() {
		// Identity-preserving new objects downstream: the subtree keeps its
		// identifiers but gets fresh containers so the old graph's paths
		// stay valid.
		moved = moved.cloneDeep()
	}
	moved.setPaths(parent)
	dest.children = append(dest.children, moved)
	s.g.memo.reset()
	return nil
}

// =============================================================================
// Edge edits
// =============================================================================

// resolveEdge determines the owning compound under the edge-locality rule
// and normalizes the edge: the layer defaults to the dataflow layer, and
// empty dataflow ports resolve to the single applicable port of their node.
func (s *editSession) resolveEdge(e Edge) (CompoundPath, Edge, error) {
	if e.Layer == "" {
		e.Layer = LayerDataflow
	}
	pa, err := s.g.PathOf(e.From.Node)
	if err != nil {
		return nil, e, fmt.Errorf("edge source: %w", err)
	}
	pb, err := s.g.PathOf(e.To.Node)
	if err != nil {
		return nil, e, fmt.Errorf("edge target: %w", err)
	}

	var owner CompoundPath
	switch {
	case e.From.Node == e.To.Node:
		// Boundary pass-through of a compound: input straight to output.
		owner = pa
	case pa.IsPrefixOf(pb) && len(pb) == len(pa)+1:
		owner = pa // source is the owning compound's boundary
	case pb.IsPrefixOf(pa) && len(pa) == len(pb)+1:
		owner = pb // target is the owning compound's boundary
	default:
		cp := CommonPrefix(pa, pb)
		if len(pa) != len(cp)+1 || len(pb) != len(cp)+1 {
			return nil, e, fmt.Errorf("edge %s spans more than one nesting level: %w", e, ErrInvalidStructure)
		}
		owner = cp
	}
	ownerNode, err := s.g.compoundAt(owner)
	if err != nil {
		return nil, e, err
	}

	from, err := s.resolveEnd(ownerNode, e.From, e.Layer, false)
	if err != nil {
		return nil, e, err
	}
	to, err := s.resolveEnd(ownerNode, e.To, e.Layer, true)
	if err != nil {
		return nil, e, err
	}
	e.From, e.To = from, to
	return owner, e, nil
}

// resolveEnd validates one endpoint within the owning scope. On the
// dataflow layer an endpoint must be an output of a child (or an input of
// the owning boundary) when feeding, and the mirror image when consuming;
// other layers only require named ports to exist.
func (s *editSession) resolveEnd(owner *Node, end EdgeEnd, layer string, consuming bool) (EdgeEnd, error) {
	n, err := s.g.NodeByID(end.Node)
	if err != nil {
		return end, err
	}
	if layer != LayerDataflow {
		if end.Port != "" {
			if _, ok := n.Port(end.Port); !ok {
				return end, fmt.Errorf("port %s: %w", end, ErrNotFound)
			}
		}
		return end, nil
	}

	want := Out
	if consuming {
		want = In
	}
	if end.Node == owner.id {
		// Boundary ports play the opposite role on the inside.
		if want == Out {
			want = In
		} else {
			want = Out
		}
	}
	if end.Port == "" {
		cands := n.portsOfKind(want)
		switch len(cands) {
		case 1:
			end.Port = cands[0].Name
		case 0:
			return end, fmt.Errorf("node %s has no default %s port: %w", n.Name(), want, ErrNotFound)
		default:
			return end, fmt.Errorf("node %s has %d candidate %s ports: %w", n.Name(), len(cands), want, ErrInvalidStructure)
		}
		return end, nil
	}
	p, ok := n.Port(end.Port)
	if !ok {
		return end, fmt.Errorf("port %s: %w", end, ErrNotFound)
	}
	if p.Kind != want {
		return end, fmt.Errorf("port %s is %s, need %s: %w", end, p.Kind, want, ErrInvalidStructure)
	}
	return end, nil
}

func (s *editSession) insertEdge(e Edge) error {
	owner, norm, err := s.resolveEdge(e)
	if err != nil {
		return err
	}
	ownerNode, err := s.g.NodeByPath(owner)
	if err != nil {
		return err
	}
	for _, e2 := range ownerNode.edges {
		if e2 == norm {
			return fmt.Errorf("edge %s: %w", norm, ErrExists)
		}
		if norm.Layer == LayerDataflow && e2.Layer == LayerDataflow && e2.To == norm.To {
			return fmt.Errorf("input %s already has a dataflow predecessor: %w", norm.To, ErrExists)
		}
	}
	scope, err := s.materializeCompound(owner)
	if err != nil {
		return err
	}
	scope.edges = append(scope.edges, norm)
	s.invalidateEdge(norm)
	return nil
}

func (s *editSession) removeEdge(e Edge) error {
	owner, norm, err := s.resolveEdge(e)
	if err != nil {
		return err
	}
	scope, err := s.materializeCompound(owner)
	if err != nil {
		return err
	}
	idx := slices.Index(scope.edges, norm)
	if idx < 0 {
		return fmt.Errorf("edge %s: %w", norm, ErrNotFound)
	}
	scope.edges = slices.Delete(scope.edges, idx, idx+1)
	s.invalidateEdge(norm)
	return nil
}

func (s *editSession) updateEdge(e Edge, newLayer string) error {
	if newLayer == "" {
		return fmt.Errorf("update-edge without layer: %w", ErrMalformedChangeSet)
	}
	owner, norm, err := s.resolveEdge(e)
	if err != nil {
		return err
	}
	// The retagged edge must be valid on its new layer too.
	_, renorm, err := s.resolveEdge(Edge{From: norm.From, To: norm.To, Layer: newLayer})
	if err != nil {
		return err
	}
	scope, err := s.materializeCompound(owner)
	if err != nil {
		return err
	}
	idx := slices.Index(scope.edges, norm)
	if idx < 0 {
		return fmt.Errorf("edge %s: %w", norm, ErrNotFound)
	}
	scope.edges[idx] = renorm
	s.invalidateEdge(norm)
	return nil
}

func (s *editSession) invalidateEdge(e Edge) {
	s.g.memo.invalidateOp(memoEdgesDeep)
	s.g.memo.invalidateConnections(e.From.Node)
	s.g.memo.invalidateConnections(e.To.Node)
}

// =============================================================================
// Component and metadata edits
// =============================================================================

func (s *editSession) insertComponent(c Component) error {
	if c.ID == "" {
		return fmt.Errorf("component without identifier: %w", ErrMalformedChangeSet)
	}
	if _, ok := s.g.components[c.ID]; ok {
		return fmt.Errorf("component %s: %w", c.ID, ErrExists)
	}
	if c.Definition != nil {
		if err := c.Definition.validateShape(); err != nil {
			return err
		}
		// The registry owns its definition subtree; paths are rooted at the
		// definition itself so the stored form is position-independent.
		c.Definition = c.Definition.cloneDeep()
		c.Definition.setPaths(nil)
	}
	s.g.components[c.ID] = c
	return nil
}

func (s *editSession) removeComponent(id string) error {
	if _, ok := s.g.components[id]; !ok {
		return fmt.Errorf("component %s: %w", id, ErrNotFound)
	}
	delete(s.g.components, id)
	return nil
}

func (s *editSession) updateComponent(c Component) error {
	if _, ok := s.g.components[c.ID]; !ok {
		return fmt.Errorf("component %s: %w", c.ID, ErrNotFound)
	}
	if c.Definition != nil {
		if err := c.Definition.validateShape(); err != nil {
			return err
		}
		c.Definition = c.Definition.cloneDeep()
		c.Definition.setPaths(nil)
	}
	s.g.components[c.ID] = c
	return nil
}
