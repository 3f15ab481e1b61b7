package portgraph

import "slices"

// csOp enumerates the elementary edits a change-set can describe. The zero
// value is deliberately invalid so a zero ChangeSet fails with
// [ErrMalformedChangeSet].
type csOp int

const (
	opInvalid csOp = iota
	opInsertNode
	opRemoveNode
	opUpdateNode
	opMoveNode
	opInsertEdge
	opRemoveEdge
	opUpdateEdge
	opInsertComponent
	opRemoveComponent
	opUpdateComponent
	opSetMeta
	opMergeMeta
	opRemoveMeta
)

// NodeUpdate describes a merge-update of a node: only the set fields are
// applied. The identifier of a node can never be updated.
type NodeUpdate struct {
	Name        *string  // rename; sibling uniqueness is re-checked
	AddPorts    []Port   // appended to the port list
	RemovePorts []string // removed by name; fails if any edge still uses one
}

// ChangeSet is a pure value describing exactly one elementary edit to a
// graph. Constructing a change-set has no effect; pass it to [Apply] to
// execute it. The zero value is not a valid change-set.
type ChangeSet struct {
	op        csOp
	path      CompoundPath
	nodeID    string
	node      *Node
	update    NodeUpdate
	edge      Edge
	newLayer  string
	component Component
	metaKey   string
	metaValue any
	metaMerge map[string]any
}

// InsertNode describes inserting node under the compound at parent.
func InsertNode(parent CompoundPath, node *Node) ChangeSet {
	return ChangeSet{op: opInsertNode, path: slices.Clone(parent), node: node}
}

// RemoveNode describes removing the node with the given identifier together
// with every edge incident on it.
func RemoveNode(id string) ChangeSet {
	return ChangeSet{op: opRemoveNode, nodeID: id}
}

// UpdateNode describes a merge-update of the node with the given identifier.
func UpdateNode(id string, update NodeUpdate) ChangeSet {
	return ChangeSet{op: opUpdateNode, nodeID: id, update: update}
}

// MoveNode describes re-parenting a node (and its whole subtree) under the
// compound at parent. The node must have no incident edges in its current
// scope; callers rewire connections before and after the move.
func MoveNode(id string, parent CompoundPath) ChangeSet {
	return ChangeSet{op: opMoveNode, nodeID: id, path: slices.Clone(parent)}
}

// InsertEdge describes adding an edge. The edge is normalized on commit:
// an empty layer becomes [LayerDataflow], and empty dataflow ports resolve
// to the endpoint node's single applicable default port.
func InsertEdge(e Edge) ChangeSet {
	return ChangeSet{op: opInsertEdge, edge: e}
}

// RemoveEdge describes removing the edge matching e after normalization.
func RemoveEdge(e Edge) ChangeSet {
	return ChangeSet{op: opRemoveEdge, edge: e}
}

// UpdateEdge describes retagging the edge matching e with a new layer.
func UpdateEdge(e Edge, newLayer string) ChangeSet {
	return ChangeSet{op: opUpdateEdge, edge: e, newLayer: newLayer}
}

// InsertComponent describes registering a component definition.
func InsertComponent(c Component) ChangeSet {
	return ChangeSet{op: opInsertComponent, component: c}
}

// RemoveComponent describes dropping the component with the given identifier.
func RemoveComponent(id string) ChangeSet {
	return ChangeSet{op: opRemoveComponent, component: Component{ID: id}}
}

// UpdateComponent describes replacing the registered component with the
// same identifier.
func UpdateComponent(c Component) ChangeSet {
	return ChangeSet{op: opUpdateComponent, component: c}
}

// SetMeta describes setting one graph metadata key.
func SetMeta(key string, value any) ChangeSet {
	return ChangeSet{op: opSetMeta, metaKey: key, metaValue: value}
}

// MergeMeta describes merging a map into the graph metadata, overwriting
// existing keys.
func MergeMeta(values map[string]any) ChangeSet {
	return ChangeSet{op: opMergeMeta, metaMerge: values}
}

// RemoveMeta describes deleting one graph metadata key. Removing an absent
// key is not an error.
func RemoveMeta(key string) ChangeSet {
	return ChangeSet{op: opRemoveMeta, metaKey: key}
}
