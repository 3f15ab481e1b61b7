package portgraph

import "errors"

var (
	// ErrNotFound is returned when a location (identifier, path, name chain,
	// or port reference) does not resolve to an existing node or port.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when an insertion collides with an existing node
	// identifier, sibling name, component identifier, or duplicate edge.
	ErrExists = errors.New("already exists")

	// ErrInvalidStructure is returned when a node or edge fails shape
	// validation: malformed ports, a port carried by a reference node, an
	// edge spanning more than one nesting level, or an ambiguous default port.
	ErrInvalidStructure = errors.New("invalid structure")

	// ErrCycle is returned by [github.com/graphir/graphir/pkg/portgraph/algo.TopologicalSort]
	// when no zero-in-degree node remains while unsorted nodes remain.
	ErrCycle = errors.New("cycle detected")

	// ErrNotCompoundable is returned by the rewrite engine when grouping a
	// node subset would force a cycle through the new compound boundary.
	ErrNotCompoundable = errors.New("not compoundable")

	// ErrBlocked is returned by the rewrite engine when a move precondition
	// is violated, e.g. excluding a node that still has an internal
	// predecessor, or including a predecessor with external successors.
	ErrBlocked = errors.New("blocked by conflicting connection")

	// ErrMalformedChangeSet is returned by [Apply] when a change-set value
	// does not describe a recognized edit.
	ErrMalformedChangeSet = errors.New("malformed change-set")
)
