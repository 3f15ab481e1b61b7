package portgraph

import (
	"fmt"
	"reflect"
)

// PortKind distinguishes input ports from output ports.
type PortKind string

const (
	// In marks a port that consumes a value.
	In PortKind = "input"
	// Out marks a port that produces a value.
	Out PortKind = "output"
)

// Port is a named, typed connection point on a node. Port names are unique
// within their node. The Type payload is opaque to the engine: it is carried
// along and compared structurally, never interpreted.
type Port struct {
	Name string
	Kind PortKind
	Type any
}

// TypeEqual reports whether two port type payloads are structurally equal.
// The engine never inspects types beyond this comparison.
func TypeEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func (p Port) validate() error {
	if p.Name == "" {
		return fmt.Errorf("port name must not be empty: %w", ErrInvalidStructure)
	}
	if p.Kind != In && p.Kind != Out {
		return fmt.Errorf("port %q: kind must be input or output: %w", p.Name, ErrInvalidStructure)
	}
	return nil
}

// Ref addresses a port on a node, or the node as a whole when Port is empty.
// Traversal queries return Refs, and the rewrite engine consumes them.
type Ref struct {
	Node string // node identifier
	Port string // port name, empty for the whole node
}

// String returns "node@port", or just the node identifier when no port is set.
func (r Ref) String() string {
	if r.Port == "" {
		return r.Node
	}
	return r.Node + "@" + r.Port
}
