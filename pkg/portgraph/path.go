package portgraph

import (
	"fmt"
	"slices"
	"strings"
)

// CompoundPath is the ordered sequence of node identifiers from the root
// compound down to a node. The root itself has the empty path. Paths are
// derived data: the engine recomputes them for the whole affected subtree
// whenever nodes move, rather than storing parent back-references.
type CompoundPath []string

// Equal reports whether two paths address the same position, which is the
// case exactly when their identifier sequences are equal.
func (p CompoundPath) Equal(other CompoundPath) bool {
	return slices.Equal(p, other)
}

// IsRoot reports whether the path addresses the root compound.
func (p CompoundPath) IsRoot() bool { return len(p) == 0 }

// Parent returns the path of the enclosing compound. The parent of the root
// path is the root path itself.
func (p CompoundPath) Parent() CompoundPath {
	if len(p) == 0 {
		return nil
	}
	return slices.Clone(p[:len(p)-1])
}

// Leaf returns the identifier the path addresses, or the empty string for
// the root path.
func (p CompoundPath) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// IsPrefixOf reports whether p is a (non-strict) prefix of other.
func (p CompoundPath) IsPrefixOf(other CompoundPath) bool {
	if len(p) > len(other) {
		return false
	}
	return slices.Equal(p, other[:len(p)])
}

// RelativeTo returns the suffix of p below base. It fails when base is not
// a prefix of p.
func (p CompoundPath) RelativeTo(base CompoundPath) (CompoundPath, error) {
	if !base.IsPrefixOf(p) {
		return nil, fmt.Errorf("path %s is not below %s: %w", p, base, ErrNotFound)
	}
	return slices.Clone(p[len(base):]), nil
}

// Child returns a new path extended by one identifier.
func (p CompoundPath) Child(id string) CompoundPath {
	out := make(CompoundPath, 0, len(p)+1)
	out = append(out, p...)
	return append(out, id)
}

// CommonPrefix returns the longest shared prefix of two paths.
func CommonPrefix(a, b CompoundPath) CompoundPath {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return slices.Clone(a[:i])
}

// String renders the path as "/id1/id2". The root path renders as "/".
func (p CompoundPath) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}
