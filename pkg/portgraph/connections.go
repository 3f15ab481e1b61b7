package portgraph

import (
	"slices"
)

// ConnectOptions tunes the connection queries. The zero value selects the
// dataflow layer only and stops at compound boundaries, which is what the
// sorting and rewrite algorithms use.
type ConnectOptions struct {
	// Layers restricts matching to the listed edge layers. Empty means the
	// dataflow layer only.
	Layers []string
	// IntoCompounds follows edges through compound boundary ports until a
	// non-compound source or sink is reached. An unconnected boundary port
	// terminates the walk and is reported itself.
	IntoCompounds bool
}

func (o ConnectOptions) matches(layer string) bool {
	if len(o.Layers) == 0 {
		return layer == LayerDataflow
	}
	return slices.Contains(o.Layers, layer)
}

func (o ConnectOptions) cacheable() bool {
	return len(o.Layers) == 0 && !o.IntoCompounds
}

// Predecessors returns the references feeding the given node, or the given
// port when ref names one. Both the scope the node lives in and, for
// compounds, its own inner scope are consulted, so an output port of a
// compound reports its internal source. Results are in edge-list order,
// deduplicated. Default-option results are memoized.
func (g *Graph) Predecessors(ref Ref, opts ConnectOptions) ([]Ref, error) {
	return g.connectionsMemo(memoPredecessors, ref, opts, true)
}

// Successors returns the references consuming the given node or port. It is
// the mirror image of [Graph.Predecessors].
func (g *Graph) Successors(ref Ref, opts ConnectOptions) ([]Ref, error) {
	return g.connectionsMemo(memoSuccessors, ref, opts, false)
}

func (g *Graph) connectionsMemo(op string, ref Ref, opts ConnectOptions, pred bool) ([]Ref, error) {
	if opts.cacheable() {
		if v, ok := g.memo.get(op, ref.String()); ok {
			return slices.Clone(v.([]Ref)), nil
		}
	}
	out, err := g.connections(ref, opts, pred, map[Ref]struct{}{})
	if err != nil {
		return nil, err
	}
	if opts.cacheable() {
		g.memo.put(op, ref.String(), slices.Clone(out))
	}
	return out, nil
}

// connections scans the two scopes an endpoint can appear in. For
// predecessors it collects the sources of edges targeting ref; for
// successors, the targets of edges originating at ref.
func (g *Graph) connections(ref Ref, opts ConnectOptions, pred bool, visited map[Ref]struct{}) ([]Ref, error) {
	n, err := g.NodeByID(ref.Node)
	if err != nil {
		return nil, err
	}
	path, err := g.PathOf(ref.Node)
	if err != nil {
		return nil, err
	}
	var scopes []*Node
	if !path.IsRoot() {
		parent, err := g.NodeByPath(path.Parent())
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, parent)
	}
	if n.IsCompound() {
		scopes = append(scopes, n)
	}

	var out []Ref
	seen := map[Ref]struct{}{}
	add := func(r Ref) {
		if _, dup := seen[r]; !dup {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	for _, scope := range scopes {
		for _, e := range scope.edges {
			if !opts.matches(e.Layer) {
				continue
			}
			hit, other := e.From, e.To
			if pred {
				hit, other = e.To, e.From
			}
			if hit.Node != ref.Node {
				continue
			}
			if ref.Port != "" && hit.Port != ref.Port {
				continue
			}
			if !opts.IntoCompounds {
				add(other.Ref())
				continue
			}
			expanded, err := g.through(other.Ref(), opts, pred, visited)
			if err != nil {
				return nil, err
			}
			for _, r := range expanded {
				add(r)
			}
		}
	}
	return out, nil
}

// through resolves a connection endpoint across compound boundaries: a
// boundary port is replaced by whatever feeds or consumes it on the other
// side of the boundary, recursively. Visited boundary ports guard against
// cycles on non-dataflow layers.
func (g *Graph) through(r Ref, opts ConnectOptions, pred bool, visited map[Ref]struct{}) ([]Ref, error) {
	if r.Port == "" {
		return []Ref{r}, nil
	}
	n, err := g.NodeByID(r.Node)
	if err != nil {
		return nil, err
	}
	if !n.IsCompound() {
		return []Ref{r}, nil
	}
	if _, ok := visited[r]; ok {
		return nil, nil
	}
	visited[r] = struct{}{}
	next, err := g.connections(r, opts, pred, visited)
	if err != nil {
		return nil, err
	}
	if len(next) == 0 {
		// Unconnected boundary; the port itself is the terminal.
		return []Ref{r}, nil
	}
	return next, nil
}
