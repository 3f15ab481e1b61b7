// Package algo provides graph algorithms over a single compound scope of a
// port graph: topological ordering of a compound's children and lowest
// common ancestor computation over dataflow predecessors.
package algo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/graphir/graphir/pkg/portgraph"
)

// TopologicalSort orders the direct children of the compound with the given
// identifier so that every dataflow edge between two children points
// forward. Boundary edges touching the compound itself impose no ordering.
// Ties break by child-list insertion order, so the result is deterministic
// and stable across runs. Pass [portgraph.Graph.RootID] for the top level.
//
// It fails with [portgraph.ErrCycle] when the scope's dataflow edges form a
// cycle.
func TopologicalSort(g *portgraph.Graph, compoundID string) ([]*portgraph.Node, error) {
	children, err := g.Children(compoundID)
	if err != nil {
		return nil, err
	}
	edges, err := g.EdgesAt(compoundID)
	if err != nil {
		return nil, err
	}

	indeg := make(map[string]int, len(children))
	succ := map[string][]string{}
	byID := make(map[string]*portgraph.Node, len(children))
	for _, c := range children {
		indeg[c.ID()] = 0
		byID[c.ID()] = c
	}
	for _, e := range edges {
		if e.Layer != portgraph.LayerDataflow {
			continue
		}
		if e.From.Node == compoundID || e.To.Node == compoundID {
			continue
		}
		indeg[e.To.Node]++
		succ[e.From.Node] = append(succ[e.From.Node], e.To.Node)
	}

	var queue []string
	for _, c := range children {
		if indeg[c.ID()] == 0 {
			queue = append(queue, c.ID())
		}
	}
	out := make([]*portgraph.Node, 0, len(children))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, byID[id])
		for _, s := range succ[id] {
			if indeg[s]--; indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if len(out) != len(children) {
		var stuck []string
		for _, c := range children {
			if indeg[c.ID()] > 0 {
				stuck = append(stuck, c.Name())
			}
		}
		return nil, fmt.Errorf("compound %s: nodes %s: %w", compoundID, strings.Join(stuck, ", "), portgraph.ErrCycle)
	}
	return out, nil
}

// TopologicalSortDeep sorts every compound scope of the graph, mapping each
// compound identifier (the root's included) to its ordered children. The
// first cyclic scope aborts the walk.
func TopologicalSortDeep(g *portgraph.Graph) (map[string][]*portgraph.Node, error) {
	out := map[string][]*portgraph.Node{}
	scopes := []string{g.RootID()}
	for _, n := range g.NodesDeep() {
		if n.IsCompound() {
			scopes = append(scopes, n.ID())
		}
	}
	for _, id := range scopes {
		sorted, err := TopologicalSort(g, id)
		if err != nil {
			return nil, err
		}
		out[id] = sorted
	}
	return out, nil
}

// LowestCommonAncestors returns the identifiers of the dataflow ancestors
// shared by at least two of the given ports, reduced to the lowest ones: an
// ancestor that feeds another shared ancestor is subsumed by it and dropped.
// The result is sorted. Ports with disjoint histories yield an empty result.
func LowestCommonAncestors(g *portgraph.Graph, ports []portgraph.Ref) ([]string, error) {
	closures := make([]map[string]struct{}, len(ports))
	for i, ref := range ports {
		cl, err := predecessorClosure(g, ref)
		if err != nil {
			return nil, err
		}
		closures[i] = cl
	}

	counts := map[string]int{}
	for _, cl := range closures {
		for id := range cl {
			counts[id]++
		}
	}
	var common []string
	for id, c := range counts {
		if c >= 2 {
			common = append(common, id)
		}
	}

	// Drop every common ancestor that is itself upstream of another common
	// ancestor; what remains is the lowest layer.
	upstream := make(map[string]map[string]struct{}, len(common))
	for _, id := range common {
		cl, err := nodeClosure(g, id)
		if err != nil {
			return nil, err
		}
		upstream[id] = cl
	}
	var out []string
	for _, id := range common {
		subsumed := false
		for _, other := range common {
			if other == id {
				continue
			}
			if _, ok := upstream[other][id]; ok {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

// predecessorClosure collects every node reachable backwards from the given
// port along dataflow edges, staying within each node's enclosing scope.
func predecessorClosure(g *portgraph.Graph, ref portgraph.Ref) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	var visit func(r portgraph.Ref) error
	visit = func(r portgraph.Ref) error {
		preds, err := g.Predecessors(r, portgraph.ConnectOptions{})
		if err != nil {
			return err
		}
		for _, p := range preds {
			if _, seen := out[p.Node]; seen {
				continue
			}
			out[p.Node] = struct{}{}
			if err := visitInputs(g, p.Node, visit); err != nil {
				return err
			}
		}
		return nil
	}
	return out, visit(ref)
}

// nodeClosure is the predecessor closure of a whole node: the union over
// its input ports.
func nodeClosure(g *portgraph.Graph, id string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	var visit func(r portgraph.Ref) error
	visit = func(r portgraph.Ref) error {
		preds, err := g.Predecessors(r, portgraph.ConnectOptions{})
		if err != nil {
			return err
		}
		for _, p := range preds {
			if _, seen := out[p.Node]; seen {
				continue
			}
			out[p.Node] = struct{}{}
			if err := visitInputs(g, p.Node, visit); err != nil {
				return err
			}
		}
		return nil
	}
	return out, visitInputs(g, id, visit)
}

func visitInputs(g *portgraph.Graph, id string, visit func(portgraph.Ref) error) error {
	n, err := g.NodeByID(id)
	if err != nil {
		return err
	}
	for _, p := range n.InputPorts() {
		if err := visit(portgraph.Ref{Node: id, Port: p.Name}); err != nil {
			return err
		}
	}
	return nil
}
