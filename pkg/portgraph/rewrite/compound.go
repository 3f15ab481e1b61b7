// Package rewrite implements structural refactoring of port graphs on top
// of the change-set and query primitives: grouping sibling nodes into
// compounds, pulling nodes across compound boundaries in both directions,
// flattening compounds, and lifting sub-graphs into callable lambda units.
package rewrite

import (
	"fmt"

	"github.com/graphir/graphir/pkg/portgraph"
	"github.com/graphir/graphir/pkg/portgraph/algo"
)

// Strategy selects how Compoundify materializes its plan.
type Strategy int

const (
	// StrategyBatch partitions the parent's node and edge lists by subset
	// membership up front and commits the whole regrouping as one change-set
	// batch. Preferred for large subsets.
	StrategyBatch Strategy = iota
	// StrategyIncremental moves one member at a time, rewiring as it goes.
	// Produces a graph structurally equal to the batch strategy's.
	StrategyIncremental
)

// Options tunes Compoundify. The zero value picks a generated compound name
// and the batch strategy.
type Options struct {
	Name     string
	Strategy Strategy
}

// Compoundify groups the given sibling nodes (direct children of the
// compound at parent) into one new compound node and returns the rewritten
// graph together with the new compound's identifier.
//
// Edges entering the subset are rerouted through newly created input ports
// on the compound, edges leaving it through new output ports; edges purely
// between subset members move inside unchanged. It fails with
// [portgraph.ErrNotCompoundable] when a node outside the subset lies on a
// path from the subset back into it, since grouping would then force a
// cycle through the new boundary.
func Compoundify(g *portgraph.Graph, parent portgraph.CompoundPath, subset []string, opts Options) (*portgraph.Graph, string, error) {
	p, err := planCompound(g, parent, subset, opts.Name)
	if err != nil {
		return g, "", err
	}
	var out *portgraph.Graph
	switch opts.Strategy {
	case StrategyIncremental:
		out, err = p.applyIncremental(g)
	default:
		out, err = p.applyBatch(g)
	}
	if err != nil {
		return g, "", err
	}
	return out, p.compoundID, nil
}

// inCapture is one planned input port of the new compound: a distinct
// external source and every subset input it feeds.
type inCapture struct {
	portName string
	portType any
	source   portgraph.Ref
	targets  []portgraph.Ref
}

// outCapture is one planned output port: a distinct subset output and every
// external consumer it keeps feeding.
type outCapture struct {
	portName string
	portType any
	source   portgraph.Ref
	targets  []portgraph.Ref
}

// layerCross is a non-dataflow edge crossing the new boundary. These are
// rerouted portlessly through the compound on their own layer.
type layerCross struct {
	layer   string
	inbound bool
	outer   string   // external node identifier
	members []string // subset members on the inner side
}

type compoundPlan struct {
	parent     portgraph.CompoundPath
	parentID   string
	compound   *portgraph.Node
	compoundID string
	members    []string // subset in scope topological order
	memberSet  map[string]bool
	internal   []portgraph.Edge
	removals   []portgraph.Edge // every pre-existing edge touching the subset
	inputs     []inCapture
	outputs    []outCapture
	crossings  []layerCross
}

func planCompound(g *portgraph.Graph, parent portgraph.CompoundPath, subset []string, name string) (*compoundPlan, error) {
	scope, err := g.NodeByPath(parent)
	if err != nil {
		return nil, err
	}
	if !scope.IsCompound() {
		return nil, fmt.Errorf("path %s is not a compound: %w", parent, portgraph.ErrInvalidStructure)
	}
	if len(subset) == 0 {
		return nil, fmt.Errorf("empty subset: %w", portgraph.ErrNotCompoundable)
	}
	memberSet := map[string]bool{}
	for _, id := range subset {
		if _, ok := scope.Child(id); !ok {
			return nil, fmt.Errorf("node %s is not a child of %s: %w", id, parent, portgraph.ErrNotFound)
		}
		memberSet[id] = true
	}

	sorted, err := algo.TopologicalSort(g, scope.ID())
	if err != nil {
		return nil, err
	}
	if err := checkCompoundable(g, scope, sorted, memberSet); err != nil {
		return nil, err
	}

	var members []string
	for _, n := range sorted {
		if memberSet[n.ID()] {
			members = append(members, n.ID())
		}
	}

	p := &compoundPlan{
		parent:    parent,
		parentID:  scope.ID(),
		members:   members,
		memberSet: memberSet,
	}
	if err := p.captureEdges(g, scope); err != nil {
		return nil, err
	}

	if name == "" {
		name = "compound"
	}
	usedNames := map[string]struct{}{}
	for _, c := range scope.Children() {
		usedNames[c.Name()] = struct{}{}
	}
	var ports []portgraph.Port
	for _, ic := range p.inputs {
		ports = append(ports, portgraph.Port{Name: ic.portName, Kind: portgraph.In, Type: ic.portType})
	}
	for _, oc := range p.outputs {
		ports = append(ports, portgraph.Port{Name: oc.portName, Kind: portgraph.Out, Type: oc.portType})
	}
	p.compound = portgraph.NewCompound(freshName(name, usedNames), ports...)
	p.compoundID = p.compound.ID()
	return p, nil
}

// checkCompoundable rejects subsets whose grouping would create a cycle: a
// non-member between the first and last member in topological order that is
// both downstream and upstream of the subset.
func checkCompoundable(g *portgraph.Graph, scope *portgraph.Node, sorted []*portgraph.Node, memberSet map[string]bool) error {
	pos := make(map[string]int, len(sorted))
	for i, n := range sorted {
		pos[n.ID()] = i
	}
	first, last := len(sorted), -1
	for id := range memberSet {
		if pos[id] < first {
			first = pos[id]
		}
		if pos[id] > last {
			last = pos[id]
		}
	}

	succ := map[string][]string{}
	pred := map[string][]string{}
	for _, e := range scope.Edges() {
		if e.Layer != portgraph.LayerDataflow {
			continue
		}
		if e.From.Node == scope.ID() || e.To.Node == scope.ID() {
			continue
		}
		succ[e.From.Node] = append(succ[e.From.Node], e.To.Node)
		pred[e.To.Node] = append(pred[e.To.Node], e.From.Node)
	}
	if first+1 > last {
		return nil
	}
	downstream := reach(memberSet, succ)
	upstream := reach(memberSet, pred)

	for _, n := range sorted[first+1 : last] {
		id := n.ID()
		if memberSet[id] {
			continue
		}
		if downstream[id] && upstream[id] {
			return fmt.Errorf("node %s would sit on a cycle through the new boundary: %w", n.Name(), portgraph.ErrNotCompoundable)
		}
	}
	return nil
}

func reach(seeds map[string]bool, adj map[string][]string) map[string]bool {
	out := map[string]bool{}
	var frontier []string
	for id := range seeds {
		frontier = append(frontier, id)
	}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, next := range adj[id] {
			if !out[next] {
				out[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return out
}

// captureEdges partitions the scope's edges by subset membership into
// internal edges, boundary captures, and non-dataflow crossings.
func (p *compoundPlan) captureEdges(g *portgraph.Graph, scope *portgraph.Node) error {
	usedPorts := map[string]struct{}{}
	for _, e := range scope.Edges() {
		fromIn, toIn := p.memberSet[e.From.Node], p.memberSet[e.To.Node]
		switch {
		case fromIn && toIn:
			p.removals = append(p.removals, e)
			p.internal = append(p.internal, e)
		case !fromIn && toIn:
			p.removals = append(p.removals, e)
			if e.Layer != portgraph.LayerDataflow {
				p.addCrossing(e.Layer, true, e.From.Node, e.To.Node)
				continue
			}
			if err := p.captureInput(g, e, usedPorts); err != nil {
				return err
			}
		case fromIn && !toIn:
			p.removals = append(p.removals, e)
			if e.Layer != portgraph.LayerDataflow {
				p.addCrossing(e.Layer, false, e.To.Node, e.From.Node)
				continue
			}
			if err := p.captureOutput(g, e, usedPorts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *compoundPlan) captureInput(g *portgraph.Graph, e portgraph.Edge, used map[string]struct{}) error {
	src := e.From.Ref()
	for i := range p.inputs {
		if p.inputs[i].source == src {
			p.inputs[i].targets = append(p.inputs[i].targets, e.To.Ref())
			return nil
		}
	}
	port, err := g.Port(e.To.Ref())
	if err != nil {
		return err
	}
	name, err := p.boundaryPortName(g, src, used)
	if err != nil {
		return err
	}
	p.inputs = append(p.inputs, inCapture{
		portName: name,
		portType: port.Type,
		source:   src,
		targets:  []portgraph.Ref{e.To.Ref()},
	})
	return nil
}

func (p *compoundPlan) captureOutput(g *portgraph.Graph, e portgraph.Edge, used map[string]struct{}) error {
	src := e.From.Ref()
	for i := range p.outputs {
		if p.outputs[i].source == src {
			p.outputs[i].targets = append(p.outputs[i].targets, e.To.Ref())
			return nil
		}
	}
	port, err := g.Port(src)
	if err != nil {
		return err
	}
	name, err := p.boundaryPortName(g, src, used)
	if err != nil {
		return err
	}
	p.outputs = append(p.outputs, outCapture{
		portName: name,
		portType: port.Type,
		source:   src,
		targets:  []portgraph.Ref{e.To.Ref()},
	})
	return nil
}

// boundaryPortName derives a port name from the node/port pair at the far
// side of the captured edge, suffixing on collision.
func (p *compoundPlan) boundaryPortName(g *portgraph.Graph, ref portgraph.Ref, used map[string]struct{}) (string, error) {
	if ref.Node == p.parentID {
		return freshName(ref.Port, used), nil
	}
	n, err := g.NodeByID(ref.Node)
	if err != nil {
		return "", err
	}
	return freshName(n.Name()+"_"+ref.Port, used), nil
}

func (p *compoundPlan) addCrossing(layer string, inbound bool, outer, member string) {
	for i := range p.crossings {
		c := &p.crossings[i]
		if c.layer == layer && c.inbound == inbound && c.outer == outer {
			c.members = append(c.members, member)
			return
		}
	}
	p.crossings = append(p.crossings, layerCross{layer: layer, inbound: inbound, outer: outer, members: []string{member}})
}

func (p *compoundPlan) compoundPath() portgraph.CompoundPath {
	return p.parent.Child(p.compoundID)
}

// applyBatch commits the whole plan as one ordered change-set batch.
func (p *compoundPlan) applyBatch(g *portgraph.Graph) (*portgraph.Graph, error) {
	var css []portgraph.ChangeSet
	for _, e := range p.removals {
		css = append(css, portgraph.RemoveEdge(e))
	}
	css = append(css, portgraph.InsertNode(p.parent, p.compound))
	inside := p.compoundPath()
	for _, id := range p.members {
		css = append(css, portgraph.MoveNode(id, inside))
	}
	for _, e := range p.internal {
		css = append(css, portgraph.InsertEdge(e))
	}
	css = append(css, p.boundaryEdges(nil)...)
	return portgraph.ApplyAll(g, css...)
}

// applyIncremental moves one member at a time: each step removes the edges
// the member still has in the parent scope, moves it, and re-adds what can
// already be wired. Internal edges to not-yet-moved members are deferred.
func (p *compoundPlan) applyIncremental(g *portgraph.Graph) (*portgraph.Graph, error) {
	g, err := portgraph.Apply(g, portgraph.InsertNode(p.parent, p.compound))
	if err != nil {
		return g, err
	}
	inside := p.compoundPath()
	removed := map[portgraph.Edge]bool{}
	moved := map[string]bool{}
	for _, id := range p.members {
		var css []portgraph.ChangeSet
		for _, e := range p.removals {
			if removed[e] || e.From.Node != id && e.To.Node != id {
				continue
			}
			removed[e] = true
			css = append(css, portgraph.RemoveEdge(e))
		}
		css = append(css, portgraph.MoveNode(id, inside))
		moved[id] = true
		for _, e := range p.internal {
			if moved[e.From.Node] && moved[e.To.Node] && (e.From.Node == id || e.To.Node == id) {
				css = append(css, portgraph.InsertEdge(e))
			}
		}
		if g, err = portgraph.ApplyAll(g, css...); err != nil {
			return g, err
		}
	}
	return portgraph.ApplyAll(g, p.boundaryEdges(nil)...)
}

// boundaryEdges emits the outer and inner halves of every captured
// connection plus the rerouted non-dataflow crossings.
func (p *compoundPlan) boundaryEdges(css []portgraph.ChangeSet) []portgraph.ChangeSet {
	for _, ic := range p.inputs {
		boundary := portgraph.Ref{Node: p.compoundID, Port: ic.portName}
		css = append(css, portgraph.InsertEdge(portgraph.NewEdge(ic.source, boundary)))
		for _, t := range ic.targets {
			css = append(css, portgraph.InsertEdge(portgraph.NewEdge(boundary, t)))
		}
	}
	for _, oc := range p.outputs {
		boundary := portgraph.Ref{Node: p.compoundID, Port: oc.portName}
		css = append(css, portgraph.InsertEdge(portgraph.NewEdge(oc.source, boundary)))
		for _, t := range oc.targets {
			css = append(css, portgraph.InsertEdge(portgraph.NewEdge(boundary, t)))
		}
	}
	for _, c := range p.crossings {
		outerEnd := portgraph.EdgeEnd{Node: c.outer}
		boundaryEnd := portgraph.EdgeEnd{Node: p.compoundID}
		if c.inbound {
			css = append(css, portgraph.InsertEdge(portgraph.Edge{From: outerEnd, To: boundaryEnd, Layer: c.layer}))
			for _, m := range c.members {
				css = append(css, portgraph.InsertEdge(portgraph.Edge{From: boundaryEnd, To: portgraph.EdgeEnd{Node: m}, Layer: c.layer}))
			}
		} else {
			css = append(css, portgraph.InsertEdge(portgraph.Edge{From: boundaryEnd, To: outerEnd, Layer: c.layer}))
			for _, m := range c.members {
				css = append(css, portgraph.InsertEdge(portgraph.Edge{From: portgraph.EdgeEnd{Node: m}, To: boundaryEnd, Layer: c.layer}))
			}
		}
	}
	return css
}

// freshName returns base, or base with a numeric suffix when taken, and
// records the result.
func freshName(base string, used map[string]struct{}) string {
	name := base
	for i := 2; ; i++ {
		if _, ok := used[name]; !ok {
			used[name] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}
