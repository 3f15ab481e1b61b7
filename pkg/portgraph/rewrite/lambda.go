package rewrite

import (
	"github.com/graphir/graphir/pkg/portgraph"
)

// TypeFunction is the opaque port type carried by function-valued ports
// produced by the lambda-lifting protocol.
const TypeFunction = "function"

// CapturedInput describes one value the lifted sub-graph used to receive
// from its surrounding scope.
type CapturedInput struct {
	PortName string        // boundary input port on the implementation compound
	Type     any           // port type copied from the original wiring
	Source   portgraph.Ref // external source that fed it before lifting
}

// CapturedOutput describes one value the lifted sub-graph used to provide.
type CapturedOutput struct {
	PortName  string
	Type      any
	Consumers []portgraph.Ref // external inputs that consumed it before lifting
}

// LambdaContext describes a freshly lifted lambda to the caller's
// continuation: the lambda node, the implementation compound inside it, and
// the connections that were severed by the lift. The continuation decides
// how, and whether, to reconnect them.
type LambdaContext struct {
	Lambda         string // lambda node identifier; sole port is "fn"
	Implementation string // implementation compound inside the lambda
	Inputs         []CapturedInput
	Outputs        []CapturedOutput
}

// FunctionRef returns the lambda's function-valued output port.
func (c LambdaContext) FunctionRef() portgraph.Ref {
	return portgraph.Ref{Node: c.Lambda, Port: "fn"}
}

// Continuation receives the graph after the lift and the lambda context and
// returns the reconnected graph.
type Continuation func(*portgraph.Graph, LambdaContext) (*portgraph.Graph, error)

// LambdaOptions tunes ConvertToLambda. The zero value generates names and
// uses the batch grouping strategy.
type LambdaOptions struct {
	Name     string
	Strategy Strategy
}

// ConvertToLambda lifts the given sibling subset into a callable lambda
// unit: the subset is grouped into an implementation compound, the compound
// is severed from its surrounding wiring and wrapped in a lambda node
// exposing a single function-typed output, and the continuation is invoked
// with a [LambdaContext] describing the severed connections. A nil
// continuation leaves the call-site disconnected, modeling a deferred
// value.
func ConvertToLambda(g *portgraph.Graph, parent portgraph.CompoundPath, subset []string, opts LambdaOptions, cont Continuation) (*portgraph.Graph, LambdaContext, error) {
	original := g
	name := opts.Name
	if name == "" {
		name = "lambda"
	}

	g, implID, err := Compoundify(g, parent, subset, Options{Name: name + "_impl", Strategy: opts.Strategy})
	if err != nil {
		return original, LambdaContext{}, err
	}
	impl, err := g.NodeByID(implID)
	if err != nil {
		return original, LambdaContext{}, err
	}

	ctx := LambdaContext{Implementation: implID}
	for _, p := range impl.Ports() {
		ref := portgraph.Ref{Node: implID, Port: p.Name}
		switch p.Kind {
		case portgraph.In:
			preds, err := g.Predecessors(ref, portgraph.ConnectOptions{})
			if err != nil {
				return original, LambdaContext{}, err
			}
			if len(preds) == 0 {
				continue
			}
			ctx.Inputs = append(ctx.Inputs, CapturedInput{PortName: p.Name, Type: p.Type, Source: preds[0]})
		case portgraph.Out:
			succs, err := g.Successors(ref, portgraph.ConnectOptions{})
			if err != nil {
				return original, LambdaContext{}, err
			}
			ctx.Outputs = append(ctx.Outputs, CapturedOutput{PortName: p.Name, Type: p.Type, Consumers: succs})
		}
	}

	scope, err := g.NodeByPath(parent)
	if err != nil {
		return original, LambdaContext{}, err
	}
	usedNames := map[string]struct{}{}
	for _, c := range scope.Children() {
		usedNames[c.Name()] = struct{}{}
	}
	lambda := portgraph.NewCompound(freshName(name, usedNames),
		portgraph.Port{Name: "fn", Kind: portgraph.Out, Type: TypeFunction})
	ctx.Lambda = lambda.ID()

	var css []portgraph.ChangeSet
	for _, e := range scope.Edges() {
		if e.From.Node == implID || e.To.Node == implID {
			css = append(css, portgraph.RemoveEdge(e))
		}
	}
	css = append(css,
		portgraph.InsertNode(parent, lambda),
		portgraph.MoveNode(implID, parent.Child(lambda.ID())),
	)
	g, err = portgraph.ApplyAll(g, css...)
	if err != nil {
		return original, LambdaContext{}, err
	}

	if cont != nil {
		if g, err = cont(g, ctx); err != nil {
			return original, LambdaContext{}, err
		}
	}
	return g, ctx, nil
}

// CreateInputPartials chains one partial-application node per captured
// input after the lambda's function output, modeling staged currying: each
// partial consumes the running function value and one captured input and
// produces a narrower function value. It returns the reference holding the
// final function value.
func CreateInputPartials(g *portgraph.Graph, ctx LambdaContext) (*portgraph.Graph, portgraph.Ref, error) {
	original := g
	path, err := g.PathOf(ctx.Lambda)
	if err != nil {
		return original, portgraph.Ref{}, err
	}
	parent := path.Parent()
	scope, err := g.NodeByPath(parent)
	if err != nil {
		return original, portgraph.Ref{}, err
	}
	usedNames := map[string]struct{}{}
	for _, c := range scope.Children() {
		usedNames[c.Name()] = struct{}{}
	}

	cur := ctx.FunctionRef()
	var css []portgraph.ChangeSet
	for _, in := range ctx.Inputs {
		partial := portgraph.NewAtomic(freshName("partial_"+in.PortName, usedNames),
			portgraph.Port{Name: "fn", Kind: portgraph.In, Type: TypeFunction},
			portgraph.Port{Name: "value", Kind: portgraph.In, Type: in.Type},
			portgraph.Port{Name: "result", Kind: portgraph.Out, Type: TypeFunction},
		)
		css = append(css,
			portgraph.InsertNode(parent, partial),
			portgraph.InsertEdge(portgraph.NewEdge(cur, portgraph.Ref{Node: partial.ID(), Port: "fn"})),
			portgraph.InsertEdge(portgraph.NewEdge(in.Source, portgraph.Ref{Node: partial.ID(), Port: "value"})),
		)
		cur = portgraph.Ref{Node: partial.ID(), Port: "result"}
	}
	out, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return original, portgraph.Ref{}, err
	}
	return out, cur, nil
}

// ReplaceByCall wires an immediate call site for a lifted lambda: the
// captured inputs are applied through a [CreateInputPartials] currying
// chain, then a call node consumes the fully applied function value,
// exposes the captured outputs, and reconnects each original consumer.
func ReplaceByCall(g *portgraph.Graph, ctx LambdaContext) (*portgraph.Graph, error) {
	original := g
	g, fn, err := CreateInputPartials(g, ctx)
	if err != nil {
		return original, err
	}
	path, err := g.PathOf(ctx.Lambda)
	if err != nil {
		return original, err
	}
	parent := path.Parent()
	scope, err := g.NodeByPath(parent)
	if err != nil {
		return original, err
	}
	usedNames := map[string]struct{}{}
	for _, c := range scope.Children() {
		usedNames[c.Name()] = struct{}{}
	}

	usedPorts := map[string]struct{}{}
	for _, out := range ctx.Outputs {
		usedPorts[out.PortName] = struct{}{}
	}
	fnPort := freshName("fn", usedPorts)

	ports := []portgraph.Port{{Name: fnPort, Kind: portgraph.In, Type: TypeFunction}}
	for _, out := range ctx.Outputs {
		ports = append(ports, portgraph.Port{Name: out.PortName, Kind: portgraph.Out, Type: out.Type})
	}
	call := portgraph.NewAtomic(freshName("call", usedNames), ports...)

	css := []portgraph.ChangeSet{
		portgraph.InsertNode(parent, call),
		portgraph.InsertEdge(portgraph.NewEdge(fn, portgraph.Ref{Node: call.ID(), Port: fnPort})),
	}
	for _, out := range ctx.Outputs {
		for _, consumer := range out.Consumers {
			css = append(css, portgraph.InsertEdge(portgraph.NewEdge(portgraph.Ref{Node: call.ID(), Port: out.PortName}, consumer)))
		}
	}
	out, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return original, err
	}
	return out, nil
}
