package graphdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/graphir/graphir/pkg/portgraph"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// Marshal converts a graph to indented JSON bytes.
func Marshal(g *portgraph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes a graph as JSON to an io.Writer.
func Write(g *portgraph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a graph to a JSON file created with 0644 permissions.
func WriteFile(g *portgraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// Read decodes a JSON document from an io.Reader and builds the graph,
// validating structure, port resolution, and identifier uniqueness along
// the way.
func Read(r io.Reader) (*portgraph.Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToGraph(doc)
}

// ReadFile reads a JSON file and returns the decoded graph.
func ReadFile(path string) (*portgraph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// =============================================================================
// Graph <-> Document
// =============================================================================

// FromGraph converts a graph into its document form. Child and edge order
// is preserved; memo state and the mode flag are not part of the document.
func FromGraph(g *portgraph.Graph) Document {
	root := g.Root()
	doc := Document{
		Nodes:           nodeDocs(root.Children()),
		Edges:           edgeDocs(root.Edges()),
		MetaInformation: g.Meta(),
	}
	for _, c := range g.Components() {
		cd := Component{ID: c.ID, Version: c.Version}
		if c.Definition != nil {
			d := nodeDoc(c.Definition)
			cd.Definition = &d
		}
		doc.Components = append(doc.Components, cd)
	}
	if len(doc.MetaInformation) == 0 {
		doc.MetaInformation = nil
	}
	return doc
}

func nodeDocs(nodes []*portgraph.Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeDoc(n))
	}
	return out
}

func nodeDoc(n *portgraph.Node) Node {
	d := Node{
		ID:        n.ID(),
		Kind:      kindString(n.Kind()),
		Component: n.Component(),
	}
	if n.HasName() {
		d.Name = n.Name()
	}
	for _, p := range n.Ports() {
		d.Ports = append(d.Ports, Port{Name: p.Name, Kind: string(p.Kind), Type: p.Type})
	}
	if n.IsCompound() {
		d.Nodes = nodeDocs(n.Children())
		d.Edges = edgeDocs(n.Edges())
	}
	return d
}

func edgeDocs(edges []portgraph.Edge) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{
			From:  End{Node: e.From.Node, Port: e.From.Port},
			To:    End{Node: e.To.Node, Port: e.To.Port},
			Layer: e.Layer,
		})
	}
	return out
}

// ToGraph builds a graph from its document form. Construction runs in the
// in-place arena mode and the result is frozen before being returned, so
// loading large documents costs no per-edit rebuilds.
//
// Loading canonicalizes edges: an omitted layer becomes "dataflow" and an
// omitted dataflow port resolves to the endpoint's single applicable port.
// The document [FromGraph] produces is therefore fully explicit, and
// further round trips reproduce it unchanged.
func ToGraph(doc Document) (*portgraph.Graph, error) {
	g := portgraph.NewBuilder(doc.MetaInformation)

	var css []portgraph.ChangeSet
	for _, c := range doc.Components {
		comp := portgraph.Component{ID: c.ID, Version: c.Version}
		if c.Definition != nil {
			def, err := docToNode(*c.Definition)
			if err != nil {
				return nil, err
			}
			comp.Definition = def
		}
		css = append(css, portgraph.InsertComponent(comp))
	}
	if err := appendScope(&css, nil, doc.Nodes, doc.Edges); err != nil {
		return nil, err
	}

	g, err := portgraph.ApplyAll(g, css...)
	if err != nil {
		return nil, err
	}
	return g.Freeze(), nil
}

// appendScope emits the change-sets building one scope: nodes first (each
// compound recursing into its own scope), then the scope's edges.
func appendScope(css *[]portgraph.ChangeSet, path portgraph.CompoundPath, nodes []Node, edges []Edge) error {
	for _, nd := range nodes {
		n, err := docToShell(nd)
		if err != nil {
			return err
		}
		*css = append(*css, portgraph.InsertNode(path, n))
		if nd.Kind == kindCompound {
			if err := appendScope(css, path.Child(nd.ID), nd.Nodes, nd.Edges); err != nil {
				return err
			}
		}
	}
	for _, ed := range edges {
		e := portgraph.Edge{
			From:  portgraph.EdgeEnd{Node: ed.From.Node, Port: ed.From.Port},
			To:    portgraph.EdgeEnd{Node: ed.To.Node, Port: ed.To.Port},
			Layer: ed.Layer,
		}
		*css = append(*css, portgraph.InsertEdge(e))
	}
	return nil
}

// docToShell builds the node itself without children; nested scopes are
// inserted by separate change-sets so every level is validated.
func docToShell(d Node) (*portgraph.Node, error) {
	ports, err := docPorts(d.Ports)
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case kindAtomic:
		return portgraph.NewAtomic(d.Name, ports...).WithID(d.ID), nil
	case kindCompound:
		return portgraph.NewCompound(d.Name, ports...).WithID(d.ID), nil
	case kindReference:
		if len(ports) > 0 {
			return nil, fmt.Errorf("reference node %s carries ports: %w", d.ID, portgraph.ErrInvalidStructure)
		}
		return portgraph.NewReference(d.Name, d.Component).WithID(d.ID), nil
	default:
		return nil, fmt.Errorf("node %s: unknown kind %q: %w", d.ID, d.Kind, portgraph.ErrInvalidStructure)
	}
}

// docToNode builds a full standalone subtree for a component definition,
// using a scratch builder graph to assemble nested scopes.
func docToNode(d Node) (*portgraph.Node, error) {
	scratch := portgraph.NewBuilder(nil)
	var css []portgraph.ChangeSet
	if err := appendScope(&css, nil, []Node{d}, nil); err != nil {
		return nil, err
	}
	scratch, err := portgraph.ApplyAll(scratch, css...)
	if err != nil {
		return nil, err
	}
	return scratch.NodeByID(d.ID)
}

func docPorts(ports []Port) ([]portgraph.Port, error) {
	out := make([]portgraph.Port, 0, len(ports))
	for _, p := range ports {
		kind := portgraph.PortKind(p.Kind)
		if kind != portgraph.In && kind != portgraph.Out {
			return nil, fmt.Errorf("port %q: unknown kind %q: %w", p.Name, p.Kind, portgraph.ErrInvalidStructure)
		}
		out = append(out, portgraph.Port{Name: p.Name, Kind: kind, Type: p.Type})
	}
	return out, nil
}
