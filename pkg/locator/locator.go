// Package locator resolves compact, human-readable selectors to graph
// locations. A selector is either an identifier lookup ("#id"), a chain of
// sibling names descending from the root ("pipeline/stage2"), or an
// arbitrary predicate over nodes. Every form resolves to zero or one
// location; a predicate matching several nodes is an error, not a pick.
//
// An optional "@port" suffix narrows a node match to one of its ports:
//
//	#f3a9c	      node by identifier
//	main/loop@out  node by name chain, then the port named "out"
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphir/graphir/pkg/portgraph"
)

// ErrAmbiguous is returned when a selector matches more than one location.
var ErrAmbiguous = errors.New("selector is ambiguous")

// ErrInvalidSelector is returned when a selector string cannot be parsed.
var ErrInvalidSelector = errors.New("invalid selector")

// Selector resolves to at most one location in a graph.
type Selector interface {
	// Resolve returns the matching location, [portgraph.ErrNotFound] when
	// nothing matches, or [ErrAmbiguous] when the match is not unique.
	Resolve(g *portgraph.Graph) (portgraph.Ref, error)
}

// Match parses and resolves a selector string in one step.
func Match(g *portgraph.Graph, selector string) (portgraph.Ref, error) {
	sel, err := Parse(selector)
	if err != nil {
		return portgraph.Ref{}, err
	}
	return sel.Resolve(g)
}

// Parse turns a selector string into a reusable [Selector].
func Parse(selector string) (Selector, error) {
	node := selector
	port := ""
	if i := strings.LastIndex(selector, "@"); i >= 0 {
		node, port = selector[:i], selector[i+1:]
		if port == "" {
			return nil, fmt.Errorf("%q: empty port suffix: %w", selector, ErrInvalidSelector)
		}
	}
	if node == "" {
		return nil, fmt.Errorf("%q: empty node part: %w", selector, ErrInvalidSelector)
	}

	var sel Selector
	switch {
	case strings.HasPrefix(node, "#"):
		id := node[1:]
		if id == "" || strings.ContainsRune(id, '/') {
			return nil, fmt.Errorf("%q: malformed identifier: %w", selector, ErrInvalidSelector)
		}
		sel = byID{id}
	default:
		names := strings.Split(node, "/")
		for _, n := range names {
			if n == "" {
				return nil, fmt.Errorf("%q: empty name segment: %w", selector, ErrInvalidSelector)
			}
		}
		sel = byName{names}
	}
	if port != "" {
		sel = withPort{sel, port}
	}
	return sel, nil
}

// Pred selects the single node satisfying fn anywhere in the tree.
func Pred(fn func(*portgraph.Node) bool) Selector { return byPred{fn} }

type byID struct{ id string }

func (s byID) Resolve(g *portgraph.Graph) (portgraph.Ref, error) {
	if _, err := g.NodeByID(s.id); err != nil {
		return portgraph.Ref{}, err
	}
	return portgraph.Ref{Node: s.id}, nil
}

type byName struct{ names []string }

func (s byName) Resolve(g *portgraph.Graph) (portgraph.Ref, error) {
	n, err := g.NodeByName(s.names...)
	if err != nil {
		return portgraph.Ref{}, err
	}
	return portgraph.Ref{Node: n.ID()}, nil
}

type byPred struct{ fn func(*portgraph.Node) bool }

func (s byPred) Resolve(g *portgraph.Graph) (portgraph.Ref, error) {
	var found *portgraph.Node
	for _, n := range g.NodesDeep() {
		if !s.fn(n) {
			continue
		}
		if found != nil {
			return portgraph.Ref{}, fmt.Errorf("predicate matches %s and %s: %w",
				found.Name(), n.Name(), ErrAmbiguous)
		}
		found = n
	}
	if found == nil {
		return portgraph.Ref{}, fmt.Errorf("predicate matches nothing: %w", portgraph.ErrNotFound)
	}
	return portgraph.Ref{Node: found.ID()}, nil
}

type withPort struct {
	inner Selector
	port  string
}

func (s withPort) Resolve(g *portgraph.Graph) (portgraph.Ref, error) {
	ref, err := s.inner.Resolve(g)
	if err != nil {
		return portgraph.Ref{}, err
	}
	ref.Port = s.port
	if _, err := g.Port(ref); err != nil {
		return portgraph.Ref{}, err
	}
	return ref, nil
}
