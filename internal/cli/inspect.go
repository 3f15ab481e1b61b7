package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphir/graphir/pkg/graphdoc"
	"github.com/graphir/graphir/pkg/locator"
	"github.com/graphir/graphir/pkg/portgraph"
	"github.com/graphir/graphir/pkg/render"
)

// newInspectCmd creates the inspect command: a text outline of the whole
// graph, or the details of one selected node.
func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [file] [selector]",
		Short: "Print a document's structure, or one node's details",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector := ""
			if len(args) == 2 {
				selector = args[1]
			}
			return runInspect(cmd.Context(), args[0], selector)
		},
	}
	return cmd
}

func runInspect(ctx context.Context, input, selector string) error {
	logger := loggerFromContext(ctx)

	g, err := graphdoc.ReadFile(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %s: %d nodes", input, len(g.NodesDeep()))

	if selector == "" {
		fmt.Println(StyleTitle.Render(input))
		render.Dump(os.Stdout, g, false)
		return nil
	}

	ref, err := locator.Match(g, selector)
	if err != nil {
		return err
	}
	return inspectRef(g, ref)
}

func inspectRef(g *portgraph.Graph, ref portgraph.Ref) error {
	n, err := g.NodeByID(ref.Node)
	if err != nil {
		return err
	}

	printKeyValue("id", n.ID())
	printKeyValue("name", n.Name())
	printKeyValue("kind", n.Kind().String())
	printKeyValue("path", n.Path().String())
	if n.IsReference() {
		printKeyValue("component", n.Component())
	}
	for _, p := range n.Ports() {
		printDetail("port %s %s (%v)", p.Kind, p.Name, p.Type)
	}

	preds, err := g.Predecessors(ref, portgraph.ConnectOptions{})
	if err != nil {
		return err
	}
	for _, p := range preds {
		printDetail("%s %s", iconArrow, p)
	}
	succs, err := g.Successors(ref, portgraph.ConnectOptions{})
	if err != nil {
		return err
	}
	for _, s := range succs {
		printDetail("%s %s", s, iconArrow)
	}
	return nil
}
