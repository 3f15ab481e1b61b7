package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphir/graphir/pkg/graphdoc"
	"github.com/graphir/graphir/pkg/locator"
	"github.com/graphir/graphir/pkg/portgraph"
	"github.com/graphir/graphir/pkg/portgraph/algo"
)

// newSortCmd creates the sort command: the topological evaluation order of
// one compound's children, or of every scope with --deep.
func newSortCmd() *cobra.Command {
	var (
		scope string
		deep  bool
	)

	cmd := &cobra.Command{
		Use:   "sort [file]",
		Short: "Print the topological evaluation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd.Context(), args[0], scope, deep)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "compound to sort (selector, default root)")
	cmd.Flags().BoolVar(&deep, "deep", false, "sort every compound in the tree")
	return cmd
}

func runSort(ctx context.Context, input, scope string, deep bool) error {
	logger := loggerFromContext(ctx)

	g, err := graphdoc.ReadFile(input)
	if err != nil {
		return err
	}

	if deep {
		orders, err := algo.TopologicalSortDeep(g)
		if err != nil {
			return sortError(err)
		}
		// Scopes in tree pre-order, root first, so output is stable.
		scopes := []string{g.RootID()}
		labels := map[string]string{g.RootID(): "/"}
		for _, n := range g.NodesDeep() {
			if n.IsCompound() {
				scopes = append(scopes, n.ID())
				labels[n.ID()] = n.Name()
			}
		}
		for _, oid := range scopes {
			fmt.Println(StyleTitle.Render(labels[oid]))
			for i, n := range orders[oid] {
				printDetail("%d. %s", i+1, n.Name())
			}
		}
		return nil
	}

	compoundID := g.RootID()
	if scope != "" {
		ref, err := locator.Match(g, scope)
		if err != nil {
			return err
		}
		compoundID = ref.Node
	}
	order, err := algo.TopologicalSort(g, compoundID)
	if err != nil {
		return sortError(err)
	}
	logger.Debugf("Sorted %d nodes", len(order))
	for i, n := range order {
		fmt.Printf("%d. %s\n", i+1, n.Name())
	}
	return nil
}

func sortError(err error) error {
	if errors.Is(err, portgraph.ErrCycle) {
		printError("the graph contains a dataflow cycle")
	}
	return err
}
