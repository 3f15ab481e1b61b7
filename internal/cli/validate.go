package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/graphir/graphir/pkg/graphdoc"
	"github.com/graphir/graphir/pkg/locator"
)

// newValidateCmd creates the validate command. It loads a document, which
// runs the full structural validation (identifier uniqueness, sibling names,
// port resolution, edge locality), and reports the result.
func newValidateCmd() *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a port-graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], selector)
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "additionally resolve a location selector")
	return cmd
}

func runValidate(ctx context.Context, input, selector string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	g, err := graphdoc.ReadFile(input)
	if err != nil {
		printError("%s is not a valid document", input)
		return err
	}
	prog.done("Validated " + input)

	printSuccess("%s is valid", input)
	printStats(len(g.NodesDeep()), len(g.EdgesDeep()), false)

	if selector != "" {
		ref, err := locator.Match(g, selector)
		if err != nil {
			return err
		}
		printDetail("selector %s resolves to %s", selector, ref)
	}
	return nil
}
