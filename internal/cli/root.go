package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version. This is
// typically called by the main package with values injected via ldflags at
// build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the graphir CLI with the given base context and returns an
// error if any command fails.
//
// The logger level follows the --verbose flag: info by default, debug with
// -v. The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "graphir",
		Short:        "graphir inspects and rewrites hierarchical port graphs",
		Long:         `graphir is a CLI for working with hierarchical port-graph documents: validating and inspecting them, computing evaluation orders, and rendering them as DOT or SVG diagrams.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("graphir %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default graphir.toml)")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newSortCmd())
	root.AddCommand(newRenderCmd(&configPath))
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd(&configPath))

	return root.ExecuteContext(ctx)
}
