package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/runtime"
)

// newGraphCmd creates the graph command
func newGraphCmd() *cobra.Command {
	var (
		redact   bool
		compress bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the segment graph as Graphviz for debugging",
		Long: `Export the segment graph as a Graphviz digraph.

Use --redact before sharing the output: branch names, remote names and commit
ids are replaced with stable labels while the topology is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				opts := actions.GraphOptions{Redact: redact, Compress: compress}
				if output == "" || output == "-" {
					opts.Output = cmd.OutOrStdout()
					return actions.GraphAction(ctx, opts)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				return writeGraph(ctx, f, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&redact, "redact", false, "Replace names and commit ids with stable labels")
	cmd.Flags().BoolVar(&compress, "compress", false, "Write a zstd compressed stream")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}

// writeGraph exports the graph to w and closes it. A failed close fails the
// export, since the file may be truncated.
func writeGraph(ctx *runtime.Context, w io.WriteCloser, opts actions.GraphOptions) (err error) {
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to write graph: %w", closeErr)
		}
	}()
	opts.Output = w
	return actions.GraphAction(ctx, opts)
}
