// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/runtime"
)

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	ctx, err := runtime.GetContext(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		ctx.Splog.SetQuiet(true)
	}
	return fn(ctx)
}
