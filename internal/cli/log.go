package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/runtime"
)

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	var (
		reverse bool
		short   bool
		stack   string
	)

	cmd := &cobra.Command{
		Use:     "log",
		Short:   "Show every stack with its branches and commits",
		Aliases: []string{"l"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.LogAction(ctx, actions.LogOptions{
					Short:   short,
					Reverse: reverse,
					Stack:   stack,
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Print the log upside down. Handy when you have a lot of branches!")
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print one line per branch")
	cmd.Flags().StringVar(&stack, "stack", "", "Only show the stack with this name")
	_ = cmd.RegisterFlagCompletionFunc("stack", helpers.CompleteBranches)

	return cmd
}
