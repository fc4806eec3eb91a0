package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/runtime"
)

// newRewordCmd creates the reword command
func newRewordCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "reword [commit]",
		Short: "Change the message of any commit and rebase what sits on top of it",
		Long: `Change the message of any commit in a local branch.

Every branch containing the commit is rebased. If no commit is passed in,
opens an interactive selector; without --message, prompts for the message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.RewordAction(ctx, actions.RewordOptions{
					Commit:  firstArg(args),
					Message: message,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "The new commit message")

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
