package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/runtime"
)

// newMoveCmd creates the move command
func newMoveCmd() *cobra.Command {
	var onto string

	cmd := &cobra.Command{
		Use:   "move [commit] --onto <branch|commit>",
		Short: "Move a commit to another branch or position",
		Long: `Move a commit out of its place and reattach it elsewhere.

When --onto names a branch, the commit becomes the new tip of that branch.
Otherwise --onto is a revision and the commit is placed directly on top of
it, taking over its children.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.MoveAction(ctx, actions.MoveOptions{
					Commit: firstArg(args),
					Onto:   onto,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&onto, "onto", "o", "", "Branch or commit to move the commit onto")
	_ = cmd.MarkFlagRequired("onto")
	_ = cmd.RegisterFlagCompletionFunc("onto", helpers.CompleteBranches)

	return cmd
}
