package cli

import (
	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/runtime"
)

// newDropCmd creates the drop command
func newDropCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "drop [commit]",
		Short: "Remove a commit from history",
		Long: `Remove a commit and rebase its descendants onto its parents.

Changes of descendants that depended on the dropped commit end up in
conflicted commits rather than stopping the rebase.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.DropAction(ctx, actions.DropOptions{
					Commit: firstArg(args),
					Force:  force,
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")

	return cmd
}
