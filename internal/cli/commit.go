package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/cli/helpers"
	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/hunklock"
	"stackit.dev/stackgraph/internal/runtime"
)

// newCommitCmd creates the commit command
func newCommitCmd() *cobra.Command {
	var (
		message   string
		branch    string
		amend     string
		untracked bool
		side      string
		resolve   bool
		locksFile string
	)

	cmd := &cobra.Command{
		Use:   "commit [paths...]",
		Short: "Commit worktree changes to any branch, or amend any commit",
		Long: `Commit worktree changes without checking out the destination.

Paths are doublestar patterns (for example 'src/**/*.go'); with no paths,
every change is committed. The changes are cherry-picked onto the tip of
--branch, which defaults to the current branch, or folded into the commit
named by --amend. Changes that conflict with the destination are left in the
worktree and reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := conflict.ParseSide(side)
			if err != nil {
				return err
			}
			opts := actions.CommitOptions{
				Message:   message,
				Branch:    branch,
				Amend:     amend,
				Paths:     args,
				Untracked: untracked,
				Side:      s,
				Resolve:   resolve,
			}
			if locksFile != "" {
				if opts.Locks, err = loadLocks(locksFile); err != nil {
					return err
				}
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.CommitAction(ctx, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "The commit message")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to commit to")
	cmd.Flags().StringVar(&amend, "amend", "", "Commit to fold the changes into")
	cmd.Flags().BoolVarP(&untracked, "all", "a", false, "Include untracked files")
	cmd.Flags().StringVar(&side, "side", "", "Side of a conflicted destination to apply to: ours, theirs, base or auto")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Write an amended conflicted commit as resolved")
	cmd.Flags().StringVar(&locksFile, "locks", "", "JSON file of hunk locks used to pick the branch")
	cmd.MarkFlagsMutuallyExclusive("branch", "amend")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches)

	return cmd
}

func loadLocks(path string) (hunklock.Locks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locks: %w", err)
	}
	defer func() { _ = f.Close() }()
	return hunklock.Load(f)
}
