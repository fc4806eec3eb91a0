package actions

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/internal/runtime"
)

// MoveOptions contains options for the move command
type MoveOptions struct {
	Commit string
	// Onto is a branch name, which puts the commit on top of the branch, or
	// a revision, which puts it directly above that commit.
	Onto string
}

// MoveAction detaches a commit from its place and reattaches it elsewhere
func MoveAction(ctx *runtime.Context, opts MoveOptions) error {
	if opts.Onto == "" {
		return fmt.Errorf("a destination is required")
	}
	if err := ensureNoJournals(ctx); err != nil {
		return err
	}
	e, g, err := newEditor(ctx)
	if err != nil {
		return err
	}
	id, sel, err := selectCommit(ctx, e, g, opts.Commit, "Which commit should be moved?")
	if err != nil {
		return err
	}

	if target, ok := e.Select(rebase.ByReference(plumbing.NewBranchReferenceName(opts.Onto))); ok {
		ctx.Splog.Debug("moving %s to the top of %s", git.ShortHash(id), opts.Onto)
		if err := e.Move(sel, target, rebase.Below); err != nil {
			return err
		}
	} else {
		ontoID, target, err := selectCommit(ctx, e, g, opts.Onto, "")
		if err != nil {
			return err
		}
		if ontoID == id {
			return fmt.Errorf("cannot move %s onto itself", git.ShortHash(id))
		}
		ctx.Splog.Debug("moving %s above %s", git.ShortHash(id), git.ShortHash(ontoID))
		if err := e.Move(sel, target, rebase.Above); err != nil {
			return err
		}
	}

	_, err = applyEdits(ctx, e)
	return err
}
