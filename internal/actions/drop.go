package actions

import (
	"fmt"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/internal/tui"
)

// DropOptions contains options for the drop command
type DropOptions struct {
	Commit string
	// Force skips the confirmation prompt.
	Force bool
}

// DropAction removes a commit and rebases its descendants onto its parents
func DropAction(ctx *runtime.Context, opts DropOptions) error {
	if err := ensureNoJournals(ctx); err != nil {
		return err
	}
	e, g, err := newEditor(ctx)
	if err != nil {
		return err
	}
	id, sel, err := selectCommit(ctx, e, g, opts.Commit, "Which commit should be dropped?")
	if err != nil {
		return err
	}

	if !opts.Force && tui.Interactive() {
		ok, err := tui.PromptConfirm(fmt.Sprintf("Drop %s %s?", git.ShortHash(id), describe(ctx, id)), false)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Splog.Info("Aborted.")
			return nil
		}
	}

	if err := e.Remove(sel); err != nil {
		return err
	}
	_, err = applyEdits(ctx, e)
	return err
}
