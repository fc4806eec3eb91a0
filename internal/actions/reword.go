package actions

import (
	"errors"
	"strings"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/internal/tui"
)

// RewordOptions contains options for the reword command
type RewordOptions struct {
	// Commit is a revision; empty opens the commit picker.
	Commit string
	// Message is the new message; empty prompts for one.
	Message string
}

// RewordAction replaces the message of a commit and rebases its descendants
func RewordAction(ctx *runtime.Context, opts RewordOptions) error {
	if err := ensureNoJournals(ctx); err != nil {
		return err
	}
	e, g, err := newEditor(ctx)
	if err != nil {
		return err
	}
	id, sel, err := selectCommit(ctx, e, g, opts.Commit, "Which commit should be reworded?")
	if err != nil {
		return err
	}

	message := opts.Message
	if message == "" {
		commit, err := ctx.Repo.FindCommit(id)
		if err != nil {
			return err
		}
		if message, err = tui.PromptMessage("Message", commit.Message); err != nil {
			return err
		}
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("the commit message must not be empty")
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	if _, err := e.Replace(sel, rebase.Reword(id, message)); err != nil {
		return err
	}
	ctx.Splog.Debug("rewording %s", git.ShortHash(id))
	_, err = applyEdits(ctx, e)
	return err
}
