package actions

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/graph"
	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/internal/tui"
)

// ErrInterruptedUpdate is returned by mutating actions while a journal of an
// interrupted materialization exists.
var ErrInterruptedUpdate = errors.New("an interrupted update was found; run 'stackgraph recover' first")

// ensureNoJournals refuses to rewrite history on top of a half-applied
// update.
func ensureNoJournals(ctx *runtime.Context) error {
	journals, err := ctx.Repo.ListRefs(rebase.JournalPrefix)
	if err != nil {
		return err
	}
	if len(journals) > 0 {
		return ErrInterruptedUpdate
	}
	return nil
}

// newEditor builds the graph of all local branches and an editor over it.
func newEditor(ctx *runtime.Context) (*rebase.Editor, *graph.Graph, error) {
	g, err := ctx.BuildGraph()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build commit graph: %w", err)
	}
	committer := ctx.Repo.Signature(time.Now())
	e, err := rebase.NewEditor(ctx.Repo, g, rebase.EditorOptions{
		Committer: &committer,
		Logger:    ctx.Logger(),
	})
	if err != nil {
		return nil, nil, err
	}
	return e, g, nil
}

// selectCommit resolves rev to a commit the editor can rewrite. An empty rev
// opens the commit picker.
func selectCommit(ctx *runtime.Context, e *rebase.Editor, g *graph.Graph, rev, title string) (plumbing.Hash, rebase.Selector, error) {
	var id plumbing.Hash
	var err error
	if rev == "" {
		id, err = pickCommit(ctx, g, title)
	} else {
		id, err = ctx.Repo.ResolveRevision(rev)
	}
	if err != nil {
		return plumbing.ZeroHash, rebase.Selector{}, err
	}

	sel, ok := e.Select(rebase.ByCommit(id))
	if !ok {
		return plumbing.ZeroHash, rebase.Selector{}, fmt.Errorf("commit %s is not part of a local branch: %w", git.ShortHash(id), stackerrors.ErrNotFound)
	}
	return id, sel, nil
}

// pickCommit lets the user choose a commit of the workspace's stacks.
func pickCommit(ctx *runtime.Context, g *graph.Graph, title string) (plumbing.Hash, error) {
	if !tui.Interactive() {
		return plumbing.ZeroHash, fmt.Errorf("no commit given: %w", tui.ErrInteractiveDisabled)
	}
	ws, err := ctx.Workspace(g)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var items []tui.PickerItem
	var ids []plumbing.Hash
	for _, stack := range ws.Stacks {
		for _, seg := range stack.Segments {
			items = append(items, tui.PickerItem{Label: seg.Name(), Header: true})
			ids = append(ids, plumbing.ZeroHash)
			for _, c := range seg.Commits {
				items = append(items, tui.PickerItem{Label: git.ShortHash(c.ID) + " " + describe(ctx, c.ID)})
				ids = append(ids, c.ID)
			}
		}
	}

	i, err := tui.RunPicker(title, items)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ids[i], nil
}

// describe returns the subject of a commit, or "" when it cannot be read.
func describe(ctx *runtime.Context, id plumbing.Hash) string {
	commit, err := ctx.Repo.FindCommit(id)
	if err != nil {
		return ""
	}
	return git.CommitSubject(commit.Message)
}

// applyEdits rebases e, moves the references and reports what changed.
func applyEdits(ctx *runtime.Context, e *rebase.Editor) (*rebase.Outcome, error) {
	outcome, err := e.Rebase()
	if err != nil {
		return nil, err
	}
	result, err := outcome.Materialize(ctx, rebase.MaterializeOptions{
		UpdateIndex: true,
		Logger:      ctx.Logger(),
	})
	if err != nil {
		return nil, err
	}

	for _, u := range result.Updates {
		ctx.Splog.Info("%s %s → %s",
			output.ColorBranchName(u.Name.Short(), false),
			output.ColorHash(shortOrNone(u.Old)),
			output.ColorHash(git.ShortHash(u.New)))
	}
	if len(result.Updates) == 0 {
		ctx.Splog.Info("Nothing changed.")
	}
	reportConflicts(ctx, outcome)
	return outcome, nil
}

func reportConflicts(ctx *runtime.Context, outcome *rebase.Outcome) {
	if len(outcome.Conflicted) == 0 {
		return
	}
	ctx.Splog.Warn("%d %s conflicted:", len(outcome.Conflicted), plural(len(outcome.Conflicted), "commit", "commits"))
	for _, c := range outcome.Conflicted {
		ctx.Splog.Info("  %s %s (%s)",
			output.ColorConflict(git.ShortHash(c.Commit)),
			describe(ctx, c.Commit),
			joinPaths(c.Paths))
	}

	head, err := outcome.IsConflictedHead()
	if err != nil {
		ctx.Splog.Debug("failed to check HEAD: %v", err)
		return
	}
	if head {
		ctx.Splog.Tip("HEAD is conflicted. Edit the files and run 'stackgraph commit --amend HEAD' to fold in the resolution.")
	}
}

func shortOrNone(id plumbing.Hash) string {
	if id.IsZero() {
		return "(none)"
	}
	return git.ShortHash(id)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func joinPaths(paths []string) string {
	const shown = 3
	out := ""
	for i, p := range paths {
		if i == shown {
			return fmt.Sprintf("%s and %d more", out, len(paths)-shown)
		}
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
