package actions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/engine"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/hunklock"
	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/internal/tui"
)

// ErrNothingToCommit is returned when no worktree change matches.
var ErrNothingToCommit = errors.New("nothing to commit")

// CommitOptions contains options for the commit command
type CommitOptions struct {
	Message string
	// Branch receives the new commit; it defaults to the branch the changes
	// are locked to, then to HEAD's branch.
	Branch string
	// Amend is a revision to fold the changes into instead.
	Amend string
	// Paths are doublestar patterns; empty selects every change.
	Paths []string
	// Untracked includes files git does not know yet.
	Untracked bool
	Side      conflict.Side
	Resolve   bool
	Locks     hunklock.Locks
}

// CommitAction commits worktree changes to any branch, or amends any commit,
// without touching the worktree. Descendants of the destination are rebased.
func CommitAction(ctx *runtime.Context, opts CommitOptions) error {
	if err := ensureNoJournals(ctx); err != nil {
		return err
	}
	for _, pattern := range opts.Paths {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid path pattern %q", pattern)
		}
	}

	head, _, err := ctx.Repo.HeadRef()
	if err != nil {
		return err
	}
	baseTree, err := branchTree(ctx, head)
	if err != nil {
		return err
	}
	changes, err := worktreeChanges(ctx, baseTree, opts)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return ErrNothingToCommit
	}

	committer := ctx.Repo.Signature(time.Now())
	engineOpts := engine.Options{
		Side:      opts.Side,
		Resolve:   opts.Resolve,
		Signature: &committer,
		Logger:    ctx.Logger(),
	}

	if opts.Amend != "" {
		return amend(ctx, baseTree, changes, opts, engineOpts)
	}

	branch := head
	switch {
	case opts.Branch != "":
		branch = plumbing.NewBranchReferenceName(opts.Branch)
	case opts.Locks != nil:
		if lock, ok := hunklock.Suggest(opts.Locks, changes); ok {
			branch = plumbing.NewBranchReferenceName(lock.Stack)
			ctx.Splog.Info("The changes depend on %s, committing to %s.",
				output.ColorHash(git.ShortHash(lock.Commit)), output.ColorBranchName(lock.Stack, false))
		} else if stacks := hunklock.Stacks(opts.Locks, changes); len(stacks) > 1 {
			ctx.Splog.Warn("The changes depend on several stacks: %s", strings.Join(stacks, ", "))
		}
	}

	tip, exists, err := ctx.Repo.RefTarget(branch)
	if err != nil {
		return err
	}
	if !exists && branch != head {
		return fmt.Errorf("branch %s does not exist", branch.Short())
	}

	message, err := commitMessage(opts.Message, "")
	if err != nil {
		return err
	}
	dest := engine.NewCommit{Message: message}
	if exists {
		dest.Parent = &tip
	}

	outcome, err := engine.CreateCommit(ctx.Repo, baseTree, dest, changes, engineOpts)
	if err != nil {
		return err
	}
	if err := reportRejected(ctx, outcome); err != nil {
		return err
	}
	id := *outcome.Commit

	if !exists {
		if err := ctx.Repo.UpdateRef(branch, plumbing.ZeroHash, id); err != nil {
			return err
		}
		if err := syncIndex(ctx, plumbing.ZeroHash, id); err != nil {
			return err
		}
		ctx.Splog.Info("Created %s on %s.", output.ColorHash(git.ShortHash(id)), output.ColorBranchName(branch.Short(), true))
		return nil
	}

	e, _, err := newEditor(ctx)
	if err != nil {
		return err
	}
	refSel, ok := e.Select(rebase.ByReference(branch))
	if !ok {
		return fmt.Errorf("branch %s is not part of the workspace", branch.Short())
	}
	if _, err := e.Insert(refSel, rebase.Pick(id), rebase.Below); err != nil {
		return err
	}
	ctx.Splog.Info("Created %s on %s.", output.ColorHash(git.ShortHash(id)), output.ColorBranchName(branch.Short(), branch == head))
	_, err = applyEdits(ctx, e)
	return err
}

func amend(ctx *runtime.Context, baseTree plumbing.Hash, changes []engine.Change, opts CommitOptions, engineOpts engine.Options) error {
	e, g, err := newEditor(ctx)
	if err != nil {
		return err
	}
	target, sel, err := selectCommit(ctx, e, g, opts.Amend, "")
	if err != nil {
		return err
	}

	dest := engine.AmendCommit{Commit: target}
	if opts.Message != "" {
		message, err := commitMessage(opts.Message, "")
		if err != nil {
			return err
		}
		dest.NewMessage = &message
	}

	outcome, err := engine.CreateCommit(ctx.Repo, baseTree, dest, changes, engineOpts)
	if err != nil {
		return err
	}
	if err := reportRejected(ctx, outcome); err != nil {
		return err
	}

	id := *outcome.Commit
	if _, err := e.Replace(sel, rebase.Pick(id)); err != nil {
		return err
	}
	ctx.Splog.Info("Amended %s as %s.", output.ColorHash(git.ShortHash(target)), output.ColorHash(git.ShortHash(id)))
	_, err = applyEdits(ctx, e)
	return err
}

func reportRejected(ctx *runtime.Context, outcome *engine.Outcome) error {
	for _, r := range outcome.Rejected {
		ctx.Splog.Warn("%s was not committed: %s", r.Path, r.Reason)
	}
	if outcome.Commit == nil {
		return errors.New("none of the changes could be committed")
	}
	return nil
}

// commitMessage returns message with a trailing newline, prompting for one
// when it is empty.
func commitMessage(message, current string) (string, error) {
	if message == "" {
		var err error
		if message, err = tui.PromptMessage("Commit message", current); err != nil {
			if errors.Is(err, tui.ErrInteractiveDisabled) {
				return "", errors.New("a commit message is required (--message)")
			}
			return "", err
		}
	}
	if strings.TrimSpace(message) == "" {
		return "", errors.New("the commit message must not be empty")
	}
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	return message, nil
}

// branchTree returns the tree checked out for branch, the zero hash when the
// branch is unborn.
func branchTree(ctx *runtime.Context, branch plumbing.ReferenceName) (plumbing.Hash, error) {
	id, exists, err := ctx.Repo.RefTarget(branch)
	if err != nil || !exists {
		return plumbing.ZeroHash, err
	}
	view, err := conflict.ReadView(ctx.Repo, id)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return conflict.WorkingTree(view, conflict.SideResolved), nil
}

// worktreeChanges turns the changed files matching opts.Paths into changes
// against baseTree.
func worktreeChanges(ctx *runtime.Context, baseTree plumbing.Hash, opts CommitOptions) ([]engine.Change, error) {
	files, err := ctx.Repo.ChangedFiles(opts.Untracked)
	if err != nil {
		return nil, err
	}
	base := map[string]git.Entry{}
	if !baseTree.IsZero() {
		if base, err = ctx.Repo.FlattenTree(baseTree); err != nil {
			return nil, err
		}
	}

	var changes []engine.Change
	for _, f := range files {
		if !matchesAny(opts.Paths, f.Path) {
			continue
		}
		_, inBase := base[f.Path]
		c := engine.Change{Path: f.Path, Mode: f.Mode}
		switch {
		case !f.Exists && !inBase:
			continue
		case !f.Exists:
			c.Kind = engine.Delete
		case inBase:
			c.Kind = engine.Modify
		default:
			c.Kind = engine.Add
		}
		if f.Exists {
			if c.Content, err = ctx.Repo.ReadWorktreeFile(f.Path); err != nil {
				return nil, err
			}
			if c.Mode == filemode.Empty {
				c.Mode = filemode.Regular
			}
		}
		ctx.Splog.Debug("%s %s", c.Kind, c.Path)
		changes = append(changes, c)
	}
	return changes, nil
}

// matchesAny reports whether path matches one of the patterns, either
// directly or as a file below a matching directory.
func matchesAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(pattern, "/")
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern+"/**", path); ok {
			return true
		}
	}
	return false
}

// syncIndex applies the difference between two commits' trees to the index.
func syncIndex(ctx *runtime.Context, from, to plumbing.Hash) error {
	oldTree, err := branchTreeOf(ctx, from)
	if err != nil {
		return err
	}
	newTree, err := branchTreeOf(ctx, to)
	if err != nil {
		return err
	}
	edits := git.IndexEditsForTrees(oldTree, newTree)
	if len(edits) == 0 {
		return nil
	}
	idx, err := ctx.Repo.ReadIndex()
	if err != nil {
		return err
	}
	git.ApplyIndexEdits(idx, edits)
	return ctx.Repo.WriteIndex(idx)
}

func branchTreeOf(ctx *runtime.Context, id plumbing.Hash) (map[string]git.Entry, error) {
	if id.IsZero() {
		return map[string]git.Entry{}, nil
	}
	view, err := conflict.ReadView(ctx.Repo, id)
	if err != nil {
		return nil, err
	}
	return ctx.Repo.FlattenTree(conflict.WorkingTree(view, conflict.SideResolved))
}
