package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/merge"
)

// Destination says where CreateCommit puts the changes.
type Destination interface {
	isDestination()
}

// NewCommit creates a commit on top of Parent, or a root commit when Parent
// is nil.
type NewCommit struct {
	Parent  *plumbing.Hash
	Message string
}

// AmendCommit rewrites Commit with the changes folded in. Its parents stay;
// descendants are not touched.
type AmendCommit struct {
	Commit     plumbing.Hash
	NewMessage *string
}

func (NewCommit) isDestination()   {}
func (AmendCommit) isDestination() {}

// Options control CreateCommit.
type Options struct {
	// Side is the tree of a conflicted destination the changes apply to.
	Side conflict.Side
	// Resolve writes an amended conflicted commit as a clean commit. It is
	// implied when Side is not the auto-resolution.
	Resolve bool
	// Signature stamps new commits; it defaults to the configured user.
	Signature *object.Signature
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Outcome is the result of CreateCommit.
type Outcome struct {
	// Commit is nil when every change was rejected.
	Commit   *plumbing.Hash
	Rejected []RejectedChange
	// ChangesTree is the base tree with all applicable changes, before
	// they were cherry-picked onto the destination.
	ChangesTree plumbing.Hash
}

// destination is the resolved form of a Destination.
type destination struct {
	tree    plumbing.Hash
	parents []plumbing.Hash
	amend   *object.Commit
	view    conflict.View
}

// CreateCommit applies changes to baseTree and cherry-picks the result onto
// dest. Changes that cannot be applied, or that conflict with the
// destination, are reported in Outcome.Rejected; the commit is created from
// the rest.
func CreateCommit(repo *git.Repository, baseTree plumbing.Hash, dest Destination, changes []Change, opts Options) (*Outcome, error) {
	log := opts.logger()
	baseTree, err := repo.EnsureTree(baseTree)
	if err != nil {
		return nil, err
	}
	base, err := repo.FlattenTree(baseTree)
	if err != nil {
		return nil, fmt.Errorf("failed to read base tree: %w", err)
	}

	outcome := &Outcome{}
	accepted := make([]Change, 0, len(changes))
	a := &applier{repo: repo, entries: base}
	for _, c := range changes {
		reason, err := a.apply(c)
		if err != nil {
			return nil, err
		}
		if reason != 0 {
			log.Debug("rejected change", "path", c.Path, "kind", c.Kind, "reason", reason)
			outcome.Rejected = append(outcome.Rejected, RejectedChange{Path: c.Path, Reason: reason})
			continue
		}
		accepted = append(accepted, c)
	}
	if outcome.ChangesTree, err = repo.BuildTree(a.entries); err != nil {
		return nil, err
	}

	d, err := resolveDestination(repo, dest, opts.Side)
	if err != nil {
		return nil, err
	}

	tree, accepted, err := cherryPick(repo, baseTree, d.tree, outcome.ChangesTree, accepted, outcome, log)
	if err != nil {
		return nil, err
	}

	amend, isAmend := dest.(AmendCommit)
	if len(accepted) == 0 && len(changes) > 0 && (!isAmend || amend.NewMessage == nil) {
		return outcome, nil
	}

	sig := repo.Signature(time.Now())
	if opts.Signature != nil {
		sig = *opts.Signature
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		ParentHashes: d.parents,
	}
	if nc, ok := dest.(NewCommit); ok {
		commit.Message = nc.Message
	} else {
		commit.Author = d.amend.Author
		commit.Message = d.amend.Message
		if amend.NewMessage != nil {
			commit.Message = *amend.NewMessage
		}
		commit.Encoding = d.amend.Encoding
		commit.ExtraHeaders = append([]object.ExtraHeader(nil), d.amend.ExtraHeaders...)
	}

	keepConflict := d.view.IsConflicted() && opts.Side == conflict.SideResolved && !opts.Resolve
	if keepConflict {
		sides := d.view.Conflict.Sides
		sides.Resolved = tree
		if commit.TreeHash, err = conflict.Encode(repo, sides); err != nil {
			return nil, err
		}
		conflict.Mark(commit, len(sides.Paths))
	} else {
		if commit.TreeHash, err = repo.EnsureTree(tree); err != nil {
			return nil, err
		}
		conflict.Unmark(commit)
	}

	id, err := repo.WriteCommit(commit)
	if err != nil {
		return nil, err
	}
	outcome.Commit = &id
	log.Debug("created commit",
		"commit", git.ShortHash(id),
		"amend", isAmend,
		"changes", len(accepted),
		"rejected", len(outcome.Rejected))
	return outcome, nil
}

func resolveDestination(repo *git.Repository, dest Destination, side conflict.Side) (destination, error) {
	switch d := dest.(type) {
	case NewCommit:
		if d.Parent == nil {
			return destination{tree: git.EmptyTreeID}, nil
		}
		view, err := conflict.ReadView(repo, *d.Parent)
		if err != nil {
			return destination{}, err
		}
		return destination{
			tree:    conflict.WorkingTree(view, side),
			parents: []plumbing.Hash{*d.Parent},
		}, nil
	case AmendCommit:
		orig, err := repo.FindCommit(d.Commit)
		if err != nil {
			return destination{}, err
		}
		view, err := conflict.Decode(repo, orig)
		if err != nil {
			return destination{}, err
		}
		return destination{
			tree:    conflict.WorkingTree(view, side),
			parents: append([]plumbing.Hash(nil), orig.ParentHashes...),
			amend:   orig,
			view:    view,
		}, nil
	case nil:
		return destination{}, errors.New("no destination")
	}
	return destination{}, fmt.Errorf("unknown destination %T", dest)
}

// cherryPick merges the base→changes diff onto target. Changes touching a
// conflicting path are rejected and the pick is retried without them.
func cherryPick(repo *git.Repository, baseTree, target, changesTree plumbing.Hash, accepted []Change, outcome *Outcome, log *slog.Logger) (plumbing.Hash, []Change, error) {
	if target == baseTree {
		return changesTree, accepted, nil
	}

	theirs := changesTree
	for {
		result, err := merge.Trees(repo, baseTree, target, theirs)
		if err != nil {
			return plumbing.ZeroHash, nil, err
		}
		if result.Clean() {
			return result.Tree, accepted, nil
		}

		var kept []Change
		hit := false
		for _, c := range accepted {
			if touchesAny(c, result.Conflicts) {
				log.Debug("change conflicts with destination", "path", c.Path)
				outcome.Rejected = append(outcome.Rejected, RejectedChange{Path: c.Path, Reason: CherryPickConflict})
				hit = true
				continue
			}
			kept = append(kept, c)
		}
		if !hit {
			tree, err := revertPaths(repo, result.Tree, target, result.Conflicts)
			return tree, accepted, err
		}
		accepted = kept

		base, err := repo.FlattenTree(baseTree)
		if err != nil {
			return plumbing.ZeroHash, nil, err
		}
		a := &applier{repo: repo, entries: base}
		for _, c := range accepted {
			// These applied before; the base tree has not changed.
			if _, err := a.apply(c); err != nil {
				return plumbing.ZeroHash, nil, err
			}
		}
		if theirs, err = repo.BuildTree(a.entries); err != nil {
			return plumbing.ZeroHash, nil, err
		}
	}
}

func touchesAny(c Change, paths []string) bool {
	for _, p := range paths {
		if c.touches(p) {
			return true
		}
	}
	return false
}

// revertPaths resets paths in tree to their state in target.
func revertPaths(repo *git.Repository, tree, target plumbing.Hash, paths []string) (plumbing.Hash, error) {
	entries, err := repo.FlattenTree(tree)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	targetEntries, err := repo.FlattenTree(target)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	for _, p := range paths {
		if e, ok := targetEntries[p]; ok {
			entries[p] = e
		} else {
			delete(entries, p)
		}
	}
	return repo.BuildTree(entries)
}
