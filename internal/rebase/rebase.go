package rebase

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"stackit.dev/stackgraph/internal/conflict"
	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/merge"
)

// Rebase replays the editor into new commits and consumes it. Nodes are
// processed roots first; siblings in edge order. Conflicts do not fail the
// rebase: they become conflicted commits listed in the outcome.
func (e *Editor) Rebase() (*Outcome, error) {
	if e.consumed {
		return nil, stackerrors.ErrEditorConsumed
	}
	e.consumed = true

	order, err := e.topoOrder()
	if err != nil {
		return nil, err
	}

	r := &replay{
		editor:  e,
		outputs: make(map[int][]plumbing.Hash, len(order)),
		outcome: &Outcome{
			Status:   Success,
			Mapping:  make(map[plumbing.Hash]plumbing.Hash),
			Tips:     make(map[plumbing.ReferenceName]plumbing.Hash),
			repo:     e.repo,
			original: e.refs,
			head:     e.head,
		},
	}
	for _, n := range order {
		if err := r.process(n); err != nil {
			return nil, err
		}
	}
	if len(r.outcome.Conflicted) > 0 {
		r.outcome.Status = PartiallyConflicted
	}

	e.opts.Logger.Debug("rebased editor",
		"nodes", len(order),
		"rewritten", len(r.outcome.Mapping),
		"conflicted", len(r.outcome.Conflicted))
	return r.outcome, nil
}

// topoOrder is Kahn's algorithm over live nodes. Roots start in node order;
// children become ready in edge order.
func (e *Editor) topoOrder() ([]int, error) {
	pending := make(map[int]int)
	live := 0
	for i, n := range e.nodes {
		if !n.removed {
			pending[i] = 0
			live++
		}
	}
	children := make(map[int][]edge)
	for _, ed := range e.edges {
		pending[ed.child]++
		children[ed.parent] = append(children[ed.parent], ed)
	}
	for _, out := range children {
		sortChildEdges(out)
	}

	var ready []int
	for i, n := range e.nodes {
		if !n.removed && pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, live)
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, ed := range children[n] {
			pending[ed.child]--
			if pending[ed.child] == 0 {
				ready = append(ready, ed.child)
			}
		}
	}
	if len(order) != live {
		return nil, fmt.Errorf("rebase graph: %w", stackerrors.ErrCycle)
	}
	return order, nil
}

type replay struct {
	editor  *Editor
	outputs map[int][]plumbing.Hash
	outcome *Outcome
}

func (r *replay) repo() *git.Repository {
	return r.editor.repo
}

// parents concatenates the outputs of n's parents in parent order.
func (r *replay) parents(n int) ([]plumbing.Hash, bool) {
	edges := r.editor.parentEdges(n)
	if len(edges) == 0 {
		return nil, false
	}
	var out []plumbing.Hash
	for _, ed := range edges {
		out = append(out, r.outputs[ed.parent]...)
	}
	return out, true
}

func (r *replay) process(n int) error {
	step := r.editor.nodes[n].step
	parents, hasParents := r.parents(n)

	switch step.Kind {
	case KindNone:
		r.outputs[n] = parents
	case KindReference:
		if !hasParents {
			id, exists, err := r.repo().RefTarget(step.Ref)
			if err != nil {
				return err
			}
			if exists {
				parents = []plumbing.Hash{id}
			}
		}
		r.outputs[n] = parents
		if len(parents) > 0 {
			r.outcome.Tips[step.Ref] = parents[0]
		}
	case KindPick:
		keep := !hasParents && r.editor.nodes[n].keepParents
		id, err := r.pick(step, parents, keep)
		if err != nil {
			return fmt.Errorf("failed to pick %s: %w", git.ShortHash(step.Commit), err)
		}
		r.outputs[n] = []plumbing.Hash{id}
	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
	return nil
}

func (r *replay) pick(step Step, parents []plumbing.Hash, keepParents bool) (plumbing.Hash, error) {
	repo := r.repo()
	orig, err := repo.FindCommit(step.Commit)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if keepParents {
		parents = orig.ParentHashes
	}

	message := orig.Message
	if step.NewMessage != nil {
		message = *step.NewMessage
	}
	if message == orig.Message && sameHashes(parents, orig.ParentHashes) {
		return orig.Hash, nil
	}

	view, err := conflict.Decode(repo, orig)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// The patch the commit applied: from its parents' combined tree to its
	// own tree, or the sides it was being cherry-picked with.
	var patchBase, patchTheirs plumbing.Hash
	if view.IsConflicted() {
		patchBase, patchTheirs = view.Conflict.Base, view.Conflict.Theirs
	} else {
		combined, err := r.combinedTree(orig.ParentHashes)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		patchBase, patchTheirs = combined.Tree, view.Tree
	}

	ours, err := r.combinedTree(parents)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	result := merge.Result{Tree: patchTheirs}
	if ours.Tree != patchBase {
		if result, err = merge.Trees(repo, patchBase, ours.Tree, patchTheirs); err != nil {
			return plumbing.ZeroHash, err
		}
	}
	paths := unionPaths(ours.Conflicts, result.Conflicts)

	commit := &object.Commit{
		Author:       orig.Author,
		Committer:    orig.Committer,
		Message:      message,
		ParentHashes: append([]plumbing.Hash(nil), parents...),
		Encoding:     orig.Encoding,
		ExtraHeaders: append([]object.ExtraHeader(nil), orig.ExtraHeaders...),
	}
	if c := r.editor.opts.Committer; c != nil {
		commit.Committer = *c
	}

	if len(paths) == 0 {
		commit.TreeHash, err = repo.EnsureTree(result.Tree)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		conflict.Unmark(commit)
	} else {
		commit.TreeHash, err = conflict.Encode(repo, conflict.Sides{
			Ours:     ours.Tree,
			Theirs:   patchTheirs,
			Base:     patchBase,
			Resolved: result.Tree,
			Paths:    paths,
		})
		if err != nil {
			return plumbing.ZeroHash, err
		}
		conflict.Mark(commit, len(paths))
	}

	id, err := repo.WriteCommit(commit)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if id != orig.Hash {
		r.outcome.Mapping[orig.Hash] = id
	}
	if len(paths) > 0 {
		r.outcome.Conflicted = append(r.outcome.Conflicted, ConflictedNode{
			Original: orig.Hash,
			Commit:   id,
			Paths:    paths,
		})
	}
	return id, nil
}

// combinedTree is the tree a commit with these parents starts from: empty
// for a root, the parent's working tree for one parent, and an octopus merge
// against merge bases for several.
func (r *replay) combinedTree(parents []plumbing.Hash) (merge.Result, error) {
	repo := r.repo()
	if len(parents) == 0 {
		return merge.Result{Tree: git.EmptyTreeID}, nil
	}

	trees := make([]plumbing.Hash, 0, len(parents))
	for _, p := range parents {
		tree, err := workingTree(repo, p)
		if err != nil {
			return merge.Result{}, err
		}
		trees = append(trees, tree)
	}
	if len(trees) == 1 {
		return merge.Result{Tree: trees[0]}, nil
	}

	bases := make([]plumbing.Hash, 0, len(parents)-1)
	for _, p := range parents[1:] {
		baseID, err := repo.MergeBase(parents[0], p)
		if err != nil {
			return merge.Result{}, err
		}
		tree := git.EmptyTreeID
		if !baseID.IsZero() {
			if tree, err = workingTree(repo, baseID); err != nil {
				return merge.Result{}, err
			}
		}
		bases = append(bases, tree)
	}
	return merge.Octopus(repo, trees, bases)
}

// workingTree reads a commit's tree, looking through conflicts to their
// auto-resolution.
func workingTree(repo *git.Repository, id plumbing.Hash) (plumbing.Hash, error) {
	view, err := conflict.ReadView(repo, id)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return conflict.WorkingTree(view, conflict.SideResolved), nil
}

func sameHashes(a, b []plumbing.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionPaths(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
