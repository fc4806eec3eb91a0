package rebase

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/graph"
)

// Side chooses where Insert and Move place a node relative to the target.
type Side int

const (
	// Above makes the new node a child of the target
	Above Side = iota
	// Below makes the new node a parent of the target
	Below
)

func (s Side) String() string {
	if s == Below {
		return "below"
	}
	return "above"
}

// Selector addresses a node of an Editor. It goes stale when the node is
// removed.
type Selector struct {
	index int
	gen   uint64
}

type node struct {
	step    Step
	gen     uint64
	removed bool
	// keepParents marks picks that started without parent edges: root
	// commits and parents outside the graph. Only they keep their commit's
	// own parents when they have no edges at rebase time.
	keepParents bool
}

// edge points from a child node to one of its parents. order is the parent
// position and the tie-break among siblings.
type edge struct {
	child  int
	parent int
	order  int
}

// EditorOptions configure an Editor and the rebase it produces.
type EditorOptions struct {
	// Committer is used for rewritten commits. The original committer is
	// kept when nil.
	Committer *object.Signature
	Logger    *slog.Logger
}

// Editor is a mutable graph of steps built from a graph snapshot. It is
// single-use: Rebase consumes it.
type Editor struct {
	repo  *git.Repository
	opts  EditorOptions
	nodes []node
	edges []edge

	// refs captures the target of every anchored reference at creation.
	refs map[plumbing.ReferenceName]plumbing.Hash
	head plumbing.ReferenceName

	consumed bool
}

// NewEditor creates an editor holding a Pick for every commit of the graph's
// local segments and a Reference above every local branch. Parents outside
// the graph become Picks without parents, which keep their commit as is.
// A pick that loses all its parents through Remove or Move becomes a root.
func NewEditor(repo *git.Repository, g *graph.Graph, opts EditorOptions) (*Editor, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Editor{
		repo: repo,
		opts: opts,
		refs: make(map[plumbing.ReferenceName]plumbing.Hash),
	}

	head, _, err := repo.HeadRef()
	if err != nil {
		return nil, err
	}
	e.head = head

	picks := make(map[plumbing.Hash]int)
	anchors := make(map[plumbing.Hash]int)
	var commits []graph.Commit

	for _, seg := range g.Segments() {
		if seg.IsRemote() {
			continue
		}
		for i, c := range seg.Commits {
			n := e.add(Pick(c.ID))
			picks[c.ID] = n
			commits = append(commits, c)

			var names []plumbing.ReferenceName
			if i == 0 && seg.RefName.IsBranch() {
				names = append(names, seg.RefName)
			}
			for _, r := range c.Refs {
				if r.IsBranch() {
					names = append(names, r)
				}
			}
			top := n
			for _, name := range names {
				if _, dup := e.refs[name]; dup {
					continue
				}
				ref := e.add(Reference(name))
				e.link(ref, top, 0)
				e.refs[name] = c.ID
				top = ref
			}
			anchors[c.ID] = top
		}
	}

	outside := make(map[plumbing.Hash]int)
	for _, c := range commits {
		for i, p := range c.Parents {
			target, ok := anchors[p]
			if !ok {
				if target, ok = outside[p]; !ok {
					target = e.add(Pick(p))
					outside[p] = target
				}
			}
			e.link(picks[c.ID], target, i)
		}
	}

	hasParents := make(map[int]bool, len(e.edges))
	for _, ed := range e.edges {
		hasParents[ed.child] = true
	}
	for i := range e.nodes {
		if e.nodes[i].step.Kind == KindPick && !hasParents[i] {
			e.nodes[i].keepParents = true
		}
	}

	e.opts.Logger.Debug("created rebase editor",
		"nodes", len(e.nodes),
		"edges", len(e.edges),
		"references", len(e.refs))
	return e, nil
}

func (e *Editor) add(step Step) int {
	e.nodes = append(e.nodes, node{step: step})
	return len(e.nodes) - 1
}

func (e *Editor) link(child, parent, order int) {
	e.edges = append(e.edges, edge{child: child, parent: parent, order: order})
}

func (e *Editor) selector(n int) Selector {
	return Selector{index: n, gen: e.nodes[n].gen}
}

func (e *Editor) resolve(sel Selector) (int, error) {
	if e.consumed {
		return 0, stackerrors.ErrEditorConsumed
	}
	if sel.index < 0 || sel.index >= len(e.nodes) {
		return 0, fmt.Errorf("selector %d: %w", sel.index, stackerrors.ErrStaleSelector)
	}
	n := e.nodes[sel.index]
	if n.removed || n.gen != sel.gen {
		return 0, fmt.Errorf("selector %d: %w", sel.index, stackerrors.ErrStaleSelector)
	}
	return sel.index, nil
}

// Select returns the first live node whose step matches pred. ok is false
// when nothing matches or the editor was consumed.
func (e *Editor) Select(pred Predicate) (sel Selector, ok bool) {
	if e.consumed {
		return Selector{}, false
	}
	for i, n := range e.nodes {
		if !n.removed && pred(n.step) {
			return e.selector(i), true
		}
	}
	return Selector{}, false
}

// Step returns the step at sel
func (e *Editor) Step(sel Selector) (Step, error) {
	n, err := e.resolve(sel)
	if err != nil {
		return Step{}, err
	}
	return e.nodes[n].step, nil
}

// Replace substitutes the step at sel and returns the previous one. Edges
// are unaffected.
func (e *Editor) Replace(sel Selector, step Step) (Step, error) {
	n, err := e.resolve(sel)
	if err != nil {
		return Step{}, err
	}
	prev := e.nodes[n].step
	e.nodes[n].step = step
	return prev, nil
}

// Insert adds step next to the node at sel. Above redirects every edge into
// the target to the new node and links the new node to the target; Below
// does the same with the target's outgoing edges.
func (e *Editor) Insert(sel Selector, step Step, side Side) (Selector, error) {
	target, err := e.resolve(sel)
	if err != nil {
		return Selector{}, err
	}
	n := e.add(step)
	e.attach(n, target, side)
	return e.selector(n), nil
}

func (e *Editor) attach(n, target int, side Side) {
	for i := range e.edges {
		switch {
		case side == Above && e.edges[i].parent == target:
			e.edges[i].parent = n
		case side == Below && e.edges[i].child == target:
			e.edges[i].child = n
		}
	}
	if side == Above {
		e.link(n, target, 0)
	} else {
		e.link(target, n, 0)
	}
}

// Remove deletes the node at sel. Its children take over its parents in its
// place, so removing a Pick drops that commit's changes from the history
// above it. sel and every copy of it become stale.
func (e *Editor) Remove(sel Selector) error {
	n, err := e.resolve(sel)
	if err != nil {
		return err
	}
	e.detach(n)
	e.nodes[n].removed = true
	e.nodes[n].gen++
	return nil
}

// Move detaches the node at sel, reconnecting its neighbours as Remove
// does, and attaches it next to target.
func (e *Editor) Move(sel, target Selector, side Side) error {
	n, err := e.resolve(sel)
	if err != nil {
		return err
	}
	t, err := e.resolve(target)
	if err != nil {
		return err
	}
	if n == t {
		return fmt.Errorf("cannot move a node %s itself", side)
	}
	e.detach(n)
	e.attach(n, t, side)
	return nil
}

// detach removes every edge of n, linking each child of n to n's parents at
// the position n held.
func (e *Editor) detach(n int) {
	parents := e.parentEdges(n)
	children := e.childEdges(n)

	kept := e.edges[:0]
	for _, ed := range e.edges {
		if ed.child != n && ed.parent != n {
			kept = append(kept, ed)
		}
	}
	e.edges = kept

	for _, c := range children {
		existing := e.parentEdges(c.child)
		has := make(map[int]bool, len(existing))
		for _, ed := range existing {
			has[ed.parent] = true
		}

		var spliced []int
		inserted := false
		for _, ed := range existing {
			if !inserted && ed.order > c.order {
				spliced, inserted = e.spliceParents(spliced, parents, has), true
			}
			spliced = append(spliced, ed.parent)
		}
		if !inserted {
			spliced = e.spliceParents(spliced, parents, has)
		}

		e.dropParentEdges(c.child)
		for i, p := range spliced {
			e.link(c.child, p, i)
		}
	}
}

func (e *Editor) spliceParents(into []int, parents []edge, has map[int]bool) []int {
	for _, p := range parents {
		if !has[p.parent] {
			has[p.parent] = true
			into = append(into, p.parent)
		}
	}
	return into
}

func (e *Editor) dropParentEdges(child int) {
	kept := e.edges[:0]
	for _, ed := range e.edges {
		if ed.child != child {
			kept = append(kept, ed)
		}
	}
	e.edges = kept
}

// parentEdges returns the edges from n to its parents, in parent order.
func (e *Editor) parentEdges(n int) []edge {
	var out []edge
	for _, ed := range e.edges {
		if ed.child == n {
			out = append(out, ed)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// childEdges returns the edges into n, ordered by edge order and then by
// child.
func (e *Editor) childEdges(n int) []edge {
	var out []edge
	for _, ed := range e.edges {
		if ed.parent == n {
			out = append(out, ed)
		}
	}
	sortChildEdges(out)
	return out
}

func sortChildEdges(out []edge) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].order != out[j].order {
			return out[i].order < out[j].order
		}
		return out[i].child < out[j].child
	})
}

// Parents returns selectors for the parents of the node at sel, in parent
// order.
func (e *Editor) Parents(sel Selector) ([]Selector, error) {
	n, err := e.resolve(sel)
	if err != nil {
		return nil, err
	}
	var out []Selector
	for _, ed := range e.parentEdges(n) {
		out = append(out, e.selector(ed.parent))
	}
	return out, nil
}

// Children returns selectors for the nodes that have the node at sel as a
// parent.
func (e *Editor) Children(sel Selector) ([]Selector, error) {
	n, err := e.resolve(sel)
	if err != nil {
		return nil, err
	}
	var out []Selector
	for _, ed := range e.childEdges(n) {
		out = append(out, e.selector(ed.child))
	}
	return out, nil
}
