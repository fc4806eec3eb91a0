package graph

import (
	"bytes"
	"container/heap"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"

	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/git"
)

// Repository is what the builder needs from the object and reference store.
type Repository interface {
	FindCommitNode(id plumbing.Hash) (git.CommitNode, error)
	TrackingRef(local plumbing.ReferenceName) (plumbing.ReferenceName, bool, error)
	RefTarget(name plumbing.ReferenceName) (plumbing.Hash, bool, error)
	Peel(name plumbing.ReferenceName) (plumbing.Hash, error)
	ListRefs(prefix string) (map[plumbing.ReferenceName]plumbing.Hash, error)
	HeadRef() (plumbing.ReferenceName, bool, error)
}

// Options control traversal.
type Options struct {
	// HardLimit bounds the number of collected commits. Reaching it without
	// a defined boundary is an error. Zero means unlimited.
	HardLimit int
	// CommitsLimitHint stops traversal once this many commits are
	// collected and every pending commit is reachable from all tips.
	CommitsLimitHint int
	// WithTags attaches tags pointing at collected commits.
	WithTags bool
	// WithRemotes adds the remote-tracking refs of local tips as tips.
	WithRemotes bool
	// SkipPostProcess leaves out remote association, tag attachment and the
	// unborn HEAD placeholder.
	SkipPostProcess bool
	// Integration lists trunk references; they claim commits first.
	Integration []plumbing.ReferenceName

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o Options) isIntegration(name plumbing.ReferenceName) bool {
	for _, n := range o.Integration {
		if n == name {
			return true
		}
	}
	return false
}

// TipsFromRefs resolves references into tips, skipping those that do not
// exist.
func TipsFromRefs(repo Repository, names []plumbing.ReferenceName) ([]Tip, error) {
	tips := make([]Tip, 0, len(names))
	seen := make(map[plumbing.ReferenceName]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		id, err := repo.Peel(name)
		if err != nil {
			if errors.Is(err, stackerrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		tips = append(tips, Tip{Name: name, ID: id})
	}
	return tips, nil
}

// Build walks history from tips and assembles the segment graph.
func Build(repo Repository, tips []Tip, opts Options) (*Graph, error) {
	log := opts.logger()

	if opts.WithRemotes {
		var err error
		if tips, err = withRemoteTips(repo, tips); err != nil {
			return nil, err
		}
	}

	w := newWalk(repo, tips, opts)
	if err := w.collect(); err != nil {
		return nil, err
	}

	g := newGraph()
	g.tips = append([]Tip(nil), tips...)
	w.assign(g)

	if _, ok := g.TopoOrder(); !ok {
		return nil, stackerrors.NewTraversalError(stackerrors.TraversalCycle, "", nil)
	}

	if !opts.SkipPostProcess {
		if err := postProcess(repo, g, opts); err != nil {
			return nil, err
		}
	}

	log.Debug("built commit graph",
		"tips", len(tips),
		"commits", g.CommitCount(),
		"segments", g.Len(),
		"edges", len(g.edges))
	return g, nil
}

func withRemoteTips(repo Repository, tips []Tip) ([]Tip, error) {
	out := append([]Tip(nil), tips...)
	have := make(map[plumbing.ReferenceName]bool, len(tips))
	for _, t := range tips {
		have[t.Name] = true
	}
	for _, t := range tips {
		if !t.Name.IsBranch() {
			continue
		}
		remote, ok, err := repo.TrackingRef(t.Name)
		if err != nil {
			return nil, err
		}
		if !ok || have[remote] {
			continue
		}
		id, exists, err := repo.RefTarget(remote)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		have[remote] = true
		out = append(out, Tip{Name: remote, ID: id})
	}
	return out, nil
}

// pending is a commit discovered during pass 1.
type pending struct {
	node      git.CommitNode
	key       Key
	reach     tipSet
	collected bool
}

// walk holds the state of both passes.
type walk struct {
	repo Repository
	tips []Tip
	opts Options

	commits map[plumbing.Hash]*pending
	queue   commitQueue
	tipIDs  []plumbing.Hash
	all     tipSet
}

func newWalk(repo Repository, tips []Tip, opts Options) *walk {
	w := &walk{
		repo:    repo,
		tips:    tips,
		opts:    opts,
		commits: make(map[plumbing.Hash]*pending),
	}
	seen := make(map[plumbing.Hash]int)
	for _, t := range tips {
		if _, ok := seen[t.ID]; !ok {
			seen[t.ID] = len(w.tipIDs)
			w.tipIDs = append(w.tipIDs, t.ID)
		}
	}
	w.all = newTipSet(len(w.tipIDs))
	for i := range w.tipIDs {
		w.all.set(i)
	}
	return w
}

// collect is pass 1: a youngest-first walk recording which tips reach each
// commit.
func (w *walk) collect() error {
	for i, id := range w.tipIDs {
		p, err := w.discover(id)
		if err != nil {
			return err
		}
		p.reach.set(i)
	}

	collected := 0
	for w.queue.Len() > 0 {
		if w.opts.CommitsLimitHint > 0 && collected >= w.opts.CommitsLimitHint && w.frontierConverged() {
			break
		}
		if w.opts.HardLimit > 0 && collected >= w.opts.HardLimit {
			if w.frontierConverged() {
				break
			}
			return stackerrors.NewTraversalError(stackerrors.TraversalLimitExceeded, "",
				fmt.Errorf("collected %d commits without reaching a common base", collected))
		}

		p := heap.Pop(&w.queue).(*pending)
		p.collected = true
		collected++

		for _, parentID := range p.node.Parents {
			parent, err := w.discover(parentID)
			if err != nil {
				return err
			}
			if parent.reach.union(p.reach) && parent.collected {
				w.propagate(parent)
			}
		}
	}
	return nil
}

// discover reads a commit the first time it is seen and queues it.
func (w *walk) discover(id plumbing.Hash) (*pending, error) {
	if p, ok := w.commits[id]; ok {
		return p, nil
	}
	node, err := w.repo.FindCommitNode(id)
	if err != nil {
		if errors.Is(err, stackerrors.ErrObjectNotFound) {
			return nil, stackerrors.NewTraversalError(stackerrors.TraversalMissingObject, id.String(), err)
		}
		return nil, fmt.Errorf("failed to read commit %s: %w", id, err)
	}
	p := &pending{
		node:  node,
		key:   Key{Generation: node.Generation, HasGeneration: node.HasGeneration, Time: node.CommitTime},
		reach: newTipSet(len(w.tipIDs)),
	}
	w.commits[id] = p
	heap.Push(&w.queue, p)
	return p, nil
}

// propagate pushes newly learned reachability through already collected
// ancestors. This only happens when committer times are skewed.
func (w *walk) propagate(from *pending) {
	stack := []*pending{from}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parentID := range p.node.Parents {
			parent, ok := w.commits[parentID]
			if !ok {
				continue
			}
			if parent.reach.union(p.reach) && parent.collected {
				stack = append(stack, parent)
			}
		}
	}
}

func (w *walk) frontierConverged() bool {
	for _, p := range w.queue {
		if !p.reach.equal(w.all) {
			return false
		}
	}
	return true
}

func (w *walk) isCollected(id plumbing.Hash) bool {
	p, ok := w.commits[id]
	return ok && p.collected
}

// parentRef is a non-first parent waiting for pass 2.
type parentRef struct {
	parent   *pending
	child    plumbing.Hash
	position int
}

// assign is pass 2: tips claim first-parent chains; remaining parents start
// anonymous segments.
func (w *walk) assign(g *Graph) {
	tips := w.claimOrder()
	var parents []parentRef

	for _, tip := range tips {
		if !w.isCollected(tip.ID) {
			continue
		}
		if _, _, claimed := g.SegmentOf(tip.ID); claimed {
			if c, ok := g.Commit(tip.ID); ok && tip.Name != "" {
				c.Refs = append(c.Refs, tip.Name)
			}
			continue
		}
		if _, taken := g.SegmentByRef(tip.Name); taken && tip.Name != "" {
			continue
		}
		seg := g.addSegment(tip.Name)
		g.segments[seg].Integration = w.opts.isIntegration(tip.Name)
		parents = w.claimChain(g, seg, tip.ID, parents)
	}

	// Youngest parent first, so anonymous segments nest like the history.
	for len(parents) > 0 {
		sort.SliceStable(parents, func(i, j int) bool {
			return w.before(parents[i].parent, parents[j].parent)
		})
		next := parents[0]
		parents = parents[1:]

		id := next.parent.node.ID
		if _, _, claimed := g.SegmentOf(id); !claimed {
			seg := g.addSegment("")
			parents = w.claimChain(g, seg, id, parents)
		}
		w.link(g, next.child, id, next.position)
	}
}

// claimOrder returns integration tips in configured order, then local tips
// oldest first, then remote-tracking tips oldest first.
func (w *walk) claimOrder() []Tip {
	var integration, local, remote []Tip
	for _, name := range w.opts.Integration {
		for _, t := range w.tips {
			if t.Name == name {
				integration = append(integration, t)
			}
		}
	}
	for _, t := range w.tips {
		switch {
		case w.opts.isIntegration(t.Name):
		case t.Name.IsRemote():
			remote = append(remote, t)
		default:
			local = append(local, t)
		}
	}
	w.sortOldestFirst(local)
	w.sortOldestFirst(remote)

	order := append(integration, local...)
	return append(order, remote...)
}

func (w *walk) sortOldestFirst(tips []Tip) {
	sort.SliceStable(tips, func(i, j int) bool {
		a, b := w.commits[tips[i].ID], w.commits[tips[j].ID]
		if a == nil || b == nil || a == b {
			return tips[i].Name < tips[j].Name
		}
		return w.before(b, a)
	})
}

// before orders pending commits youngest first with a stable tie-break.
func (w *walk) before(a, b *pending) bool {
	if c := Compare(a.key, b.key); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.node.ID[:], b.node.ID[:]) < 0
}

// claimChain appends the first-parent chain starting at id to seg until it
// reaches a claimed or uncollected commit. Non-first parents are returned
// for later processing.
func (w *walk) claimChain(g *Graph, seg SegmentID, id plumbing.Hash, parents []parentRef) []parentRef {
	for {
		p := w.commits[id]
		c := Commit{
			ID:      id,
			Parents: p.node.Parents,
			Key:     p.key,
		}
		for _, parentID := range p.node.Parents {
			if !w.isCollected(parentID) {
				c.Truncated = true
			}
		}
		g.appendCommit(seg, c)

		for i, parentID := range p.node.Parents {
			if i == 0 || !w.isCollected(parentID) {
				continue
			}
			parents = append(parents, parentRef{parent: w.commits[parentID], child: id, position: i})
		}

		if len(p.node.Parents) == 0 {
			return parents
		}
		first := p.node.Parents[0]
		if !w.isCollected(first) {
			return parents
		}
		if _, _, claimed := g.SegmentOf(first); claimed {
			w.link(g, id, first, 0)
			return parents
		}
		id = first
	}
}

// link records the edge between child and its parent at position. When the
// parent's segment already sits on the child's segment, as happens when a
// merged side branch forks from the same run, the child's segment is split
// where that path enters it.
func (w *walk) link(g *Graph, child, parent plumbing.Hash, position int) {
	var upper, base SegmentID
	var upperIdx, baseIdx int
	for range g.Len() + 1 {
		upper, upperIdx, _ = g.SegmentOf(child)
		base, baseIdx, _ = g.SegmentOf(parent)

		at := -1
		if base == upper {
			at = baseIdx
		} else if entry, ok := g.entryBelow(base, upper); ok {
			at = entry
		}
		// A split at or above the child cannot help; the cycle check
		// after assignment reports it.
		if at <= upperIdx {
			break
		}
		g.splitSegment(upper, at)
	}
	upper, upperIdx, _ = g.SegmentOf(child)
	base, baseIdx, _ = g.SegmentOf(parent)
	g.addEdge(Edge{
		Base:        base,
		BaseCommit:  baseIdx,
		Upper:       upper,
		UpperCommit: upperIdx,
		Order:       position,
	})
}

// commitQueue is a max-heap of pending commits, youngest first.
type commitQueue []*pending

func (q commitQueue) Len() int { return len(q) }

func (q commitQueue) Less(i, j int) bool {
	if c := Compare(q[i].key, q[j].key); c != 0 {
		return c < 0
	}
	return bytes.Compare(q[i].node.ID[:], q[j].node.ID[:]) < 0
}

func (q commitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *commitQueue) Push(x any) { *q = append(*q, x.(*pending)) }

func (q *commitQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// tipSet is a bitset over distinct tip commits.
type tipSet []uint64

func newTipSet(n int) tipSet {
	return make(tipSet, (n+63)/64)
}

func (s tipSet) set(i int) {
	s[i/64] |= 1 << (uint(i) % 64)
}

// union adds other to s and reports whether s changed.
func (s tipSet) union(other tipSet) bool {
	changed := false
	for i := range s {
		merged := s[i] | other[i]
		if merged != s[i] {
			s[i] = merged
			changed = true
		}
	}
	return changed
}

func (s tipSet) equal(other tipSet) bool {
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
