package workspace

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/graph"
)

// Flags describe where a commit lives relative to its remote.
type Flags uint8

const (
	// LocalOnly commits are not reachable from the remote-tracking ref
	LocalOnly Flags = 1 << iota
	// RemoteOnly commits exist only on the remote-tracking ref
	RemoteOnly
	// Shared commits are reachable from both the local and remote ref
	Shared
	// Conflicted commits carry an unresolved conflict
	Conflicted
)

// Has reports whether all bits of f2 are set in f
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	var parts []byte
	add := func(s string) {
		if len(parts) > 0 {
			parts = append(parts, '|')
		}
		parts = append(parts, s...)
	}
	if f.Has(LocalOnly) {
		add("local")
	}
	if f.Has(RemoteOnly) {
		add("remote")
	}
	if f.Has(Shared) {
		add("shared")
	}
	if f.Has(Conflicted) {
		add("conflicted")
	}
	return string(parts)
}

// CommitReader loads commit objects so conflicted commits can be flagged.
type CommitReader interface {
	FindCommit(id plumbing.Hash) (*object.Commit, error)
}

// Options control projection.
type Options struct {
	// WorkspaceRef names the synthetic workspace commit whose parents are the
	// stacks, e.g. refs/heads/stackgraph/workspace.
	WorkspaceRef plumbing.ReferenceName
	// Commits is used to detect conflicted commits; nil skips detection.
	Commits CommitReader
}

// StackCommit is a commit as presented in a stack.
type StackCommit struct {
	ID    plumbing.Hash
	Flags Flags
}

// StackSegment is one segment of a stack with its flagged commits.
type StackSegment struct {
	ID        graph.SegmentID
	RefName   plumbing.ReferenceName
	RemoteRef plumbing.ReferenceName
	Commits   []StackCommit
	// RemoteCommits are commits of RemoteRef not present locally.
	RemoteCommits []StackCommit
}

// Name returns the short reference name or "anonymous"
func (s StackSegment) Name() string {
	if s.RefName == "" {
		return "anonymous"
	}
	return s.RefName.Short()
}

// Stack is a tip-to-base chain of segments.
type Stack struct {
	Segments []StackSegment
	// Tip is the newest commit of the top segment.
	Tip plumbing.Hash
	// Base is the integration commit the stack forks from, zero when the
	// stack has its own root.
	Base plumbing.Hash
	// InWorkspace is set when the stack is reachable from the workspace tip.
	InWorkspace bool
}

// Name returns the name of the top segment
func (s Stack) Name() string {
	if len(s.Segments) == 0 {
		return ""
	}
	return s.Segments[0].Name()
}

// Workspace is the projection of a graph.
type Workspace struct {
	Stacks []Stack
	// Target is the integration segment stacks sit on, if any.
	Target    *graph.SegmentID
	Workspace *graph.SegmentID
}

// Project turns a graph into ordered stacks. Stacks that are parents of the
// workspace commit come first, in parent order; the remaining local stacks
// follow, most recent first.
func Project(g *graph.Graph, opts Options) (*Workspace, error) {
	p := &projector{g: g, opts: opts, integration: integrationSet(g)}
	ws := &Workspace{}

	for id := range p.integration {
		if g.Segment(id).Integration && (ws.Target == nil || id < *ws.Target) {
			target := id
			ws.Target = &target
		}
	}

	seen := make(map[graph.SegmentID]bool)
	if opts.WorkspaceRef != "" {
		if wsID, ok := g.SegmentByRef(opts.WorkspaceRef); ok {
			ws.Workspace = &wsID
			seen[wsID] = true
			for _, e := range g.Below(wsID) {
				if e.UpperCommit != 0 || p.integration[e.Base] || seen[e.Base] {
					continue
				}
				seen[e.Base] = true
				stack, err := p.stack(e.Base)
				if err != nil {
					return nil, err
				}
				stack.InWorkspace = true
				ws.Stacks = append(ws.Stacks, stack)
			}
		}
	}

	var rest []graph.SegmentID
	for _, id := range g.Tops() {
		seg := g.Segment(id)
		if seen[id] || p.integration[id] || seg.IsRemote() || seg.IsAnonymous() || seg.IsEmpty() {
			continue
		}
		rest = append(rest, id)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := g.Segment(rest[i]), g.Segment(rest[j])
		if c := graph.Compare(a.Commits[0].Key, b.Commits[0].Key); c != 0 {
			return c < 0
		}
		return a.RefName < b.RefName
	})
	for _, id := range rest {
		stack, err := p.stack(id)
		if err != nil {
			return nil, err
		}
		ws.Stacks = append(ws.Stacks, stack)
	}
	return ws, nil
}

type projector struct {
	g           *graph.Graph
	opts        Options
	integration map[graph.SegmentID]bool
}

// integrationSet returns integration segments and everything below them.
func integrationSet(g *graph.Graph) map[graph.SegmentID]bool {
	set := make(map[graph.SegmentID]bool)
	var queue []graph.SegmentID
	for _, seg := range g.Segments() {
		if seg.Integration {
			set[seg.ID] = true
			queue = append(queue, seg.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.Below(id) {
			if !set[e.Base] {
				set[e.Base] = true
				queue = append(queue, e.Base)
			}
		}
	}
	return set
}

// stack follows first-parent edges down from top until it reaches
// integration history or a root.
func (p *projector) stack(top graph.SegmentID) (Stack, error) {
	var stack Stack
	visited := make(map[graph.SegmentID]bool)
	for id := top; !visited[id]; {
		visited[id] = true
		seg := p.g.Segment(id)

		entry, err := p.segment(seg)
		if err != nil {
			return Stack{}, err
		}
		stack.Segments = append(stack.Segments, entry)

		next, ok := p.firstParentEdge(seg)
		if !ok {
			break
		}
		if p.integration[next.Base] {
			base := p.g.Segment(next.Base)
			if next.BaseCommit >= 0 && next.BaseCommit < len(base.Commits) {
				stack.Base = base.Commits[next.BaseCommit].ID
			}
			break
		}
		id = next.Base
	}
	stack.Tip = p.g.Segment(top).Tip()
	return stack, nil
}

func (p *projector) firstParentEdge(seg *graph.Segment) (graph.Edge, bool) {
	last := len(seg.Commits) - 1
	for _, e := range p.g.Below(seg.ID) {
		if e.UpperCommit == last && e.Order == 0 {
			return e, true
		}
	}
	return graph.Edge{}, false
}

func (p *projector) segment(seg *graph.Segment) (StackSegment, error) {
	out := StackSegment{ID: seg.ID, RefName: seg.RefName, RemoteRef: seg.RemoteRef}

	var remoteReach map[plumbing.Hash]bool
	if seg.RemoteRef != "" {
		if tip, ok := p.refTip(seg.RemoteRef); ok {
			remoteReach = p.reachable(tip)
		}
	}

	for _, c := range seg.Commits {
		flags := LocalOnly
		if remoteReach[c.ID] {
			flags = Shared
		}
		conflicted, err := p.conflicted(c.ID)
		if err != nil {
			return StackSegment{}, err
		}
		if conflicted {
			flags |= Conflicted
		}
		out.Commits = append(out.Commits, StackCommit{ID: c.ID, Flags: flags})
	}

	if remoteID, ok := p.g.SegmentByRef(seg.RemoteRef); ok && seg.RemoteRef != "" {
		for _, c := range p.g.Segment(remoteID).Commits {
			out.RemoteCommits = append(out.RemoteCommits, StackCommit{ID: c.ID, Flags: RemoteOnly})
		}
	}
	return out, nil
}

// refTip finds the commit a reference points at, whether it owns a segment
// or decorates a commit.
func (p *projector) refTip(name plumbing.ReferenceName) (plumbing.Hash, bool) {
	if id, ok := p.g.SegmentByRef(name); ok {
		tip := p.g.Segment(id).Tip()
		return tip, !tip.IsZero()
	}
	for _, seg := range p.g.Segments() {
		for _, c := range seg.Commits {
			for _, r := range c.Refs {
				if r == name {
					return c.ID, true
				}
			}
		}
	}
	return plumbing.ZeroHash, false
}

// reachable collects the commits in the graph reachable from id.
func (p *projector) reachable(id plumbing.Hash) map[plumbing.Hash]bool {
	seen := make(map[plumbing.Hash]bool)
	stack := []plumbing.Hash{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		c, ok := p.g.Commit(cur)
		if !ok {
			continue
		}
		seen[cur] = true
		stack = append(stack, c.Parents...)
	}
	return seen
}

func (p *projector) conflicted(id plumbing.Hash) (bool, error) {
	if p.opts.Commits == nil {
		return false, nil
	}
	commit, err := p.opts.Commits.FindCommit(id)
	if err != nil {
		return false, err
	}
	return conflict.IsConflicted(commit), nil
}
