package graph

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

// Graph is an arena of segments connected by edges. It is rebuilt from the
// repository for every read and never mutated after Build returns.
type Graph struct {
	segments []Segment
	edges    []Edge

	below map[SegmentID][]int
	above map[SegmentID][]int

	commits map[plumbing.Hash]location
	byRef   map[plumbing.ReferenceName]SegmentID

	tips []Tip
}

type location struct {
	segment SegmentID
	index   int
}

func newGraph() *Graph {
	return &Graph{
		below:   make(map[SegmentID][]int),
		above:   make(map[SegmentID][]int),
		commits: make(map[plumbing.Hash]location),
		byRef:   make(map[plumbing.ReferenceName]SegmentID),
	}
}

func (g *Graph) addSegment(name plumbing.ReferenceName) SegmentID {
	id := SegmentID(len(g.segments))
	g.segments = append(g.segments, Segment{ID: id, RefName: name})
	if name != "" {
		g.byRef[name] = id
	}
	return id
}

func (g *Graph) appendCommit(id SegmentID, c Commit) {
	seg := &g.segments[id]
	g.commits[c.ID] = location{segment: id, index: len(seg.Commits)}
	seg.Commits = append(seg.Commits, c)
}

func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.below[e.Upper] = append(g.below[e.Upper], idx)
	g.above[e.Base] = append(g.above[e.Base], idx)
}

// splitSegment moves the commits of id from index at downwards into a new
// anonymous segment that id then sits on. Edges touching the moved commits
// follow them.
func (g *Graph) splitSegment(id SegmentID, at int) SegmentID {
	lower := g.addSegment("")
	seg := &g.segments[id]
	moved := seg.Commits[at:]
	seg.Commits = seg.Commits[:at:at]

	low := &g.segments[lower]
	low.Integration = seg.Integration
	for i, c := range moved {
		low.Commits = append(low.Commits, c)
		g.commits[c.ID] = location{segment: lower, index: i}
	}

	for i := range g.edges {
		e := &g.edges[i]
		if e.Upper == id && e.UpperCommit >= at {
			e.Upper = lower
			e.UpperCommit -= at
		}
		if e.Base == id && e.BaseCommit >= at {
			e.Base = lower
			e.BaseCommit -= at
		}
	}
	g.below = make(map[SegmentID][]int, len(g.below))
	g.above = make(map[SegmentID][]int, len(g.above))
	for i, e := range g.edges {
		g.below[e.Upper] = append(g.below[e.Upper], i)
		g.above[e.Base] = append(g.above[e.Base], i)
	}

	g.addEdge(Edge{Base: lower, Upper: id, UpperCommit: at - 1})
	return lower
}

// entryBelow follows edges down from start and returns the commit index at
// which a path first enters target.
func (g *Graph) entryBelow(start, target SegmentID) (int, bool) {
	seen := map[SegmentID]bool{start: true}
	queue := []SegmentID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, idx := range g.below[id] {
			e := g.edges[idx]
			if e.Base == target {
				return e.BaseCommit, true
			}
			if !seen[e.Base] {
				seen[e.Base] = true
				queue = append(queue, e.Base)
			}
		}
	}
	return 0, false
}

// Len returns the number of segments
func (g *Graph) Len() int {
	return len(g.segments)
}

// Segment returns the segment with the given id
func (g *Graph) Segment(id SegmentID) *Segment {
	return &g.segments[id]
}

// Segments returns all segments in id order
func (g *Graph) Segments() []*Segment {
	out := make([]*Segment, len(g.segments))
	for i := range g.segments {
		out[i] = &g.segments[i]
	}
	return out
}

// Edges returns all edges
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Below returns the edges from id down to the segments it sits on, in
// parent order.
func (g *Graph) Below(id SegmentID) []Edge {
	return g.collect(g.below[id], func(a, b Edge) bool {
		if a.UpperCommit != b.UpperCommit {
			return a.UpperCommit < b.UpperCommit
		}
		return a.Order < b.Order
	})
}

// Above returns the edges from segments sitting on id, ordered by fork
// point from the tip down.
func (g *Graph) Above(id SegmentID) []Edge {
	return g.collect(g.above[id], func(a, b Edge) bool {
		if a.BaseCommit != b.BaseCommit {
			return a.BaseCommit < b.BaseCommit
		}
		return a.Upper < b.Upper
	})
}

func (g *Graph) collect(indices []int, less func(a, b Edge) bool) []Edge {
	out := make([]Edge, 0, len(indices))
	for _, i := range indices {
		out = append(out, g.edges[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Roots returns segments with no edge below them
func (g *Graph) Roots() []SegmentID {
	var roots []SegmentID
	for i := range g.segments {
		if len(g.below[SegmentID(i)]) == 0 {
			roots = append(roots, SegmentID(i))
		}
	}
	return roots
}

// Tops returns segments with no edge above them
func (g *Graph) Tops() []SegmentID {
	var tops []SegmentID
	for i := range g.segments {
		if len(g.above[SegmentID(i)]) == 0 {
			tops = append(tops, SegmentID(i))
		}
	}
	return tops
}

// SegmentByRef returns the segment owned by a reference
func (g *Graph) SegmentByRef(name plumbing.ReferenceName) (SegmentID, bool) {
	id, ok := g.byRef[name]
	return id, ok
}

// SegmentOf returns the segment and index holding a commit
func (g *Graph) SegmentOf(commit plumbing.Hash) (SegmentID, int, bool) {
	loc, ok := g.commits[commit]
	return loc.segment, loc.index, ok
}

// Commit returns the commit with the given id
func (g *Graph) Commit(id plumbing.Hash) (*Commit, bool) {
	loc, ok := g.commits[id]
	if !ok {
		return nil, false
	}
	return &g.segments[loc.segment].Commits[loc.index], true
}

// Contains reports whether a commit was collected
func (g *Graph) Contains(id plumbing.Hash) bool {
	_, ok := g.commits[id]
	return ok
}

// CommitCount returns the number of collected commits
func (g *Graph) CommitCount() int {
	return len(g.commits)
}

// Tips returns the tips the graph was built from
func (g *Graph) Tips() []Tip {
	return append([]Tip(nil), g.tips...)
}

// TopoOrder returns segment ids ordered so that every segment comes after
// all segments below it. ok is false when the segments form a cycle.
func (g *Graph) TopoOrder() (order []SegmentID, ok bool) {
	indegree := make([]int, len(g.segments))
	for _, e := range g.edges {
		indegree[e.Upper]++
	}

	var ready []SegmentID
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, SegmentID(i))
		}
	}

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, idx := range g.above[id] {
			upper := g.edges[idx].Upper
			indegree[upper]--
			if indegree[upper] == 0 {
				ready = append(ready, upper)
			}
		}
	}
	return order, len(order) == len(g.segments)
}
