package graph

import (
	"github.com/go-git/go-git/v5/plumbing"
)

// SegmentID addresses a segment in a Graph. IDs are dense and stable for the
// lifetime of the graph.
type SegmentID int

// NoCommit marks an edge endpoint that does not refer to a commit, which
// only happens for the empty root placeholder.
const NoCommit = -1

// Commit is one commit inside a segment.
type Commit struct {
	ID      plumbing.Hash
	Parents []plumbing.Hash
	Key     Key
	// Refs are references pointing at this commit that do not own a
	// segment: tags, and branches whose commit was claimed first by another
	// reference.
	Refs []plumbing.ReferenceName
	// Truncated means traversal stopped here; parents were not collected.
	Truncated bool
}

// Segment is a maximal run of commits along one reference, tip first.
type Segment struct {
	ID SegmentID
	// RefName owns the segment; empty for anonymous segments.
	RefName plumbing.ReferenceName
	// RemoteRef is the remote-tracking reference of RefName, if any.
	RemoteRef plumbing.ReferenceName
	// Integration is set for segments owned by a configured trunk.
	Integration bool
	Commits     []Commit
}

// IsRemote reports whether the segment is owned by a remote-tracking ref
func (s *Segment) IsRemote() bool {
	return s.RefName.IsRemote()
}

// IsAnonymous reports whether no reference owns the segment
func (s *Segment) IsAnonymous() bool {
	return s.RefName == ""
}

// IsEmpty reports whether the segment is the empty root placeholder
func (s *Segment) IsEmpty() bool {
	return len(s.Commits) == 0
}

// Tip returns the first commit id of the segment, or the zero hash when the
// segment is empty.
func (s *Segment) Tip() plumbing.Hash {
	if len(s.Commits) == 0 {
		return plumbing.ZeroHash
	}
	return s.Commits[0].ID
}

// Name returns a display name for the segment
func (s *Segment) Name() string {
	if s.RefName == "" {
		return "anonymous"
	}
	return s.RefName.Short()
}

// Edge connects Upper to Base: the commit at UpperCommit in Upper has the
// commit at BaseCommit in Base as its parent number Order.
type Edge struct {
	Base        SegmentID
	BaseCommit  int
	Upper       SegmentID
	UpperCommit int
	Order       int
}

// Tip is a starting point of traversal.
type Tip struct {
	Name plumbing.ReferenceName
	ID   plumbing.Hash
}
