package rebase

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/git"
)

// Status is the result state of a rebase.
type Status int

const (
	// Success means every node was replayed cleanly
	Success Status = iota
	// PartiallyConflicted means some picks produced conflicted commits
	PartiallyConflicted
)

func (s Status) String() string {
	if s == PartiallyConflicted {
		return "partially conflicted"
	}
	return "success"
}

// ConflictedNode is a pick that produced a conflicted commit.
type ConflictedNode struct {
	Original plumbing.Hash
	Commit   plumbing.Hash
	Paths    []string
}

// RefUpdate is one reference change of a materialization.
type RefUpdate struct {
	Name plumbing.ReferenceName
	Old  plumbing.Hash
	New  plumbing.Hash
}

// Outcome is the result of Editor.Rebase. Nothing is visible in the
// repository until Materialize is called.
type Outcome struct {
	Status Status
	// Mapping maps original commits to their rewritten ids. Commits that
	// kept their id are absent.
	Mapping map[plumbing.Hash]plumbing.Hash
	// Conflicted lists picks that produced conflicted commits, in
	// processing order.
	Conflicted []ConflictedNode
	// Tips maps every anchored reference to its new target.
	Tips map[plumbing.ReferenceName]plumbing.Hash

	repo     *git.Repository
	original map[plumbing.ReferenceName]plumbing.Hash
	head     plumbing.ReferenceName
}

// Rewritten returns the id id was rewritten to, or id itself
func (o *Outcome) Rewritten(id plumbing.Hash) plumbing.Hash {
	if n, ok := o.Mapping[id]; ok {
		return n
	}
	return id
}

// Updates returns the reference changes Materialize would apply, sorted by
// name. References that already point at their new target are left out.
func (o *Outcome) Updates() []RefUpdate {
	var updates []RefUpdate
	for name, id := range o.Tips {
		old := o.original[name]
		if old == id {
			continue
		}
		updates = append(updates, RefUpdate{Name: name, Old: old, New: id})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Name < updates[j].Name })
	return updates
}
