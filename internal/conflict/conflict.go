// Package conflict encodes unresolved merges as ordinary commits.
//
// A conflicted commit's tree does not hold the project files directly.
// Instead it holds reserved entries for each side of the merge, the
// auto-resolved result and a JSON list of conflicted paths, and the commit
// carries a header counting the conflicted paths. Decoding turns that layout
// back into a View so callers never inspect raw trees.
package conflict

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"stackit.dev/stackgraph/internal/git"
)

// Reserved tree entry names
const (
	OursEntry     = ".conflict-side-0"
	TheirsEntry   = ".conflict-side-1"
	BaseEntry     = ".conflict-base-0"
	ResolvedEntry = ".auto-resolution"
	FilesEntry    = ".conflict-files"
)

// Header is the commit header marking a conflicted commit; its value is the
// number of conflicted paths.
const Header = "stackgraph-conflicted"

// Sides are the trees of an unresolved merge.
type Sides struct {
	Ours     plumbing.Hash
	Theirs   plumbing.Hash
	Base     plumbing.Hash
	Resolved plumbing.Hash
	Paths    []string
}

// Conflicted is the decoded form of a conflicted commit.
type Conflicted struct {
	Sides
}

// View is a commit's tree as callers should see it: either a clean tree or
// an unresolved conflict.
type View struct {
	Tree     plumbing.Hash
	Conflict *Conflicted
}

// IsConflicted reports whether the view holds a conflict
func (v View) IsConflicted() bool {
	return v.Conflict != nil
}

// Side selects which tree of a conflicted commit to work with.
type Side int

const (
	// SideResolved is the auto-resolved tree, the default working tree
	SideResolved Side = iota
	// SideOurs is the tree the commit was being applied onto
	SideOurs
	// SideTheirs is the tree of the commit being applied
	SideTheirs
	// SideBase is the merge base
	SideBase
)

func (s Side) String() string {
	switch s {
	case SideOurs:
		return "ours"
	case SideTheirs:
		return "theirs"
	case SideBase:
		return "base"
	default:
		return "auto-resolution"
	}
}

// ParseSide converts a side name back into a Side
func ParseSide(name string) (Side, error) {
	switch name {
	case "", "auto", "auto-resolution", "resolved":
		return SideResolved, nil
	case "ours":
		return SideOurs, nil
	case "theirs":
		return SideTheirs, nil
	case "base":
		return SideBase, nil
	}
	return SideResolved, fmt.Errorf("unknown conflict side %q", name)
}

// WorkingTree returns the tree to treat as the commit's content. Clean views
// ignore side.
func WorkingTree(v View, side Side) plumbing.Hash {
	if v.Conflict == nil {
		return v.Tree
	}
	switch side {
	case SideOurs:
		return v.Conflict.Ours
	case SideTheirs:
		return v.Conflict.Theirs
	case SideBase:
		return v.Conflict.Base
	default:
		return v.Conflict.Resolved
	}
}

type filesDoc struct {
	Paths []string `json:"paths"`
}

// Encode writes the reserved tree layout for sides and returns its id.
func Encode(repo *git.Repository, sides Sides) (plumbing.Hash, error) {
	var entries []object.TreeEntry
	named := []struct {
		name string
		id   plumbing.Hash
	}{
		{OursEntry, sides.Ours},
		{TheirsEntry, sides.Theirs},
		{BaseEntry, sides.Base},
		{ResolvedEntry, sides.Resolved},
	}
	for _, n := range named {
		id, err := repo.EnsureTree(n.id)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to write %s: %w", n.name, err)
		}
		entries = append(entries, object.TreeEntry{Name: n.name, Mode: filemode.Dir, Hash: id})
	}

	paths := append([]string(nil), sides.Paths...)
	sort.Strings(paths)
	doc, err := json.MarshalIndent(filesDoc{Paths: paths}, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to marshal conflict files: %w", err)
	}
	blob, err := repo.WriteBlob(doc)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	entries = append(entries, object.TreeEntry{Name: FilesEntry, Mode: filemode.Regular, Hash: blob})

	git.SortTreeEntries(entries)
	return repo.WriteTree(&object.Tree{Entries: entries})
}

// Mark sets the conflict header on a commit about to be written
func Mark(commit *object.Commit, paths int) {
	Unmark(commit)
	commit.ExtraHeaders = append(commit.ExtraHeaders, object.ExtraHeader{
		Key:   Header,
		Value: strconv.Itoa(paths),
	})
}

// Unmark removes the conflict header from a commit about to be written
func Unmark(commit *object.Commit) {
	kept := commit.ExtraHeaders[:0]
	for _, h := range commit.ExtraHeaders {
		if h.Key != Header {
			kept = append(kept, h)
		}
	}
	commit.ExtraHeaders = kept
}

// IsConflicted reports whether a commit carries the conflict header
func IsConflicted(commit *object.Commit) bool {
	for _, h := range commit.ExtraHeaders {
		if h.Key == Header {
			return true
		}
	}
	return false
}

// Decode returns the view of a commit, reading the reserved layout when the
// commit is marked as conflicted.
func Decode(repo *git.Repository, commit *object.Commit) (View, error) {
	if !IsConflicted(commit) {
		return View{Tree: commit.TreeHash}, nil
	}
	sides, err := DecodeTree(repo, commit.TreeHash)
	if err != nil {
		return View{}, fmt.Errorf("commit %s: %w", commit.Hash, err)
	}
	return View{Tree: commit.TreeHash, Conflict: &Conflicted{Sides: sides}}, nil
}

// DecodeTree reads the reserved layout of a conflict tree
func DecodeTree(repo *git.Repository, id plumbing.Hash) (Sides, error) {
	tree, err := repo.FindTree(id)
	if err != nil {
		return Sides{}, err
	}

	found := make(map[string]object.TreeEntry, len(tree.Entries))
	for _, e := range tree.Entries {
		found[e.Name] = e
	}
	get := func(name string) (plumbing.Hash, error) {
		e, ok := found[name]
		if !ok {
			return plumbing.ZeroHash, fmt.Errorf("conflict tree %s has no %s entry", id, name)
		}
		return e.Hash, nil
	}

	var sides Sides
	if sides.Ours, err = get(OursEntry); err != nil {
		return Sides{}, err
	}
	if sides.Theirs, err = get(TheirsEntry); err != nil {
		return Sides{}, err
	}
	if sides.Base, err = get(BaseEntry); err != nil {
		return Sides{}, err
	}
	if sides.Resolved, err = get(ResolvedEntry); err != nil {
		return Sides{}, err
	}
	filesID, err := get(FilesEntry)
	if err != nil {
		return Sides{}, err
	}
	content, err := repo.ReadBlob(filesID)
	if err != nil {
		return Sides{}, err
	}
	var doc filesDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return Sides{}, fmt.Errorf("failed to parse %s: %w", FilesEntry, err)
	}
	sides.Paths = doc.Paths
	return sides, nil
}

// ReadView decodes the commit with the given id
func ReadView(repo *git.Repository, id plumbing.Hash) (View, error) {
	commit, err := repo.FindCommit(id)
	if err != nil {
		return View{}, err
	}
	return Decode(repo, commit)
}
