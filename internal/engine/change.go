package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"stackit.dev/stackgraph/internal/git"
)

// ChangeKind is what a Change does to its path.
type ChangeKind int

const (
	// Add creates a path, or replaces an existing file
	Add ChangeKind = iota
	// Modify replaces the content of an existing path
	Modify
	// Delete removes an existing path
	Delete
	// Rename moves PreviousPath to Path, optionally with new content
	Rename
)

func (k ChangeKind) String() string {
	switch k {
	case Add:
		return "add"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	case Rename:
		return "rename"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is one path-scoped edit relative to the base tree. New content
// comes from Blob when set, otherwise from Content.
type Change struct {
	Path         string
	PreviousPath string
	Kind         ChangeKind
	Blob         plumbing.Hash
	Content      []byte
	// Mode defaults to the existing mode, or a regular file for new paths.
	Mode filemode.FileMode
	// Hunks restricts a Modify to these hunks of the diff between the base
	// content and the new content. Empty applies the whole change.
	Hunks []git.Hunk
}

func (c Change) hasContent() bool {
	return !c.Blob.IsZero() || c.Content != nil
}

// RejectionReason explains why a change was left out of a commit.
type RejectionReason int

const (
	// PathTypeConflict means the path collides with a file or directory of
	// a different type
	PathTypeConflict RejectionReason = iota + 1
	// MissingPath means the change needs a path the base tree lacks
	MissingPath
	// HunkMismatch means a selected hunk is not part of the change's diff
	HunkMismatch
	// CherryPickConflict means the change conflicts with the destination
	CherryPickConflict
)

func (r RejectionReason) String() string {
	switch r {
	case PathTypeConflict:
		return "path type conflict"
	case MissingPath:
		return "missing path"
	case HunkMismatch:
		return "hunk mismatch"
	case CherryPickConflict:
		return "cherry-pick conflict"
	}
	return fmt.Sprintf("RejectionReason(%d)", int(r))
}

// RejectedChange is a change that did not make it into the commit.
type RejectedChange struct {
	Path   string
	Reason RejectionReason
}

// applier applies changes to a flattened tree, one at a time. A rejected
// change leaves the tree untouched.
type applier struct {
	repo    *git.Repository
	entries map[string]git.Entry
}

func (a *applier) apply(c Change) (RejectionReason, error) {
	if c.Path == "" {
		return 0, errors.New("change without path")
	}
	existing, exists := a.entries[c.Path]

	switch c.Kind {
	case Add:
		if exists && existing.Mode == filemode.Submodule && c.Mode != filemode.Submodule {
			return PathTypeConflict, nil
		}
		if a.collides(c.Path) {
			return PathTypeConflict, nil
		}
		entry, err := a.entry(c, git.Entry{Mode: filemode.Regular})
		if err != nil {
			return 0, err
		}
		a.entries[c.Path] = entry

	case Modify:
		if !exists {
			return MissingPath, nil
		}
		if existing.Mode == filemode.Submodule && c.Mode != filemode.Submodule {
			return PathTypeConflict, nil
		}
		entry, err := a.entry(c, existing)
		if err != nil {
			return 0, err
		}
		if len(c.Hunks) > 0 {
			reason, err := a.selectHunks(existing, &entry, c.Hunks)
			if err != nil || reason != 0 {
				return reason, err
			}
		}
		a.entries[c.Path] = entry

	case Delete:
		if !exists {
			return MissingPath, nil
		}
		delete(a.entries, c.Path)

	case Rename:
		prev, ok := a.entries[c.PreviousPath]
		if c.PreviousPath == "" || !ok {
			return MissingPath, nil
		}
		delete(a.entries, c.PreviousPath)
		if a.collides(c.Path) {
			a.entries[c.PreviousPath] = prev
			return PathTypeConflict, nil
		}
		entry := prev
		if c.hasContent() || c.Mode != 0 {
			var err error
			if entry, err = a.entry(c, prev); err != nil {
				return 0, err
			}
		}
		a.entries[c.Path] = entry

	default:
		return 0, fmt.Errorf("%s: unknown change kind %d", c.Path, c.Kind)
	}
	return 0, nil
}

// collides reports whether path needs a directory where a file is, or a file
// where a directory is.
func (a *applier) collides(path string) bool {
	for i := strings.IndexByte(path, '/'); i >= 0; i = nextSlash(path, i) {
		if _, ok := a.entries[path[:i]]; ok {
			return true
		}
	}
	prefix := path + "/"
	for p := range a.entries {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func nextSlash(path string, after int) int {
	j := strings.IndexByte(path[after+1:], '/')
	if j < 0 {
		return -1
	}
	return after + 1 + j
}

// entry builds the tree entry a change writes, defaulting to fallback.
func (a *applier) entry(c Change, fallback git.Entry) (git.Entry, error) {
	entry := fallback
	if c.Mode != 0 {
		entry.Mode = c.Mode
	}
	switch {
	case !c.Blob.IsZero():
		entry.Hash = c.Blob
	case c.Content != nil:
		id, err := a.repo.WriteBlob(c.Content)
		if err != nil {
			return git.Entry{}, err
		}
		entry.Hash = id
	case c.Kind == Add:
		id, err := a.repo.WriteBlob(nil)
		if err != nil {
			return git.Entry{}, err
		}
		entry.Hash = id
	}
	return entry, nil
}

// selectHunks narrows entry to the selected hunks of the existing→entry diff.
func (a *applier) selectHunks(existing git.Entry, entry *git.Entry, hunks []git.Hunk) (RejectionReason, error) {
	oldContent, err := a.repo.ReadBlob(existing.Hash)
	if err != nil {
		return 0, err
	}
	newContent, err := a.repo.ReadBlob(entry.Hash)
	if err != nil {
		return 0, err
	}
	selected, err := git.ApplyHunks(oldContent, newContent, hunks)
	if errors.Is(err, git.ErrHunkMismatch) {
		return HunkMismatch, nil
	}
	if err != nil {
		return 0, err
	}
	if entry.Hash, err = a.repo.WriteBlob(selected); err != nil {
		return 0, err
	}
	return 0, nil
}

// touches reports whether the change writes or removes path.
func (c Change) touches(path string) bool {
	if c.Path == path || (c.Kind == Rename && c.PreviousPath == path) {
		return true
	}
	return strings.HasPrefix(path, c.Path+"/") || strings.HasPrefix(c.Path, path+"/")
}
