package git

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage"

	stackerrors "stackit.dev/stackgraph/internal/errors"
)

// Peel resolves a reference, following symbolic refs and annotated tags, to
// the commit it points at.
func (r *Repository) Peel(name plumbing.ReferenceName) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Reference(name, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("reference %s: %w", name, stackerrors.ErrNotFound)
		}
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return r.peelTagLocked(ref.Hash())
}

// peelTagLocked follows annotated tags down to a non-tag object.
func (r *Repository) peelTagLocked(hash plumbing.Hash) (plumbing.Hash, error) {
	for {
		tag, err := r.repo.TagObject(hash)
		if err != nil {
			// Not a tag object; nothing left to peel.
			return hash, nil
		}
		if tag.TargetType != plumbing.CommitObject && tag.TargetType != plumbing.TagObject {
			return plumbing.ZeroHash, fmt.Errorf("tag %s does not point at a commit", hash)
		}
		hash = tag.Target
	}
}

// RefTarget returns the direct target of a reference without following
// symbolic refs. ok is false when the reference does not exist.
func (r *Repository) RefTarget(name plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Storer.Reference(name)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if ref.Type() != plumbing.HashReference {
		return plumbing.ZeroHash, false, fmt.Errorf("reference %s is symbolic", name)
	}
	return ref.Hash(), true, nil
}

// UpdateRef sets name to newID only if it currently points at oldExpected.
// A zero oldExpected means the reference must not exist yet.
func (r *Repository) UpdateRef(name plumbing.ReferenceName, oldExpected, newID plumbing.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.repo.Storer.Reference(name)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	actual := plumbing.ZeroHash
	if current != nil {
		actual = current.Hash()
	}
	if actual != oldExpected {
		return stackerrors.NewStaleRefError(name.String(), shortOrNone(oldExpected), shortOrNone(actual))
	}

	newRef := plumbing.NewHashReference(name, newID)
	if err := r.repo.Storer.CheckAndSetReference(newRef, current); err != nil {
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			return stackerrors.NewStaleRefError(name.String(), shortOrNone(oldExpected), "changed concurrently")
		}
		return fmt.Errorf("failed to update %s: %w", name, err)
	}
	return nil
}

// DeleteRef removes a reference if it still points at oldExpected.
func (r *Repository) DeleteRef(name plumbing.ReferenceName, oldExpected plumbing.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.repo.Storer.Reference(name)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			if oldExpected.IsZero() {
				return nil
			}
			return stackerrors.NewStaleRefError(name.String(), shortOrNone(oldExpected), shortOrNone(plumbing.ZeroHash))
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if current.Hash() != oldExpected {
		return stackerrors.NewStaleRefError(name.String(), shortOrNone(oldExpected), shortOrNone(current.Hash()))
	}
	if err := r.repo.Storer.RemoveReference(name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// ListRefs returns every hash reference under prefix with its target
func (r *Repository) ListRefs(prefix string) (map[plumbing.ReferenceName]plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	iter, err := r.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer iter.Close()

	refs := make(map[plumbing.ReferenceName]plumbing.Hash)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if !strings.HasPrefix(ref.Name().String(), prefix) {
			return nil
		}
		refs[ref.Name()] = ref.Hash()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return refs, nil
}

// HeadRef returns the branch HEAD points at. unborn is true when that branch
// has no commit yet; detached HEAD returns an empty name.
func (r *Repository) HeadRef() (name plumbing.ReferenceName, unborn bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", false, nil
	}

	target := head.Target()
	if _, err := r.repo.Storer.Reference(target); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return target, true, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return target, false, nil
}

// SetHead points HEAD at a branch
func (r *Repository) SetHead(branch plumbing.ReferenceName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)); err != nil {
		return fmt.Errorf("failed to set HEAD: %w", err)
	}
	return nil
}

func sortRefNames(names []plumbing.ReferenceName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}

func shortOrNone(h plumbing.Hash) string {
	if h.IsZero() {
		return "<none>"
	}
	return h.String()[:7]
}
