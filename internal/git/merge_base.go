package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// MergeBase returns the best common ancestor of two commits, or the zero
// hash when the histories are unrelated.
func (r *Repository) MergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	if a == b {
		return a, nil
	}
	ca, err := r.FindCommit(a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cb, err := r.FindCommit(b)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// Synchronize go-git operations to prevent concurrent packfile access
	r.mu.Lock()
	defer r.mu.Unlock()

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to find merge base: %w", err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, nil
	}
	return bases[0].Hash, nil
}

// IsAncestor checks if ancestor is reachable from descendant
func (r *Repository) IsAncestor(ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	ca, err := r.FindCommit(ancestor)
	if err != nil {
		return false, err
	}
	cd, err := r.FindCommit(descendant)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := ca.IsAncestor(cd)
	if err != nil {
		return false, fmt.Errorf("failed to check ancestry: %w", err)
	}
	return ok, nil
}
