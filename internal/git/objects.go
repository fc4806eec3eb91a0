package git

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	stackerrors "stackit.dev/stackgraph/internal/errors"
)

// FindCommit reads a commit object by id
func (r *Repository) FindCommit(id plumbing.Hash) (*object.Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, err := r.repo.CommitObject(id)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, stackerrors.NewObjectNotFoundError(id.String(), "commit")
		}
		return nil, fmt.Errorf("failed to read commit %s: %w", id, err)
	}
	return commit, nil
}

// FindTree reads a tree object by id. The zero hash is the empty tree.
func (r *Repository) FindTree(id plumbing.Hash) (*object.Tree, error) {
	if id.IsZero() || id == EmptyTreeID {
		return &object.Tree{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tree, err := r.repo.TreeObject(id)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, stackerrors.NewObjectNotFoundError(id.String(), "tree")
		}
		return nil, fmt.Errorf("failed to read tree %s: %w", id, err)
	}
	return tree, nil
}

// ReadBlob returns the content of a blob
func (r *Repository) ReadBlob(id plumbing.Hash) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	blob, err := r.repo.BlobObject(id)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, stackerrors.NewObjectNotFoundError(id.String(), "blob")
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return content, nil
}

// WriteBlob stores content as a blob object
func (r *Repository) WriteBlob(content []byte) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get object writer: %w", err)
	}
	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to close blob writer: %w", err)
	}

	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// WriteTree stores a tree object. Entries must already be in git order.
func (r *Repository) WriteTree(tree *object.Tree) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// WriteCommit stores a commit object and returns its id
func (r *Repository) WriteCommit(commit *object.Commit) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store commit: %w", err)
	}
	return hash, nil
}

// ResolveRevision resolves a revision such as a branch name, an abbreviated
// id or HEAD~2 to a commit id.
func (r *Repository) ResolveRevision(rev string) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("%s: %w", rev, stackerrors.ErrNotFound)
		}
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return *id, nil
}
