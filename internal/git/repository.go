package git

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	commitgraphfmt "github.com/go-git/go-git/v5/plumbing/format/commitgraph/v2"
	"github.com/go-git/go-git/v5/plumbing/object/commitgraph"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Repository wraps a go-git repository and is the only way the core reads or
// writes objects and references.
type Repository struct {
	repo *git.Repository
	path string

	// mu serializes go-git access; packfile readers are not safe for
	// concurrent use.
	mu sync.Mutex

	nodes      commitgraph.CommitNodeIndex
	graphIndex commitgraphfmt.Index
}

// OpenRepository opens a git repository at the given path
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	r := &Repository{repo: repo, path: absPath}
	r.loadCommitGraph()
	return r, nil
}

// NewMemoryRepository creates an empty repository backed by memory storage.
func NewMemoryRepository() (*Repository, error) {
	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init memory repository: %w", err)
	}
	r := &Repository{repo: repo}
	r.loadCommitGraph()
	return r, nil
}

// loadCommitGraph wires the commit-graph file when the storage has one, so
// that generation numbers are available to the graph builder.
func (r *Repository) loadCommitGraph() {
	var fs billy.Filesystem
	if st, ok := r.repo.Storer.(*filesystem.Storage); ok {
		fs = st.Filesystem()
	}
	if fs != nil {
		if idx, err := commitgraphfmt.OpenChainOrFileIndex(fs); err == nil {
			r.graphIndex = idx
			r.nodes = commitgraph.NewGraphCommitNodeIndex(idx, r.repo.Storer)
			return
		}
	}
	r.nodes = commitgraph.NewObjectCommitNodeIndex(r.repo.Storer)
}

// Close releases the commit-graph file handles, if any.
func (r *Repository) Close() error {
	if r.graphIndex != nil {
		return r.graphIndex.Close()
	}
	return nil
}

// Root returns the absolute path the repository was opened from, or "" for
// in-memory repositories.
func (r *Repository) Root() string {
	return r.path
}

// GoGit exposes the underlying go-git repository.
func (r *Repository) GoGit() *git.Repository {
	return r.repo
}

// LocalBranches returns all local branch reference names
func (r *Repository) LocalBranches() ([]plumbing.ReferenceName, error) {
	refs, err := r.ListRefs("refs/heads/")
	if err != nil {
		return nil, err
	}
	names := make([]plumbing.ReferenceName, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sortRefNames(names)
	return names, nil
}
