package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/git"
)

// DiskRepo is a Repo backed by a temporary directory with a worktree.
type DiskRepo struct {
	*Repo
	Dir string
}

// NewDiskRepo initializes a repository in a temporary directory with HEAD
// on main.
func NewDiskRepo(t testing.TB) *DiskRepo {
	t.Helper()

	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	repo, err := git.OpenRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.SetHead(plumbing.NewBranchReferenceName("main")))
	t.Cleanup(func() { _ = repo.Close() })
	return &DiskRepo{Repo: &Repo{T: t, Git: repo}, Dir: dir}
}

// Checkout points HEAD at branch and makes the worktree and the index match
// the branch's files. Untracked files are left alone.
func (r *DiskRepo) Checkout(branch string) {
	r.T.Helper()

	require.NoError(r.T, r.Git.SetHead(plumbing.NewBranchReferenceName(branch)))
	newEntries := r.headEntries()

	idx, err := r.Git.ReadIndex()
	require.NoError(r.T, err)
	oldEntries := make(map[string]git.Entry, len(idx.Entries))
	for _, e := range idx.Entries {
		oldEntries[e.Name] = git.Entry{Mode: e.Mode, Hash: e.Hash}
	}

	for path := range oldEntries {
		if _, ok := newEntries[path]; !ok {
			_ = os.Remove(filepath.Join(r.Dir, path))
		}
	}
	for path, entry := range newEntries {
		content, err := r.Git.ReadBlob(entry.Hash)
		require.NoError(r.T, err)
		r.WriteFile(path, string(content))
	}

	git.ApplyIndexEdits(idx, git.IndexEditsForTrees(oldEntries, newEntries))
	require.NoError(r.T, r.Git.WriteIndex(idx))
}

func (r *DiskRepo) headEntries() map[string]git.Entry {
	r.T.Helper()

	head, _, err := r.Git.HeadRef()
	require.NoError(r.T, err)
	id, ok, err := r.Git.RefTarget(head)
	require.NoError(r.T, err)
	if !ok {
		return map[string]git.Entry{}
	}
	tree, err := r.Git.CommitTree(id)
	require.NoError(r.T, err)
	entries, err := r.Git.FlattenTree(tree)
	require.NoError(r.T, err)
	return entries
}

// WriteFile writes content to path in the worktree, creating directories
func (r *DiskRepo) WriteFile(path, content string) {
	r.T.Helper()

	full := filepath.Join(r.Dir, path)
	require.NoError(r.T, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.T, os.WriteFile(full, []byte(content), 0o644))
}

// RemoveFile deletes path from the worktree
func (r *DiskRepo) RemoveFile(path string) {
	r.T.Helper()
	require.NoError(r.T, os.Remove(filepath.Join(r.Dir, path)))
}
