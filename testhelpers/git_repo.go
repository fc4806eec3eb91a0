package testhelpers

import (
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/git"
)

// Epoch is the committer time of the first commit created by a Repo. Every
// following commit is one minute later, so ids are stable across runs.
var Epoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// Repo is an in-memory git repository for tests.
type Repo struct {
	T   testing.TB
	Git *git.Repository

	tick int
}

// NewRepo creates an empty in-memory repository with HEAD on main.
func NewRepo(t testing.TB) *Repo {
	t.Helper()

	repo, err := git.NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, repo.SetHead(plumbing.NewBranchReferenceName("main")))
	return &Repo{T: t, Git: repo}
}

// Signature returns the next fixed signature
func (r *Repo) Signature() object.Signature {
	when := Epoch.Add(time.Duration(r.tick) * time.Minute)
	r.tick++
	return object.Signature{Name: "Test User", Email: "test@example.com", When: when}
}

// Tree writes a tree holding files (path → content)
func (r *Repo) Tree(files map[string]string) plumbing.Hash {
	r.T.Helper()

	entries := make(map[string]git.Entry, len(files))
	for path, content := range files {
		blob, err := r.Git.WriteBlob([]byte(content))
		require.NoError(r.T, err)
		entries[path] = git.Entry{Mode: filemode.Regular, Hash: blob}
	}
	tree, err := r.Git.BuildTree(entries)
	require.NoError(r.T, err)
	return tree
}

// Commit writes a commit with the given files and parents
func (r *Repo) Commit(message string, files map[string]string, parents ...plumbing.Hash) plumbing.Hash {
	r.T.Helper()
	return r.CommitTree(message, r.Tree(files), parents...)
}

// CommitTree writes a commit for an existing tree
func (r *Repo) CommitTree(message string, tree plumbing.Hash, parents ...plumbing.Hash) plumbing.Hash {
	r.T.Helper()

	sig := r.Signature()
	id, err := r.Git.WriteCommit(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	})
	require.NoError(r.T, err)
	return id
}

// Change commits on top of parent, overlaying files onto the parent's
// content. A nil value deletes the path.
func (r *Repo) Change(message string, parent plumbing.Hash, files map[string]*string) plumbing.Hash {
	r.T.Helper()

	content := r.Files(parent)
	for path, value := range files {
		if value == nil {
			delete(content, path)
			continue
		}
		content[path] = *value
	}
	return r.Commit(message, content, parent)
}

// Branch points refs/heads/<name> at id
func (r *Repo) Branch(name string, id plumbing.Hash) {
	r.T.Helper()
	r.SetRef(plumbing.NewBranchReferenceName(name), id)
}

// SetRef points a full reference name at id, whatever it pointed at before
func (r *Repo) SetRef(name plumbing.ReferenceName, id plumbing.Hash) {
	r.T.Helper()

	current, _, err := r.Git.RefTarget(name)
	require.NoError(r.T, err)
	require.NoError(r.T, r.Git.UpdateRef(name, current, id))
}

// Ref returns the target of a reference
func (r *Repo) Ref(name plumbing.ReferenceName) plumbing.Hash {
	r.T.Helper()

	id, ok, err := r.Git.RefTarget(name)
	require.NoError(r.T, err)
	require.True(r.T, ok, "reference %s does not exist", name)
	return id
}

// Files returns the content of every file in a commit
func (r *Repo) Files(commit plumbing.Hash) map[string]string {
	r.T.Helper()

	files := make(map[string]string)
	if commit.IsZero() {
		return files
	}
	tree, err := r.Git.CommitTree(commit)
	require.NoError(r.T, err)
	return r.TreeFiles(tree)
}

// TreeFiles returns the content of every file in a tree
func (r *Repo) TreeFiles(tree plumbing.Hash) map[string]string {
	r.T.Helper()

	entries, err := r.Git.FlattenTree(tree)
	require.NoError(r.T, err)
	files := make(map[string]string, len(entries))
	for path, entry := range entries {
		content, err := r.Git.ReadBlob(entry.Hash)
		require.NoError(r.T, err)
		files[path] = string(content)
	}
	return files
}

// Message returns the message of a commit
func (r *Repo) Message(id plumbing.Hash) string {
	r.T.Helper()

	commit, err := r.Git.FindCommit(id)
	require.NoError(r.T, err)
	return commit.Message
}

// Parents returns the parent ids of a commit
func (r *Repo) Parents(id plumbing.Hash) []plumbing.Hash {
	r.T.Helper()

	commit, err := r.Git.FindCommit(id)
	require.NoError(r.T, err)
	return commit.ParentHashes
}

// FirstParentChain returns ids from tip down the first-parent chain, limited
// to n entries.
func (r *Repo) FirstParentChain(tip plumbing.Hash, n int) []plumbing.Hash {
	r.T.Helper()

	var out []plumbing.Hash
	for id := tip; !id.IsZero() && len(out) < n; {
		out = append(out, id)
		parents := r.Parents(id)
		if len(parents) == 0 {
			break
		}
		id = parents[0]
	}
	return out
}

// Str returns a pointer to s, for Change
func Str(s string) *string {
	return &s
}

// SortedPaths returns the keys of a file map in order
func SortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
