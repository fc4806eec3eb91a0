package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// diskRepo creates a repository on disk whose HEAD and index hold files.
func diskRepo(t *testing.T, files map[string]string) (*Repository, string) {
	t.Helper()

	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	repo, err := OpenRepository(dir)
	require.NoError(t, err)

	entries := make(map[string]Entry, len(files))
	for path, content := range files {
		blob, err := repo.WriteBlob([]byte(content))
		require.NoError(t, err)
		entries[path] = Entry{Mode: filemode.Regular, Hash: blob}
		require.NoError(t, os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644))
	}
	tree, err := repo.BuildTree(entries)
	require.NoError(t, err)

	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: time.Unix(1700000000, 0)}
	commit, err := repo.WriteCommit(&object.Commit{Author: sig, Committer: sig, Message: "init\n", TreeHash: tree})
	require.NoError(t, err)
	main := plumbing.NewBranchReferenceName("main")
	require.NoError(t, repo.UpdateRef(main, plumbing.ZeroHash, commit))
	require.NoError(t, repo.SetHead(main))

	idx, err := repo.ReadIndex()
	require.NoError(t, err)
	ApplyIndexEdits(idx, IndexEditsForTrees(map[string]Entry{}, entries))
	require.NoError(t, repo.WriteIndex(idx))
	return repo, dir
}

func TestChangedFiles(t *testing.T) {
	repo, dir := diskRepo(t, map[string]string{
		"a.txt": "a\n",
		"b.txt": "b\n",
		"d.txt": "d\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("A\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("c\n"), 0o644))

	files, err := repo.ChangedFiles(false)
	require.NoError(t, err)
	require.Equal(t, []WorktreeFile{
		{Path: "a.txt", Exists: true, Tracked: true, Mode: filemode.Regular},
		{Path: "b.txt", Tracked: true},
	}, files)

	files, err = repo.ChangedFiles(true)
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, WorktreeFile{Path: "c.txt", Exists: true, Mode: filemode.Regular}, files[2])

	content, err := repo.ReadWorktreeFile("a.txt")
	require.NoError(t, err)
	require.Equal(t, "A\n", string(content))
}

func TestChangedFilesWithoutWorktree(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)

	_, err = repo.ChangedFiles(false)
	require.ErrorIs(t, err, ErrNoWorktree)
	_, err = repo.ReadWorktreeFile("a.txt")
	require.ErrorIs(t, err, ErrNoWorktree)
}
