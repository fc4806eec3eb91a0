package merge_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/merge"
	"stackit.dev/stackgraph/testhelpers"
)

func TestTrees(t *testing.T) {
	t.Run("combines independent file changes", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"a": "a\n", "b": "b\n"})
		ours := repo.Tree(map[string]string{"a": "A\n", "b": "b\n"})
		theirs := repo.Tree(map[string]string{"a": "a\n", "b": "b\n", "dir/c": "c\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.True(t, res.Clean())
		require.Equal(t, map[string]string{"a": "A\n", "b": "b\n", "dir/c": "c\n"}, repo.TreeFiles(res.Tree))
	})

	t.Run("merges content of one file", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"f": "1\n2\n3\n4\n"})
		ours := repo.Tree(map[string]string{"f": "one\n2\n3\n4\n"})
		theirs := repo.Tree(map[string]string{"f": "1\n2\n3\nfour\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.True(t, res.Clean())
		require.Equal(t, "one\n2\n3\nfour\n", repo.TreeFiles(res.Tree)["f"])
	})

	t.Run("reports content conflicts", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"f": "1\n"})
		ours := repo.Tree(map[string]string{"f": "ours\n"})
		theirs := repo.Tree(map[string]string{"f": "theirs\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.Equal(t, []string{"f"}, res.Conflicts)
		require.Equal(t, "ours\n", repo.TreeFiles(res.Tree)["f"])
	})

	t.Run("delete against modify keeps the modified file", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"f": "1\n", "g": "g\n"})
		ours := repo.Tree(map[string]string{"g": "g\n"})
		theirs := repo.Tree(map[string]string{"f": "2\n", "g": "g\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.Equal(t, []string{"f"}, res.Conflicts)
		require.Equal(t, "2\n", repo.TreeFiles(res.Tree)["f"])
	})

	t.Run("add/add with different content conflicts", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"g": "g\n"})
		ours := repo.Tree(map[string]string{"g": "g\n", "new": "ours\n"})
		theirs := repo.Tree(map[string]string{"g": "g\n", "new": "theirs\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.Equal(t, []string{"new"}, res.Conflicts)
	})

	t.Run("directory/file collision keeps our shape", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		base := repo.Tree(map[string]string{"g": "g\n"})
		ours := repo.Tree(map[string]string{"g": "g\n", "x": "file\n"})
		theirs := repo.Tree(map[string]string{"g": "g\n", "x/y": "nested\n"})

		res, err := merge.Trees(repo.Git, base, ours, theirs)
		require.NoError(t, err)
		require.Equal(t, []string{"x"}, res.Conflicts)
		require.Equal(t, map[string]string{"g": "g\n", "x": "file\n"}, repo.TreeFiles(res.Tree))
	})

	t.Run("empty base is treated as no common content", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		ours := repo.Tree(map[string]string{"a": "a\n"})
		theirs := repo.Tree(map[string]string{"b": "b\n"})

		res, err := merge.Trees(repo.Git, plumbing.ZeroHash, ours, theirs)
		require.NoError(t, err)
		require.True(t, res.Clean())
		require.Equal(t, map[string]string{"a": "a\n", "b": "b\n"}, repo.TreeFiles(res.Tree))
	})
}

func TestOctopus(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	base := repo.Tree(map[string]string{"r": "r\n"})
	t1 := repo.Tree(map[string]string{"r": "r\n", "one": "1\n"})
	t2 := repo.Tree(map[string]string{"r": "r\n", "two": "2\n"})
	t3 := repo.Tree(map[string]string{"r": "r\n", "three": "3\n"})

	res, err := merge.Octopus(repo.Git, []plumbing.Hash{t1, t2, t3}, []plumbing.Hash{base, base})
	require.NoError(t, err)
	require.True(t, res.Clean())
	require.Equal(t, map[string]string{"r": "r\n", "one": "1\n", "two": "2\n", "three": "3\n"}, repo.TreeFiles(res.Tree))

	_, err = merge.Octopus(repo.Git, []plumbing.Hash{t1, t2}, nil)
	require.Error(t, err)
}
