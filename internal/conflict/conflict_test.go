package conflict_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/testhelpers"
)

func TestRoundTrip(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	base := repo.Tree(map[string]string{"f": "base\n"})
	ours := repo.Tree(map[string]string{"f": "ours\n"})
	theirs := repo.Tree(map[string]string{"f": "theirs\n", "g": "new\n"})
	resolved := repo.Tree(map[string]string{"f": "ours\n", "g": "new\n"})

	tree, err := conflict.Encode(repo.Git, conflict.Sides{
		Ours:     ours,
		Theirs:   theirs,
		Base:     base,
		Resolved: resolved,
		Paths:    []string{"f"},
	})
	require.NoError(t, err)

	sig := repo.Signature()
	commit := &object.Commit{Author: sig, Committer: sig, Message: "conflicted\n", TreeHash: tree}
	conflict.Mark(commit, 1)
	id, err := repo.Git.WriteCommit(commit)
	require.NoError(t, err)

	view, err := conflict.ReadView(repo.Git, id)
	require.NoError(t, err)
	require.True(t, view.IsConflicted())
	require.Equal(t, ours, view.Conflict.Ours)
	require.Equal(t, theirs, view.Conflict.Theirs)
	require.Equal(t, base, view.Conflict.Base)
	require.Equal(t, resolved, view.Conflict.Resolved)
	require.Equal(t, []string{"f"}, view.Conflict.Paths)

	t.Run("re-reading yields the same sides", func(t *testing.T) {
		again, err := conflict.ReadView(repo.Git, id)
		require.NoError(t, err)
		require.Equal(t, view, again)
	})

	t.Run("working tree defaults to the auto-resolution", func(t *testing.T) {
		require.Equal(t, resolved, conflict.WorkingTree(view, conflict.SideResolved))
		require.Equal(t, ours, conflict.WorkingTree(view, conflict.SideOurs))
		require.Equal(t, theirs, conflict.WorkingTree(view, conflict.SideTheirs))
		require.Equal(t, base, conflict.WorkingTree(view, conflict.SideBase))
	})
}

func TestCleanCommit(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	id := repo.Commit("clean\n", map[string]string{"f": "1\n"})

	view, err := conflict.ReadView(repo.Git, id)
	require.NoError(t, err)
	require.False(t, view.IsConflicted())

	tree, err := repo.Git.CommitTree(id)
	require.NoError(t, err)
	require.Equal(t, tree, conflict.WorkingTree(view, conflict.SideOurs))
}

func TestMarkAndUnmark(t *testing.T) {
	commit := &object.Commit{ExtraHeaders: []object.ExtraHeader{{Key: "other", Value: "x"}}}
	conflict.Mark(commit, 2)
	conflict.Mark(commit, 3)
	require.True(t, conflict.IsConflicted(commit))
	require.Len(t, commit.ExtraHeaders, 2)
	require.Equal(t, "3", commit.ExtraHeaders[1].Value)

	conflict.Unmark(commit)
	require.False(t, conflict.IsConflicted(commit))
	require.Equal(t, []object.ExtraHeader{{Key: "other", Value: "x"}}, commit.ExtraHeaders)
}

func TestEmptySidesAreWritten(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	ours := repo.Tree(map[string]string{"f": "ours\n"})

	tree, err := conflict.Encode(repo.Git, conflict.Sides{Ours: ours, Theirs: ours, Resolved: ours})
	require.NoError(t, err)

	sides, err := conflict.DecodeTree(repo.Git, tree)
	require.NoError(t, err)
	require.Equal(t, git.EmptyTreeID, sides.Base)
	require.Empty(t, sides.Paths)
}

func TestEmptyTreeSidesAreStored(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	theirs := repo.Tree(map[string]string{"f": "theirs\n"})

	tree, err := conflict.Encode(repo.Git, conflict.Sides{
		Ours:     git.EmptyTreeID,
		Theirs:   theirs,
		Base:     git.EmptyTreeID,
		Resolved: theirs,
		Paths:    []string{"f"},
	})
	require.NoError(t, err)

	_, err = repo.Git.GoGit().Storer.EncodedObject(plumbing.TreeObject, git.EmptyTreeID)
	require.NoError(t, err, "the empty tree is written before it is referenced")

	sides, err := conflict.DecodeTree(repo.Git, tree)
	require.NoError(t, err)
	require.Equal(t, git.EmptyTreeID, sides.Ours)
}

func TestDecodeRejectsIncompleteLayout(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	tree := repo.Tree(map[string]string{"f": "1\n"})

	_, err := conflict.DecodeTree(repo.Git, tree)
	require.Error(t, err)

	_, err = conflict.ParseSide("sideways")
	require.Error(t, err)
	side, err := conflict.ParseSide("theirs")
	require.NoError(t, err)
	require.Equal(t, conflict.SideTheirs, side)
}
