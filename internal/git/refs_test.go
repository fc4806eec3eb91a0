package git_test

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/testhelpers"
)

func TestUpdateRef(t *testing.T) {
	t.Run("creates a reference when none is expected", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		c1 := repo.Commit("one\n", map[string]string{"a": "1"})

		name := plumbing.NewBranchReferenceName("feature")
		require.NoError(t, repo.Git.UpdateRef(name, plumbing.ZeroHash, c1))
		require.Equal(t, c1, repo.Ref(name))
	})

	t.Run("rejects a stale expected value", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		c1 := repo.Commit("one\n", map[string]string{"a": "1"})
		c2 := repo.Commit("two\n", map[string]string{"a": "2"}, c1)
		name := plumbing.NewBranchReferenceName("feature")
		repo.Branch("feature", c1)

		err := repo.Git.UpdateRef(name, c2, c2)
		require.Error(t, err)
		require.True(t, errors.Is(err, stackerrors.ErrStaleRef))

		var stale *stackerrors.StaleRefError
		require.ErrorAs(t, err, &stale)
		require.Equal(t, name.String(), stale.RefName)
		require.Equal(t, c1, repo.Ref(name))
	})

	t.Run("rejects creation over an existing reference", func(t *testing.T) {
		repo := testhelpers.NewRepo(t)
		c1 := repo.Commit("one\n", map[string]string{"a": "1"})
		repo.Branch("feature", c1)

		err := repo.Git.UpdateRef(plumbing.NewBranchReferenceName("feature"), plumbing.ZeroHash, c1)
		require.ErrorIs(t, err, stackerrors.ErrStaleRef)
	})
}

func TestDeleteRef(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	c1 := repo.Commit("one\n", map[string]string{"a": "1"})
	repo.Branch("feature", c1)
	name := plumbing.NewBranchReferenceName("feature")

	require.ErrorIs(t, repo.Git.DeleteRef(name, plumbing.ZeroHash), stackerrors.ErrStaleRef)
	require.NoError(t, repo.Git.DeleteRef(name, c1))

	_, ok, err := repo.Git.RefTarget(name)
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent reference that is expected absent is a no-op.
	require.NoError(t, repo.Git.DeleteRef(name, plumbing.ZeroHash))
}

func TestPeelAndHead(t *testing.T) {
	repo := testhelpers.NewRepo(t)

	head, unborn, err := repo.Git.HeadRef()
	require.NoError(t, err)
	require.Equal(t, plumbing.NewBranchReferenceName("main"), head)
	require.True(t, unborn)

	c1 := repo.Commit("one\n", map[string]string{"a": "1"})
	repo.Branch("main", c1)

	_, unborn, err = repo.Git.HeadRef()
	require.NoError(t, err)
	require.False(t, unborn)

	id, err := repo.Git.Peel(plumbing.HEAD)
	require.NoError(t, err)
	require.Equal(t, c1, id)

	_, err = repo.Git.Peel(plumbing.NewBranchReferenceName("missing"))
	require.ErrorIs(t, err, stackerrors.ErrNotFound)
}

func TestListRefs(t *testing.T) {
	repo := testhelpers.NewRepo(t)
	c1 := repo.Commit("one\n", map[string]string{"a": "1"})
	repo.Branch("main", c1)
	repo.Branch("feature/x", c1)
	repo.SetRef("refs/remotes/origin/main", c1)

	heads, err := repo.Git.LocalBranches()
	require.NoError(t, err)
	require.Equal(t, []plumbing.ReferenceName{"refs/heads/feature/x", "refs/heads/main"}, heads)

	remotes, err := repo.Git.ListRefs("refs/remotes/")
	require.NoError(t, err)
	require.Len(t, remotes, 1)
}
