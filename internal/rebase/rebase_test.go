package rebase_test

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/conflict"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

func TestRebaseWithoutEditsPreservesIdentity(t *testing.T) {
	for _, fixture := range []string{"linear", "merge", "octopus", "workspace"} {
		t.Run(fixture, func(t *testing.T) {
			s := scenario.Load(t, fixture)
			before := make(map[plumbing.ReferenceName]plumbing.Hash)
			for _, ref := range localBranches(s) {
				before[ref] = s.Repo.Ref(ref)
			}

			outcome, err := newEditor(t, s).Rebase()
			require.NoError(t, err)
			assert.Equal(t, rebase.Success, outcome.Status)
			assert.Empty(t, outcome.Mapping)
			assert.Empty(t, outcome.Conflicted)
			assert.Empty(t, outcome.Updates())
			for ref, id := range before {
				assert.Equal(t, id, outcome.Tips[ref], "tip of %s", ref)
			}

			result, err := outcome.Materialize(context.Background(), rebase.MaterializeOptions{UpdateIndex: true})
			require.NoError(t, err)
			assert.Empty(t, result.Updates)
			for ref, id := range before {
				assert.Equal(t, id, s.Repo.Ref(ref))
			}
		})
	}
}

func TestRewordMiddleCommit(t *testing.T) {
	s := scenario.Load(t, "linear")
	s.Repo.Branch("keep", s.ID("three"))

	e := newEditor(t, s, "refs/heads/main")
	two := selectCommit(t, e, s.ID("two"))
	_, err := e.Replace(two, rebase.Reword(s.ID("two"), "two, reworded\n"))
	require.NoError(t, err)

	outcome, err := e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.Success, outcome.Status)
	require.Len(t, outcome.Mapping, 2)

	newTwo := outcome.Rewritten(s.ID("two"))
	newThree := outcome.Rewritten(s.ID("three"))
	require.NotEqual(t, s.ID("two"), newTwo)
	require.NotEqual(t, s.ID("three"), newThree)
	assert.Equal(t, s.ID("one"), outcome.Rewritten(s.ID("one")))

	assert.Equal(t, "two, reworded\n", s.Repo.Message(newTwo))
	assert.Equal(t, []plumbing.Hash{s.ID("one")}, s.Repo.Parents(newTwo))
	assert.Equal(t, []plumbing.Hash{newTwo}, s.Repo.Parents(newThree))
	assert.Equal(t, s.Repo.Message(s.ID("three")), s.Repo.Message(newThree))

	oldTree, err := s.Repo.Git.CommitTree(s.ID("three"))
	require.NoError(t, err)
	newTree, err := s.Repo.Git.CommitTree(newThree)
	require.NoError(t, err)
	assert.Equal(t, oldTree, newTree, "content is unchanged")

	result, err := outcome.Materialize(context.Background(), rebase.MaterializeOptions{})
	require.NoError(t, err)
	require.Equal(t, []rebase.RefUpdate{{Name: "refs/heads/main", Old: s.ID("three"), New: newThree}}, result.Updates)

	assert.Equal(t, newThree, s.Repo.Ref("refs/heads/main"))
	assert.Equal(t, s.ID("three"), s.Repo.Ref("refs/heads/keep"), "the old history stays reachable")
	assert.Equal(t, []plumbing.Hash{s.ID("three"), s.ID("two"), s.ID("one")}, s.Repo.FirstParentChain(s.ID("three"), 3))

	journals, err := s.Repo.Git.ListRefs(rebase.JournalPrefix)
	require.NoError(t, err)
	assert.Empty(t, journals)
}

func TestDropCommit(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)
	require.NoError(t, e.Remove(selectCommit(t, e, s.ID("two"))))

	outcome, err := e.Rebase()
	require.NoError(t, err)
	assert.NotContains(t, outcome.Mapping, s.ID("two"))

	newThree := outcome.Tips["refs/heads/main"]
	assert.Equal(t, []plumbing.Hash{s.ID("one")}, s.Repo.Parents(newThree))
	assert.Equal(t, map[string]string{
		"README.md": "readme\n",
		"one.txt":   "one\n",
		"three.txt": "three\n",
	}, s.Repo.Files(newThree))
}

func TestDropRootCommit(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)
	require.NoError(t, e.Remove(selectCommit(t, e, s.ID("base"))))

	outcome, err := e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.Success, outcome.Status)

	newOne := outcome.Rewritten(s.ID("one"))
	require.NotEqual(t, s.ID("one"), newOne)
	assert.Empty(t, s.Repo.Parents(newOne), "one becomes the root")
	assert.Equal(t, map[string]string{"one.txt": "one\n"}, s.Repo.Files(newOne))

	tip := outcome.Tips["refs/heads/main"]
	require.NotEqual(t, s.ID("three"), tip)
	assert.Equal(t, map[string]string{
		"one.txt":   "one\n",
		"two.txt":   "two\n",
		"three.txt": "three\n",
	}, s.Repo.Files(tip))
}

func TestMoveRootCommitToTop(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)
	base := selectCommit(t, e, s.ID("base"))
	require.NoError(t, e.Move(base, selectCommit(t, e, s.ID("three")), rebase.Above))

	outcome, err := e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.Success, outcome.Status)

	newBase := outcome.Rewritten(s.ID("base"))
	newThree := outcome.Rewritten(s.ID("three"))
	assert.Equal(t, newBase, outcome.Tips["refs/heads/main"])
	assert.Equal(t, []plumbing.Hash{newThree}, s.Repo.Parents(newBase))
	assert.Empty(t, s.Repo.Parents(outcome.Rewritten(s.ID("one"))))
	assert.Equal(t, s.Repo.Files(s.ID("three")), s.Repo.Files(newBase))
}

func TestRewordRewritesOctopusMerge(t *testing.T) {
	s := scenario.Load(t, "octopus")
	e := newEditor(t, s)
	_, err := e.Replace(selectCommit(t, e, s.ID("b2")), rebase.Reword(s.ID("b2"), "b2, reworded\n"))
	require.NoError(t, err)

	outcome, err := e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.Success, outcome.Status)
	assert.Len(t, outcome.Mapping, 3)

	newOctopus := outcome.Rewritten(s.ID("octopus"))
	assert.Equal(t, []plumbing.Hash{s.ID("b1"), outcome.Rewritten(s.ID("b2")), s.ID("b3")}, s.Repo.Parents(newOctopus))
	assert.Equal(t, s.Repo.Files(s.ID("octopus")), s.Repo.Files(newOctopus))
	assert.Equal(t, s.Repo.Files(s.ID("top")), s.Repo.Files(outcome.Tips["refs/heads/main"]))

	updates := outcome.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, plumbing.ReferenceName("refs/heads/b2"), updates[0].Name)
	assert.Equal(t, plumbing.ReferenceName("refs/heads/main"), updates[1].Name)
}

func TestConflictsBecomeCommits(t *testing.T) {
	s := scenario.Load(t, "conflict")
	e := newEditor(t, s)

	// Put feature on top of main by giving f1 main's commit as parent.
	f1 := selectCommit(t, e, s.ID("f1"))
	_, err := e.Insert(f1, rebase.Pick(s.ID("m1")), rebase.Below)
	require.NoError(t, err)

	outcome, err := e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.PartiallyConflicted, outcome.Status)
	require.Len(t, outcome.Conflicted, 1)

	node := outcome.Conflicted[0]
	assert.Equal(t, s.ID("f1"), node.Original)
	assert.Equal(t, []string{"file.txt"}, node.Paths)

	view, err := conflict.ReadView(s.Repo.Git, node.Commit)
	require.NoError(t, err)
	require.True(t, view.IsConflicted())
	assert.Equal(t, s.Repo.Files(s.ID("m1")), s.Repo.TreeFiles(view.Conflict.Ours))
	assert.Equal(t, s.Repo.Files(s.ID("f1")), s.Repo.TreeFiles(view.Conflict.Theirs))
	assert.Equal(t, s.Repo.Files(s.ID("base")), s.Repo.TreeFiles(view.Conflict.Base))
	assert.Equal(t, map[string]string{"file.txt": "one\nmain\nthree\n"}, s.Repo.TreeFiles(view.Conflict.Resolved))
	assert.Equal(t, []plumbing.Hash{s.ID("m1")}, s.Repo.Parents(node.Commit))

	// f2 applies cleanly on the auto-resolution.
	newF2 := outcome.Tips["refs/heads/feature"]
	assert.Equal(t, []plumbing.Hash{node.Commit}, s.Repo.Parents(newF2))
	f2View, err := conflict.ReadView(s.Repo.Git, newF2)
	require.NoError(t, err)
	assert.False(t, f2View.IsConflicted())
	assert.Equal(t, map[string]string{
		"file.txt":  "one\nmain\nthree\n",
		"other.txt": "other\n",
	}, s.Repo.Files(newF2))

	headConflicted, err := outcome.IsConflictedHead()
	require.NoError(t, err)
	assert.False(t, headConflicted)

	result, err := outcome.Materialize(context.Background(), rebase.MaterializeOptions{UpdateIndex: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.IndexEdits)

	idx, err := s.Repo.Git.ReadIndex()
	require.NoError(t, err)
	entry, err := idx.Entry("file.txt")
	require.NoError(t, err)
	blob, err := s.Repo.Git.ReadBlob(entry.Hash)
	require.NoError(t, err)
	assert.Equal(t, "one\nmain\nthree\n", string(blob))

	// Rebasing the conflicted history again without edits keeps it.
	again, err := newEditor(t, s).Rebase()
	require.NoError(t, err)
	assert.Empty(t, again.Mapping)
}

func TestRepickConflictedCommit(t *testing.T) {
	s := scenario.Load(t, "conflict")
	e := newEditor(t, s)
	_, err := e.Insert(selectCommit(t, e, s.ID("f1")), rebase.Pick(s.ID("m1")), rebase.Below)
	require.NoError(t, err)
	outcome, err := e.Rebase()
	require.NoError(t, err)
	_, err = outcome.Materialize(context.Background(), rebase.MaterializeOptions{})
	require.NoError(t, err)
	conflicted := outcome.Conflicted[0].Commit

	// Rewording the conflicted commit re-picks it from its own sides, so the
	// conflict survives with the same content.
	e = newEditor(t, s)
	_, err = e.Replace(selectCommit(t, e, conflicted), rebase.Reword(conflicted, "f1, reworded\n"))
	require.NoError(t, err)
	outcome, err = e.Rebase()
	require.NoError(t, err)
	require.Equal(t, rebase.PartiallyConflicted, outcome.Status)

	reworded := outcome.Rewritten(conflicted)
	require.NotEqual(t, conflicted, reworded)
	view, err := conflict.ReadView(s.Repo.Git, reworded)
	require.NoError(t, err)
	require.True(t, view.IsConflicted())
	assert.Equal(t, []string{"file.txt"}, view.Conflict.Paths)
	assert.Equal(t, "f1, reworded\n", s.Repo.Message(reworded))
}
