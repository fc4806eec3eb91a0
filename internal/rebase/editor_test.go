package rebase_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/graph"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

// localBranches returns the branch refs a fixture defines.
func localBranches(s *scenario.Scenario) []plumbing.ReferenceName {
	var names []plumbing.ReferenceName
	for ref := range s.Spec.Refs {
		if strings.HasPrefix(ref, "refs/heads/") {
			names = append(names, plumbing.ReferenceName(ref))
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func newEditor(t *testing.T, s *scenario.Scenario, refs ...plumbing.ReferenceName) *rebase.Editor {
	t.Helper()

	if len(refs) == 0 {
		refs = localBranches(s)
	}
	tips, err := graph.TipsFromRefs(s.Repo.Git, refs)
	require.NoError(t, err)
	g, err := graph.Build(s.Repo.Git, tips, graph.Options{})
	require.NoError(t, err)
	editor, err := rebase.NewEditor(s.Repo.Git, g, rebase.EditorOptions{})
	require.NoError(t, err)
	return editor
}

func selectCommit(t *testing.T, e *rebase.Editor, id plumbing.Hash) rebase.Selector {
	t.Helper()

	sel, ok := e.Select(rebase.ByCommit(id))
	require.True(t, ok, "no pick for %s", id)
	return sel
}

func TestEditorStructure(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)

	ref, ok := e.Select(rebase.ByReference("refs/heads/main"))
	require.True(t, ok)
	parents, err := e.Parents(ref)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	step, err := e.Step(parents[0])
	require.NoError(t, err)
	assert.Equal(t, rebase.Pick(s.ID("three")), step)

	base := selectCommit(t, e, s.ID("base"))
	parents, err = e.Parents(base)
	require.NoError(t, err)
	assert.Empty(t, parents)

	_, ok = e.Select(rebase.ByReference("refs/heads/missing"))
	assert.False(t, ok)
	_, ok = e.Select(rebase.ByCommit(plumbing.NewHash("1111111111111111111111111111111111111111")))
	assert.False(t, ok)
}

func TestEditorBoundaryParents(t *testing.T) {
	s := scenario.Load(t, "linear")
	tips, err := graph.TipsFromRefs(s.Repo.Git, []plumbing.ReferenceName{"refs/heads/main"})
	require.NoError(t, err)
	g, err := graph.Build(s.Repo.Git, tips, graph.Options{CommitsLimitHint: 2})
	require.NoError(t, err)

	e, err := rebase.NewEditor(s.Repo.Git, g, rebase.EditorOptions{})
	require.NoError(t, err)

	// one is outside the truncated graph but still anchors two.
	two := selectCommit(t, e, s.ID("two"))
	parents, err := e.Parents(two)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	step, err := e.Step(parents[0])
	require.NoError(t, err)
	assert.Equal(t, rebase.Pick(s.ID("one")), step)

	outcome, err := e.Rebase()
	require.NoError(t, err)
	assert.Empty(t, outcome.Mapping)
}

func TestInsertAboveRewiresIncomingEdges(t *testing.T) {
	s := scenario.Load(t, "merge")
	e := newEditor(t, s)

	base := selectCommit(t, e, s.ID("base"))
	before, err := e.Children(base)
	require.NoError(t, err)
	require.Len(t, before, 2, "a1 and f1 sit on base")

	inserted, err := e.Insert(base, rebase.None(), rebase.Above)
	require.NoError(t, err)

	children, err := e.Children(inserted)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, children)

	parents, err := e.Parents(inserted)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{base}, parents)

	children, err = e.Children(base)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{inserted}, children)
}

func TestInsertBelowRewiresOutgoingEdges(t *testing.T) {
	s := scenario.Load(t, "merge")
	e := newEditor(t, s)

	mergeSel := selectCommit(t, e, s.ID("merge"))
	before, err := e.Parents(mergeSel)
	require.NoError(t, err)
	require.Len(t, before, 2)

	inserted, err := e.Insert(mergeSel, rebase.None(), rebase.Below)
	require.NoError(t, err)

	parents, err := e.Parents(inserted)
	require.NoError(t, err)
	assert.Equal(t, before, parents, "parent order is kept")

	children, err := e.Children(inserted)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{mergeSel}, children)

	parents, err = e.Parents(mergeSel)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{inserted}, parents)

	// A placeholder passes its parents through, so nothing is rewritten.
	outcome, err := e.Rebase()
	require.NoError(t, err)
	assert.Empty(t, outcome.Mapping)
}

func TestReplaceKeepsEdges(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)

	two := selectCommit(t, e, s.ID("two"))
	prev, err := e.Replace(two, rebase.Reword(s.ID("two"), "reworded\n"))
	require.NoError(t, err)
	assert.Equal(t, rebase.Pick(s.ID("two")), prev)

	parents, err := e.Parents(two)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	step, err := e.Step(parents[0])
	require.NoError(t, err)
	assert.Equal(t, s.ID("one"), step.Commit)
}

func TestRemoveInvalidatesSelector(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)

	two := selectCommit(t, e, s.ID("two"))
	copied := two
	require.NoError(t, e.Remove(two))

	_, err := e.Step(copied)
	require.ErrorIs(t, err, stackerrors.ErrStaleSelector)
	_, err = e.Insert(copied, rebase.None(), rebase.Above)
	require.ErrorIs(t, err, stackerrors.ErrStaleSelector)
	require.ErrorIs(t, e.Remove(copied), stackerrors.ErrStaleSelector)

	_, ok := e.Select(rebase.ByCommit(s.ID("two")))
	assert.False(t, ok)

	three := selectCommit(t, e, s.ID("three"))
	parents, err := e.Parents(three)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	step, err := e.Step(parents[0])
	require.NoError(t, err)
	assert.Equal(t, s.ID("one"), step.Commit, "three is reconnected to one")
}

func TestRemoveRootLeavesChildWithoutParents(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)
	require.NoError(t, e.Remove(selectCommit(t, e, s.ID("base"))))

	parents, err := e.Parents(selectCommit(t, e, s.ID("one")))
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestRemoveMergeParentSplicesParents(t *testing.T) {
	s := scenario.Load(t, "octopus")
	e := newEditor(t, s)

	b2Ref, ok := e.Select(rebase.ByReference("refs/heads/b2"))
	require.True(t, ok)
	require.NoError(t, e.Remove(b2Ref))

	octopus := selectCommit(t, e, s.ID("octopus"))
	parents, err := e.Parents(octopus)
	require.NoError(t, err)
	require.Len(t, parents, 3)

	var picks []plumbing.Hash
	for _, p := range parents {
		step, err := e.Step(p)
		require.NoError(t, err)
		if step.Kind == rebase.KindPick {
			picks = append(picks, step.Commit)
		}
	}
	assert.Equal(t, []plumbing.Hash{s.ID("b2")}, picks, "b2 takes the reference's place as second parent")

	step, err := e.Step(parents[1])
	require.NoError(t, err)
	assert.Equal(t, rebase.Pick(s.ID("b2")), step)
}

func TestMoveDetachesAndReattaches(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)

	one := selectCommit(t, e, s.ID("one"))
	three := selectCommit(t, e, s.ID("three"))
	require.NoError(t, e.Move(one, three, rebase.Above))

	two := selectCommit(t, e, s.ID("two"))
	parents, err := e.Parents(two)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	step, err := e.Step(parents[0])
	require.NoError(t, err)
	assert.Equal(t, s.ID("base"), step.Commit)

	parents, err = e.Parents(one)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{three}, parents)

	ref, ok := e.Select(rebase.ByReference("refs/heads/main"))
	require.True(t, ok)
	parents, err = e.Parents(ref)
	require.NoError(t, err)
	assert.Equal(t, []rebase.Selector{one}, parents)

	require.Error(t, e.Move(one, one, rebase.Below))
}

func TestEditorIsSingleUse(t *testing.T) {
	s := scenario.Load(t, "linear")
	e := newEditor(t, s)
	two := selectCommit(t, e, s.ID("two"))

	_, err := e.Rebase()
	require.NoError(t, err)

	_, err = e.Rebase()
	require.ErrorIs(t, err, stackerrors.ErrEditorConsumed)
	_, err = e.Step(two)
	require.ErrorIs(t, err, stackerrors.ErrEditorConsumed)
	_, err = e.Replace(two, rebase.None())
	require.ErrorIs(t, err, stackerrors.ErrEditorConsumed)
	_, err = e.Insert(two, rebase.None(), rebase.Above)
	require.ErrorIs(t, err, stackerrors.ErrEditorConsumed)
	require.ErrorIs(t, e.Remove(two), stackerrors.ErrEditorConsumed)

	_, ok := e.Select(rebase.ByCommit(s.ID("two")))
	assert.False(t, ok)
}
