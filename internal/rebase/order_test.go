package rebase

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/graph"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

func TestTopoOrderVisitsParentsFirst(t *testing.T) {
	s := scenario.Load(t, "octopus")
	refs := []plumbing.ReferenceName{"refs/heads/b1", "refs/heads/b2", "refs/heads/b3", "refs/heads/main"}
	tips, err := graph.TipsFromRefs(s.Repo.Git, refs)
	require.NoError(t, err)
	g, err := graph.Build(s.Repo.Git, tips, graph.Options{})
	require.NoError(t, err)

	newOrder := func() (*Editor, []int) {
		e, err := NewEditor(s.Repo.Git, g, EditorOptions{})
		require.NoError(t, err)
		order, err := e.topoOrder()
		require.NoError(t, err)
		return e, order
	}

	e, order := newOrder()
	require.Len(t, order, len(e.nodes))
	pos := make(map[int]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for _, ed := range e.edges {
		assert.Less(t, pos[ed.parent], pos[ed.child], "edge %d -> %d", ed.child, ed.parent)
	}

	_, again := newOrder()
	assert.Equal(t, order, again)
}
