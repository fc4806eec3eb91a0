package actions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

func TestLogAction(t *testing.T) {
	s := scenario.Load(t, "workspace")
	ctx, out := newContext(t, s.Repo.Git)

	require.NoError(t, actions.LogAction(ctx, actions.LogOptions{}))
	log := out.String()
	assert.Contains(t, log, "a2")
	assert.Contains(t, log, "b1")
	assert.Contains(t, log, "(remote)")

	out.Reset()
	require.NoError(t, actions.LogAction(ctx, actions.LogOptions{Stack: "b"}))
	assert.Contains(t, out.String(), "b1")
	assert.NotContains(t, out.String(), "a2")

	require.Error(t, actions.LogAction(ctx, actions.LogOptions{Stack: "missing"}))
}

func TestLogActionShort(t *testing.T) {
	s := scenario.Load(t, "workspace")
	ctx, out := newContext(t, s.Repo.Git)

	require.NoError(t, actions.LogAction(ctx, actions.LogOptions{Short: true}))
	assert.Contains(t, out.String(), "2 commits")
	assert.NotContains(t, out.String(), "│")
}
