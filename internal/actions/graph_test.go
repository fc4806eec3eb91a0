package actions_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

func TestGraphAction(t *testing.T) {
	s := scenario.Load(t, "merge")
	ctx, _ := newContext(t, s.Repo.Git)

	var plain bytes.Buffer
	require.NoError(t, actions.GraphAction(ctx, actions.GraphOptions{Output: &plain}))
	assert.True(t, strings.HasPrefix(plain.String(), "digraph stackgraph {"))
	assert.Contains(t, plain.String(), "feature")

	var redacted bytes.Buffer
	require.NoError(t, actions.GraphAction(ctx, actions.GraphOptions{Output: &redacted, Redact: true}))
	assert.NotContains(t, redacted.String(), "feature")

	var compressed bytes.Buffer
	require.NoError(t, actions.GraphAction(ctx, actions.GraphOptions{Output: &compressed, Compress: true}))
	dec, err := zstd.NewReader(&compressed)
	require.NoError(t, err)
	defer dec.Close()
	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, plain.String(), string(data))
}
