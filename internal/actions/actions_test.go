package actions_test

import (
	"bytes"
	"context"
	"testing"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/runtime"
)

// newContext wires repo with default configuration and captures output.
func newContext(t *testing.T, repo *git.Repository) (*runtime.Context, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	return runtime.NewContext(context.Background(), repo, nil, output.NewSplog(&buf)), &buf
}
