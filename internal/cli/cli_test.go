package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/actions"
	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/testhelpers"
)

const mainRef = plumbing.ReferenceName("refs/heads/main")

// newRepo creates a checked out repository with main and a feature branch
// on top of it.
func newRepo(t *testing.T) *testhelpers.DiskRepo {
	t.Helper()

	r := testhelpers.NewDiskRepo(t)
	base := r.Commit("base\n", map[string]string{"a.txt": "a\n"})
	r.Branch("main", base)
	r.Branch("feature", r.Change("feature work\n", base, map[string]*string{"f.txt": testhelpers.Str("f\n")}))
	r.Checkout("main")
	return r
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)

	cmd := NewRootCmd("test", "none", "unknown")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLogCommand(t *testing.T) {
	r := newRepo(t)

	out, err := execute(t, r.Dir, "log")
	require.NoError(t, err, out)
	assert.Contains(t, out, "feature")
	assert.Contains(t, out, "feature work")
}

func TestCommitAndRewordCommands(t *testing.T) {
	r := newRepo(t)
	r.WriteFile("a.txt", "A\n")

	out, err := execute(t, r.Dir, "commit", "-m", "change a")
	require.NoError(t, err, out)
	tip := r.Ref(mainRef)
	assert.Equal(t, "change a\n", r.Message(tip))
	assert.Equal(t, map[string]string{"a.txt": "A\n"}, r.Files(tip))

	out, err = execute(t, r.Dir, "reword", "main", "-m", "change a, reworded")
	require.NoError(t, err, out)
	assert.Equal(t, "change a, reworded\n", r.Message(r.Ref(mainRef)))
}

func TestCommitCommandFlags(t *testing.T) {
	r := newRepo(t)
	r.WriteFile("a.txt", "A\n")

	_, err := execute(t, r.Dir, "commit", "-m", "x", "--side", "nope")
	require.Error(t, err)

	_, err = execute(t, r.Dir, "commit", "-m", "x", "--branch", "feature", "--amend", "HEAD")
	require.Error(t, err)

	_, err = execute(t, r.Dir, "commit", "-m", "x", "--locks", filepath.Join(r.Dir, "missing.json"))
	require.Error(t, err)

	locks := filepath.Join(t.TempDir(), "locks.json")
	require.NoError(t, os.WriteFile(locks, []byte("{}"), 0o644))
	out, err := execute(t, r.Dir, "commit", "-m", "x", "--locks", locks, "a.txt")
	require.NoError(t, err, out)
	assert.Equal(t, "x\n", r.Message(r.Ref(mainRef)))
}

func TestMoveCommandRequiresOnto(t *testing.T) {
	r := newRepo(t)

	_, err := execute(t, r.Dir, "move", "main")
	require.Error(t, err)
}

func TestGraphCommandWritesFile(t *testing.T) {
	r := newRepo(t)
	path := filepath.Join(t.TempDir(), "graph.dot")

	out, err := execute(t, r.Dir, "graph", "--redact", "-o", path)
	require.NoError(t, err, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph stackgraph {"))
	assert.NotContains(t, string(data), "feature")
}

type failingCloser struct {
	bytes.Buffer
}

func (f *failingCloser) Close() error {
	return errors.New("disk full")
}

func TestWriteGraphReportsCloseError(t *testing.T) {
	r := newRepo(t)
	ctx := runtime.NewContext(context.Background(), r.Git, nil, output.NewSplog(io.Discard))
	w := &failingCloser{}

	err := writeGraph(ctx, w, actions.GraphOptions{})
	require.ErrorContains(t, err, "disk full")
	assert.True(t, strings.HasPrefix(w.String(), "digraph stackgraph {"))
}

func TestRecoverCommand(t *testing.T) {
	r := newRepo(t)

	out, err := execute(t, r.Dir, "recover")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Nothing to recover.")

	out, err = execute(t, r.Dir, "recover", "--quiet")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "Nothing to recover.")
}

func TestVersion(t *testing.T) {
	r := newRepo(t)

	out, err := execute(t, r.Dir, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (commit none, built unknown)")
}
