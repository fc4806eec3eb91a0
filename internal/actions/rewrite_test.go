package actions_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/actions"
	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/testhelpers/scenario"
)

const mainRef = plumbing.ReferenceName("refs/heads/main")

func messages(s *scenario.Scenario, tip plumbing.Hash) []string {
	var out []string
	for _, id := range s.Repo.FirstParentChain(tip, 10) {
		out = append(out, s.Repo.Message(id))
	}
	return out
}

func TestRewordAction(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, out := newContext(t, s.Repo.Git)

	err := actions.RewordAction(ctx, actions.RewordOptions{
		Commit:  s.ID("two").String(),
		Message: "two, reworded",
	})
	require.NoError(t, err)

	tip := s.Repo.Ref(mainRef)
	assert.Equal(t, []string{"three\n", "two, reworded\n", "one\n", "base\n"}, messages(s, tip))
	assert.Equal(t, s.Repo.Files(s.ID("three")), s.Repo.Files(tip))
	assert.Contains(t, out.String(), "main")
}

func TestRewordActionByRevision(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, _ := newContext(t, s.Repo.Git)

	require.NoError(t, actions.RewordAction(ctx, actions.RewordOptions{Commit: "main~1", Message: "second to last\n"}))
	assert.Equal(t, "second to last\n", messages(s, s.Repo.Ref(mainRef))[1])

	err := actions.RewordAction(ctx, actions.RewordOptions{Commit: "nope", Message: "x"})
	require.ErrorIs(t, err, stackerrors.ErrNotFound)

	err = actions.RewordAction(ctx, actions.RewordOptions{Commit: "main", Message: "  "})
	require.Error(t, err)
}

func TestDropAction(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, _ := newContext(t, s.Repo.Git)

	require.NoError(t, actions.DropAction(ctx, actions.DropOptions{Commit: s.ID("two").String(), Force: true}))

	tip := s.Repo.Ref(mainRef)
	assert.Equal(t, []string{"three\n", "one\n", "base\n"}, messages(s, tip))
	assert.Equal(t, map[string]string{
		"README.md": "readme\n",
		"one.txt":   "one\n",
		"three.txt": "three\n",
	}, s.Repo.Files(tip))
}

func TestDropActionRootCommit(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, _ := newContext(t, s.Repo.Git)

	require.NoError(t, actions.DropAction(ctx, actions.DropOptions{Commit: s.ID("base").String(), Force: true}))

	tip := s.Repo.Ref(mainRef)
	assert.Equal(t, []string{"three\n", "two\n", "one\n"}, messages(s, tip))
	assert.NotContains(t, s.Repo.Files(tip), "README.md")
}

func TestMoveActionOntoCommit(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, _ := newContext(t, s.Repo.Git)

	err := actions.MoveAction(ctx, actions.MoveOptions{
		Commit: s.ID("one").String(),
		Onto:   s.ID("three").String(),
	})
	require.NoError(t, err)

	tip := s.Repo.Ref(mainRef)
	assert.Equal(t, []string{"one\n", "three\n", "two\n", "base\n"}, messages(s, tip))
	assert.Equal(t, s.Repo.Files(s.ID("three")), s.Repo.Files(tip))

	err = actions.MoveAction(ctx, actions.MoveOptions{Commit: "main", Onto: "main~0"})
	require.Error(t, err)
}

func TestMoveActionOntoBranch(t *testing.T) {
	s := scenario.Load(t, "linear")
	s.Repo.Branch("side", s.ID("base"))
	ctx, _ := newContext(t, s.Repo.Git)

	err := actions.MoveAction(ctx, actions.MoveOptions{Commit: s.ID("three").String(), Onto: "side"})
	require.NoError(t, err)

	assert.Equal(t, s.ID("two"), s.Repo.Ref(mainRef))
	side := s.Repo.Ref("refs/heads/side")
	assert.Equal(t, []plumbing.Hash{s.ID("base")}, s.Repo.Parents(side))
	assert.Equal(t, map[string]string{
		"README.md": "readme\n",
		"three.txt": "three\n",
	}, s.Repo.Files(side))
}

func TestMoveActionRequiresDestination(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, _ := newContext(t, s.Repo.Git)
	require.Error(t, actions.MoveAction(ctx, actions.MoveOptions{Commit: "main"}))
}

func TestActionsRefuseInterruptedUpdate(t *testing.T) {
	s := scenario.Load(t, "linear")
	ctx, out := newContext(t, s.Repo.Git)

	blob, err := s.Repo.Git.WriteBlob([]byte(`{"id": "x", "updates": []}`))
	require.NoError(t, err)
	s.Repo.SetRef(rebase.JournalPrefix+"x", blob)

	err = actions.RewordAction(ctx, actions.RewordOptions{Commit: "main", Message: "x"})
	require.ErrorIs(t, err, actions.ErrInterruptedUpdate)
	err = actions.DropAction(ctx, actions.DropOptions{Commit: "main", Force: true})
	require.ErrorIs(t, err, actions.ErrInterruptedUpdate)
	assert.Equal(t, s.ID("three"), s.Repo.Ref(mainRef))

	require.NoError(t, actions.RecoverAction(ctx))
	assert.Contains(t, out.String(), "Recovered 1 interrupted update.")

	out.Reset()
	require.NoError(t, actions.RecoverAction(ctx))
	assert.Contains(t, out.String(), "Nothing to recover.")

	require.NoError(t, actions.DropAction(ctx, actions.DropOptions{Commit: "main", Force: true}))
	assert.Equal(t, s.ID("two"), s.Repo.Ref(mainRef))
}

func TestMoveReportsConflicts(t *testing.T) {
	s := scenario.Load(t, "conflict")
	ctx, out := newContext(t, s.Repo.Git)

	// f1 conflicts on top of m1 and takes main with it; f2 applies cleanly
	// on base.
	err := actions.MoveAction(ctx, actions.MoveOptions{Commit: s.ID("f1").String(), Onto: s.ID("m1").String()})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 commit conflicted")
	assert.Contains(t, out.String(), "file.txt")
	assert.Equal(t, []plumbing.Hash{s.ID("m1")}, s.Repo.Parents(s.Repo.Ref(mainRef)))
	assert.Equal(t, []plumbing.Hash{s.ID("base")}, s.Repo.Parents(s.Repo.Ref("refs/heads/feature")))
}
