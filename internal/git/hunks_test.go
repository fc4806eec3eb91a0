package git_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/git"
)

func TestDiffHunks(t *testing.T) {
	oldContent := []byte("a\nb\nc\nd\ne\n")
	newContent := []byte("a\nB\nc\nd\ne\nf\n")

	hunks := git.DiffHunks("file.txt", oldContent, newContent)
	require.Len(t, hunks, 2)

	require.Equal(t, "file.txt", hunks[0].File)
	require.Equal(t, 2, hunks[0].OldStart)
	require.Equal(t, 1, hunks[0].OldCount)
	require.Equal(t, 2, hunks[0].NewStart)
	require.Equal(t, 1, hunks[0].NewCount)
	require.Equal(t, "-b\n+B\n", hunks[0].Content)

	require.Equal(t, 6, hunks[1].OldStart)
	require.Equal(t, 0, hunks[1].OldCount)
	require.Equal(t, 6, hunks[1].NewStart)
	require.Equal(t, 1, hunks[1].NewCount)
}

func TestApplyHunks(t *testing.T) {
	oldContent := []byte("a\nb\nc\nd\ne\n")
	newContent := []byte("a\nB\nc\nd\ne\nf\n")
	hunks := git.DiffHunks("file.txt", oldContent, newContent)

	t.Run("applies a subset", func(t *testing.T) {
		out, err := git.ApplyHunks(oldContent, newContent, hunks[1:])
		require.NoError(t, err)
		require.Equal(t, "a\nb\nc\nd\ne\nf\n", string(out))

		out, err = git.ApplyHunks(oldContent, newContent, hunks[:1])
		require.NoError(t, err)
		require.Equal(t, "a\nB\nc\nd\ne\n", string(out))
	})

	t.Run("applies all hunks", func(t *testing.T) {
		out, err := git.ApplyHunks(oldContent, newContent, hunks)
		require.NoError(t, err)
		require.Equal(t, string(newContent), string(out))
	})

	t.Run("rejects unknown hunks", func(t *testing.T) {
		_, err := git.ApplyHunks(oldContent, newContent, []git.Hunk{{OldStart: 4, OldCount: 1, NewStart: 4, NewCount: 1}})
		require.ErrorIs(t, err, git.ErrHunkMismatch)
	})
}

func TestSplitLines(t *testing.T) {
	require.Nil(t, git.SplitLines(""))
	require.Equal(t, []string{"a\n", "b"}, git.SplitLines("a\nb"))
	require.Equal(t, []string{"a\n", "b\n"}, git.SplitLines("a\nb\n"))
}
