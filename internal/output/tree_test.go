package output

import (
	"regexp"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackit.dev/stackgraph/internal/workspace"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func plain(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = ansi.ReplaceAllString(l, "")
	}
	return out
}

func hash(c byte) plumbing.Hash {
	return plumbing.NewHash(strings.Repeat(string(c), 40))
}

func testWorkspace() *workspace.Workspace {
	return &workspace.Workspace{Stacks: []workspace.Stack{
		{
			Tip:  hash('b'),
			Base: hash('1'),
			Segments: []workspace.StackSegment{
				{
					RefName:   "refs/heads/feature-2",
					RemoteRef: "refs/remotes/origin/feature-2",
					Commits: []workspace.StackCommit{
						{ID: hash('b'), Flags: workspace.LocalOnly | workspace.Conflicted},
					},
					RemoteCommits: []workspace.StackCommit{
						{ID: hash('c'), Flags: workspace.RemoteOnly},
					},
				},
				{
					RefName: "refs/heads/feature-1",
					Commits: []workspace.StackCommit{
						{ID: hash('a'), Flags: workspace.Shared},
						{ID: hash('9'), Flags: workspace.LocalOnly},
					},
				},
			},
		},
		{
			Tip:      hash('d'),
			Segments: []workspace.StackSegment{{Commits: []workspace.StackCommit{{ID: hash('d')}}}},
		},
	}}
}

func describe(id plumbing.Hash) string {
	return "subject " + id.String()[:1]
}

func TestStackTreeRenderer_Render(t *testing.T) {
	r := NewStackTreeRenderer(testWorkspace(), describe)
	lines := plain(r.Render(TreeRenderOptions{Current: "refs/heads/feature-1"}))

	require.Equal(t, []string{
		"◯ feature-2 (origin/feature-2)",
		"│ ○ ccccccc subject c (remote)",
		"│ ✗ bbbbbbb subject b (conflicted)",
		"◉ feature-1 (current)",
		"│ ◐ aaaaaaa subject a",
		"│ ● 9999999 subject 9",
		"┴ 1111111 subject 1",
		"",
		"◯ anonymous",
		"│ ● ddddddd subject d",
		"┴ (root)",
	}, lines)
}

func TestStackTreeRenderer_Short(t *testing.T) {
	r := NewStackTreeRenderer(testWorkspace(), nil)
	lines := plain(r.RenderStack(0, TreeRenderOptions{Short: true, Reverse: true}))

	assert.Equal(t, []string{
		"┴ 1111111",
		"◯ feature-1 2 commits",
		"◯ feature-2 (origin/feature-2) 1 commit 1 conflicted commit",
	}, lines)
}
