package output

import (
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/workspace"
)

// Describer returns the one-line description of a commit, usually its
// subject.
type Describer func(id plumbing.Hash) string

// TreeRenderOptions configures rendering behavior
type TreeRenderOptions struct {
	// Short prints one line per segment instead of one per commit.
	Short bool
	// Current is the branch HEAD points at.
	Current plumbing.ReferenceName
	// Reverse prints bases first.
	Reverse bool
}

// StackTreeRenderer draws the stacks of a workspace, newest commits first.
type StackTreeRenderer struct {
	ws       *workspace.Workspace
	describe Describer
}

// NewStackTreeRenderer creates a renderer. describe may be nil.
func NewStackTreeRenderer(ws *workspace.Workspace, describe Describer) *StackTreeRenderer {
	if describe == nil {
		describe = func(plumbing.Hash) string { return "" }
	}
	return &StackTreeRenderer{ws: ws, describe: describe}
}

// Render returns the lines for every stack, separated by blank lines
func (r *StackTreeRenderer) Render(opts TreeRenderOptions) []string {
	var out []string
	for i := range r.ws.Stacks {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, r.RenderStack(i, opts)...)
	}
	return out
}

// RenderStack returns the lines of the index-th stack
func (r *StackTreeRenderer) RenderStack(index int, opts TreeRenderOptions) []string {
	stack := r.ws.Stacks[index]
	bar := ColorStack("│", index)

	var lines []string
	for _, seg := range stack.Segments {
		lines = append(lines, r.segmentLine(seg, index, opts))
		if opts.Short {
			continue
		}
		for _, c := range seg.RemoteCommits {
			lines = append(lines, bar+" "+r.commitLine(c))
		}
		for _, c := range seg.Commits {
			lines = append(lines, bar+" "+r.commitLine(c))
		}
	}

	base := "┴ " + ColorDim("(root)")
	if !stack.Base.IsZero() {
		base = "┴ " + ColorHash(git.ShortHash(stack.Base))
		if desc := r.describe(stack.Base); desc != "" {
			base += " " + ColorDim(desc)
		}
	}
	lines = append(lines, ColorStack(base, index))

	if opts.Reverse {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	return lines
}

func (r *StackTreeRenderer) segmentLine(seg workspace.StackSegment, index int, opts TreeRenderOptions) string {
	isCurrent := seg.RefName != "" && seg.RefName == opts.Current
	symbol := "◯"
	if isCurrent {
		symbol = "◉"
	}

	var b strings.Builder
	b.WriteString(ColorStack(symbol, index))
	b.WriteString(" ")
	if seg.RefName == "" {
		b.WriteString(ColorDim("anonymous"))
	} else {
		b.WriteString(ColorBranchName(seg.RefName.Short(), isCurrent))
	}
	if seg.RemoteRef != "" {
		b.WriteString(" ")
		b.WriteString(ColorRemote("(" + seg.RemoteRef.Short() + ")"))
	}
	if opts.Short {
		b.WriteString(" ")
		b.WriteString(ColorDim(countLabel(len(seg.Commits))))
		if n := conflicted(seg.Commits); n > 0 {
			b.WriteString(" ")
			b.WriteString(ColorConflict(countNoun(n, "conflicted commit", "conflicted commits")))
		}
	}
	return b.String()
}

func (r *StackTreeRenderer) commitLine(c workspace.StackCommit) string {
	var b strings.Builder
	b.WriteString(commitSymbol(c.Flags))
	b.WriteString(" ")
	b.WriteString(ColorHash(git.ShortHash(c.ID)))
	if desc := r.describe(c.ID); desc != "" {
		b.WriteString(" ")
		b.WriteString(desc)
	}
	switch {
	case c.Flags.Has(workspace.Conflicted):
		b.WriteString(" ")
		b.WriteString(ColorConflict("(conflicted)"))
	case c.Flags.Has(workspace.RemoteOnly):
		b.WriteString(" ")
		b.WriteString(ColorRemote("(remote)"))
	}
	return b.String()
}

func commitSymbol(f workspace.Flags) string {
	switch {
	case f.Has(workspace.Conflicted):
		return ColorConflict("✗")
	case f.Has(workspace.RemoteOnly):
		return ColorRemote("○")
	case f.Has(workspace.Shared):
		return "◐"
	default:
		return "●"
	}
}

func conflicted(commits []workspace.StackCommit) int {
	n := 0
	for _, c := range commits {
		if c.Flags.Has(workspace.Conflicted) {
			n++
		}
	}
	return n
}

func countLabel(n int) string {
	return countNoun(n, "commit", "commits")
}

func countNoun(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
