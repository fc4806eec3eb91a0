package workspace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/klauspost/compress/zstd"

	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/graph"
)

// ExportOptions control the diagnostic export.
type ExportOptions struct {
	// Redact replaces reference names, remote names and commit ids with
	// stable labels. Topology is preserved.
	Redact bool
}

// Export writes g as a Graphviz digraph: one node per segment, one edge per
// fork point labeled "upper-index:base-index".
func Export(w io.Writer, g *graph.Graph, opts ExportOptions) error {
	bw := bufio.NewWriter(w)
	l := newLabeler(opts.Redact)

	fmt.Fprintln(bw, "digraph stackgraph {")
	fmt.Fprintln(bw, "  node [shape=box];")
	for _, seg := range g.Segments() {
		fmt.Fprintf(bw, "  s%d [label=%s];\n", seg.ID, strconv.Quote(l.segmentLabel(seg)))
	}
	for _, e := range g.Edges() {
		attrs := fmt.Sprintf("label=\"%d:%d\"", e.UpperCommit, e.BaseCommit)
		if e.Order > 0 {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(bw, "  s%d -> s%d [%s];\n", e.Upper, e.Base, attrs)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// ExportCompressed writes the export as a zstd stream.
func ExportCompressed(w io.Writer, g *graph.Graph, opts ExportOptions) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := Export(enc, g, opts); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// labeler hands out stable labels in order of first use.
type labeler struct {
	redact  bool
	refs    map[string]string
	remotes map[string]string
	commits map[plumbing.Hash]string
}

func newLabeler(redact bool) *labeler {
	return &labeler{
		redact:  redact,
		refs:    make(map[string]string),
		remotes: make(map[string]string),
		commits: make(map[plumbing.Hash]string),
	}
}

func (l *labeler) segmentLabel(seg *graph.Segment) string {
	var b strings.Builder
	if seg.IsAnonymous() {
		b.WriteString("anonymous")
	} else {
		b.WriteString(l.ref(seg.RefName))
	}
	if seg.Integration {
		b.WriteString(" (integration)")
	}
	if seg.RemoteRef != "" {
		b.WriteString("\nremote: ")
		b.WriteString(l.ref(seg.RemoteRef))
	}
	if seg.IsEmpty() {
		b.WriteString("\nunborn")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d commits: %s", len(seg.Commits), l.commit(seg.Commits[0].ID))
	if len(seg.Commits) > 1 {
		fmt.Fprintf(&b, "..%s", l.commit(seg.Commits[len(seg.Commits)-1].ID))
	}
	for _, c := range seg.Commits {
		for _, r := range c.Refs {
			fmt.Fprintf(&b, "\n%s @ %s", l.ref(r), l.commit(c.ID))
		}
		if c.Truncated {
			fmt.Fprintf(&b, "\ntruncated @ %s", l.commit(c.ID))
		}
	}
	return b.String()
}

// ref labels a reference. Remote-tracking refs keep their branch label so
// a redacted remote still lines up with its local branch.
func (l *labeler) ref(name plumbing.ReferenceName) string {
	if !l.redact {
		return name.Short()
	}
	if name.IsRemote() {
		remote, branch, ok := strings.Cut(strings.TrimPrefix(name.String(), "refs/remotes/"), "/")
		if ok {
			return l.label(l.remotes, remote, "remote") + "/" + l.label(l.refs, branch, "ref")
		}
	}
	short := name.Short()
	if name.IsTag() {
		return "tag/" + l.label(l.refs, short, "ref")
	}
	return l.label(l.refs, short, "ref")
}

func (l *labeler) commit(id plumbing.Hash) string {
	if !l.redact {
		return git.ShortHash(id)
	}
	if label, ok := l.commits[id]; ok {
		return label
	}
	label := "c" + strconv.Itoa(len(l.commits))
	l.commits[id] = label
	return label
}

func (l *labeler) label(m map[string]string, key, prefix string) string {
	if label, ok := m[key]; ok {
		return label
	}
	label := prefix + "-" + strconv.Itoa(len(m))
	m[key] = label
	return label
}
