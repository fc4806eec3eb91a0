package actions

import (
	"io"

	"stackit.dev/stackgraph/internal/runtime"
	"stackit.dev/stackgraph/internal/workspace"
)

// GraphOptions contains options for the graph command
type GraphOptions struct {
	Output io.Writer
	// Redact replaces names and ids with stable labels.
	Redact bool
	// Compress writes a zstd stream.
	Compress bool
}

// GraphAction exports the segment graph for diagnostics
func GraphAction(ctx *runtime.Context, opts GraphOptions) error {
	g, err := ctx.BuildGraph()
	if err != nil {
		return err
	}
	ctx.Splog.Debug("exporting %d segments, %d commits", g.Len(), g.CommitCount())

	exportOpts := workspace.ExportOptions{Redact: opts.Redact}
	if opts.Compress {
		return workspace.ExportCompressed(opts.Output, g, exportOpts)
	}
	return workspace.Export(opts.Output, g, exportOpts)
}
