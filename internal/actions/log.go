package actions

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/runtime"
)

// LogOptions contains options for the log command
type LogOptions struct {
	Short   bool
	Reverse bool
	// Stack limits output to the stack with this name.
	Stack string
}

// LogAction displays the stacks of the workspace
func LogAction(ctx *runtime.Context, opts LogOptions) error {
	g, err := ctx.BuildGraph()
	if err != nil {
		return err
	}
	ws, err := ctx.Workspace(g)
	if err != nil {
		return err
	}
	if len(ws.Stacks) == 0 {
		ctx.Splog.Info("No stacks found.")
		return nil
	}

	head, _, err := ctx.Repo.HeadRef()
	if err != nil {
		return err
	}
	renderer := output.NewStackTreeRenderer(ws, func(id plumbing.Hash) string {
		return describe(ctx, id)
	})
	renderOpts := output.TreeRenderOptions{
		Short:   opts.Short,
		Current: head,
		Reverse: opts.Reverse,
	}

	var lines []string
	if opts.Stack == "" {
		lines = renderer.Render(renderOpts)
	} else {
		found := false
		for i, stack := range ws.Stacks {
			if stack.Name() == opts.Stack {
				lines = renderer.RenderStack(i, renderOpts)
				found = true
				break
			}
		}
		if !found {
			return &stackNotFoundError{name: opts.Stack}
		}
	}

	ctx.Splog.Page(strings.Join(lines, "\n"))
	ctx.Splog.Newline()
	return nil
}

type stackNotFoundError struct {
	name string
}

func (e *stackNotFoundError) Error() string {
	return "no stack named " + e.name
}
