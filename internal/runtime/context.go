package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/config"
	"stackit.dev/stackgraph/internal/git"
	"stackit.dev/stackgraph/internal/graph"
	"stackit.dev/stackgraph/internal/output"
	"stackit.dev/stackgraph/internal/workspace"
)

// Context provides access to the repository and output for commands
type Context struct {
	context.Context
	Repo     *git.Repository
	Config   *config.RepoConfig
	Splog    *output.Splog
	RepoRoot string
}

// NewContext wires an already opened repository
func NewContext(ctx context.Context, repo *git.Repository, cfg *config.RepoConfig, splog *output.Splog) *Context {
	if cfg == nil {
		cfg = &config.RepoConfig{}
	}
	if splog == nil {
		splog = output.NewSplog(io.Discard)
	}
	return &Context{
		Context:  ctx,
		Repo:     repo,
		Config:   cfg,
		Splog:    splog,
		RepoRoot: repo.Root(),
	}
}

// GetContext opens the repository containing the working directory and
// reads its configuration.
func GetContext(ctx context.Context, stdout io.Writer) (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	repo, err := git.OpenRepository(cwd)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}

	root := repo.Root()
	if wt, err := repo.GoGit().Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	cfg, err := config.GetRepoConfig(root)
	if err != nil {
		return nil, err
	}
	splog, err := output.NewSplogWithFile(stdout, output.LogFilePath(cfg.LogFilePath()))
	if err != nil {
		return nil, err
	}

	c := NewContext(ctx, repo, cfg, splog)
	c.RepoRoot = root
	return c, nil
}

// Logger returns the structured logger handed to core packages
func (c *Context) Logger() *slog.Logger {
	return c.Splog.Logger()
}

// Close releases the log file and repository handles
func (c *Context) Close() error {
	if err := c.Repo.Close(); err != nil {
		return err
	}
	return c.Splog.Close()
}

// GraphOptions derives traversal options from the configuration
func (c *Context) GraphOptions() graph.Options {
	hint, hard := c.Config.Limits()
	return graph.Options{
		HardLimit:        hard,
		CommitsLimitHint: hint,
		WithTags:         c.Config.Tags(),
		WithRemotes:      c.Config.Remotes(),
		Integration:      c.existing(c.Config.IntegrationRefs()),
		Logger:           c.Logger(),
	}
}

// BuildGraph builds the commit graph of every local branch
func (c *Context) BuildGraph() (*graph.Graph, error) {
	refs, err := c.Repo.LocalBranches()
	if err != nil {
		return nil, err
	}
	tips, err := graph.TipsFromRefs(c.Repo, refs)
	if err != nil {
		return nil, err
	}
	return graph.Build(c.Repo, tips, c.GraphOptions())
}

// Workspace projects g into stacks
func (c *Context) Workspace(g *graph.Graph) (*workspace.Workspace, error) {
	return workspace.Project(g, workspace.Options{
		WorkspaceRef: c.Config.Workspace(),
		Commits:      c.Repo,
	})
}

func (c *Context) existing(refs []plumbing.ReferenceName) []plumbing.ReferenceName {
	var out []plumbing.ReferenceName
	for _, ref := range refs {
		if _, ok, err := c.Repo.RefTarget(ref); err == nil && ok {
			out = append(out, ref)
		}
	}
	return out
}
