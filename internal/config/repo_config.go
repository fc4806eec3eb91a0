package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
)

// FileName is the config file inside the git directory
const FileName = ".stackgraph_config"

// Defaults used when a setting is absent
const (
	DefaultTrunk            = "main"
	DefaultWorkspaceRef     = "refs/heads/stackgraph/workspace"
	DefaultCommitsLimitHint = 1000
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Trunk            *string  `json:"trunk,omitempty"`
	Trunks           []string `json:"trunks,omitempty"`
	WorkspaceRef     *string  `json:"workspaceRef,omitempty"`
	CommitsLimitHint *int     `json:"commitsLimitHint,omitempty"`
	HardLimit        *int     `json:"hardLimit,omitempty"`
	IncludeTags      *bool    `json:"includeTags,omitempty"`
	WithRemotes      *bool    `json:"withRemotes,omitempty"`
	LogFile          *string  `json:"logFile,omitempty"`
}

// Path returns the config file location for a repository root
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", FileName)
}

// GetRepoConfig reads the repository configuration. A missing file yields
// the zero config.
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	data, err := os.ReadFile(Path(repoRoot))
	if errors.Is(err, os.ErrNotExist) {
		return &RepoConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read repo config: %w", err)
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	return &config, nil
}

// Save writes the configuration back to the repository
func (c *RepoConfig) Save(repoRoot string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(Path(repoRoot), data, 0600)
}

// PrimaryTrunk returns the primary trunk branch name, or "main"
func (c *RepoConfig) PrimaryTrunk() string {
	if c.Trunk != nil && *c.Trunk != "" {
		return *c.Trunk
	}
	return DefaultTrunk
}

// AllTrunks returns the primary trunk followed by additional trunks
func (c *RepoConfig) AllTrunks() []string {
	trunks := []string{c.PrimaryTrunk()}
	for _, t := range c.Trunks {
		if !slices.Contains(trunks, t) {
			trunks = append(trunks, t)
		}
	}
	return trunks
}

// IntegrationRefs returns the trunks as full branch references
func (c *RepoConfig) IntegrationRefs() []plumbing.ReferenceName {
	trunks := c.AllTrunks()
	refs := make([]plumbing.ReferenceName, len(trunks))
	for i, t := range trunks {
		refs[i] = plumbing.NewBranchReferenceName(t)
	}
	return refs
}

// IsTrunk checks if a branch is configured as a trunk
func (c *RepoConfig) IsTrunk(branch string) bool {
	return slices.Contains(c.AllTrunks(), branch)
}

// Workspace returns the workspace reference
func (c *RepoConfig) Workspace() plumbing.ReferenceName {
	if c.WorkspaceRef != nil && *c.WorkspaceRef != "" {
		return plumbing.ReferenceName(*c.WorkspaceRef)
	}
	return DefaultWorkspaceRef
}

// Limits returns the traversal hint and hard limit
func (c *RepoConfig) Limits() (hint, hard int) {
	hint = DefaultCommitsLimitHint
	if c.CommitsLimitHint != nil {
		hint = *c.CommitsLimitHint
	}
	if c.HardLimit != nil {
		hard = *c.HardLimit
	}
	return hint, hard
}

// Tags reports whether tags are attached to the graph; off by default
func (c *RepoConfig) Tags() bool {
	return c.IncludeTags != nil && *c.IncludeTags
}

// Remotes reports whether remote-tracking refs are traversed; on by default
func (c *RepoConfig) Remotes() bool {
	return c.WithRemotes == nil || *c.WithRemotes
}

// LogFilePath returns the configured log file, or ""
func (c *RepoConfig) LogFilePath() string {
	if c.LogFile == nil {
		return ""
	}
	return *c.LogFile
}

// SetTrunk sets the primary trunk
func (c *RepoConfig) SetTrunk(name string) error {
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil || name == "" {
		return fmt.Errorf("invalid trunk name %q", name)
	}
	c.Trunk = &name
	c.Trunks = slices.DeleteFunc(c.Trunks, func(t string) bool { return t == name })
	return nil
}

// AddTrunk adds an additional trunk branch
func (c *RepoConfig) AddTrunk(name string) error {
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil || name == "" {
		return fmt.Errorf("invalid trunk name %q", name)
	}
	if c.IsTrunk(name) {
		return fmt.Errorf("'%s' is already configured as a trunk", name)
	}
	c.Trunks = append(c.Trunks, name)
	return nil
}

// SetWorkspaceRef sets the workspace reference; it must be a full name
func (c *RepoConfig) SetWorkspaceRef(ref string) error {
	name := plumbing.ReferenceName(ref)
	if !name.IsBranch() {
		return fmt.Errorf("workspace reference %q must live under refs/heads/", ref)
	}
	if err := name.Validate(); err != nil {
		return fmt.Errorf("invalid workspace reference %q: %w", ref, err)
	}
	c.WorkspaceRef = &ref
	return nil
}

// SetLimits sets the traversal limits. A hard limit below the hint would
// stop traversal before the hint can apply.
func (c *RepoConfig) SetLimits(hint, hard int) error {
	if hint < 0 || hard < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if hard > 0 && hint > hard {
		return fmt.Errorf("commit limit hint %d exceeds hard limit %d", hint, hard)
	}
	c.CommitsLimitHint = &hint
	c.HardLimit = &hard
	return nil
}

// SetIncludeTags toggles tag attachment
func (c *RepoConfig) SetIncludeTags(enabled bool) {
	c.IncludeTags = &enabled
}

// SetLogFile sets the log file; empty disables file logging
func (c *RepoConfig) SetLogFile(path string) {
	if path == "" {
		c.LogFile = nil
		return
	}
	c.LogFile = &path
}
