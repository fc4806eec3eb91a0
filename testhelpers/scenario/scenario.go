// Package scenario loads repository fixtures described in YAML into an
// in-memory repository, so tests can name commits instead of hashes.
package scenario

import (
	"embed"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"stackit.dev/stackgraph/testhelpers"
)

//go:embed testdata/*.yaml
var fixtures embed.FS

// Spec is the YAML shape of a fixture.
type Spec struct {
	Description string       `yaml:"description"`
	Commits     []CommitSpec `yaml:"commits"`
	// Refs maps full reference names to commit names
	Refs map[string]string `yaml:"refs"`
	// Head is the branch HEAD points at (short name)
	Head    string            `yaml:"head"`
	Remotes map[string]string `yaml:"remotes"`
}

// CommitSpec describes one commit. Files overlay the first parent's content;
// a null value deletes the path.
type CommitSpec struct {
	Name    string             `yaml:"name"`
	Message string             `yaml:"message"`
	Parents []string           `yaml:"parents"`
	Files   map[string]*string `yaml:"files"`
}

// Scenario is a loaded fixture.
type Scenario struct {
	T       testing.TB
	Repo    *testhelpers.Repo
	Commits map[string]plumbing.Hash
	Spec    Spec
}

// Load builds the named fixture from testdata/<name>.yaml.
func Load(t testing.TB, name string) *Scenario {
	t.Helper()

	data, err := fixtures.ReadFile(fmt.Sprintf("testdata/%s.yaml", name))
	require.NoError(t, err, "unknown fixture %s", name)
	return FromYAML(t, data)
}

// FromYAML builds a fixture from raw YAML.
func FromYAML(t testing.TB, data []byte) *Scenario {
	t.Helper()

	var spec Spec
	require.NoError(t, yaml.Unmarshal(data, &spec))

	s := &Scenario{
		T:       t,
		Repo:    testhelpers.NewRepo(t),
		Commits: make(map[string]plumbing.Hash),
		Spec:    spec,
	}

	for _, c := range spec.Commits {
		require.NotEmpty(t, c.Name, "commit without name")
		_, dup := s.Commits[c.Name]
		require.False(t, dup, "duplicate commit %s", c.Name)

		parents := make([]plumbing.Hash, 0, len(c.Parents))
		for _, p := range c.Parents {
			id, ok := s.Commits[p]
			require.True(t, ok, "commit %s references unknown parent %s", c.Name, p)
			parents = append(parents, id)
		}

		files := map[string]string{}
		if len(parents) > 0 {
			files = s.Repo.Files(parents[0])
		}
		for path, value := range c.Files {
			if value == nil {
				delete(files, path)
				continue
			}
			files[path] = *value
		}

		message := c.Message
		if message == "" {
			message = c.Name + "\n"
		}
		s.Commits[c.Name] = s.Repo.Commit(message, files, parents...)
	}

	for name, url := range spec.Remotes {
		require.NoError(t, s.Repo.Git.AddRemote(name, url))
	}

	for ref, commit := range spec.Refs {
		id, ok := s.Commits[commit]
		require.True(t, ok, "ref %s references unknown commit %s", ref, commit)
		s.Repo.SetRef(plumbing.ReferenceName(ref), id)
	}

	if spec.Head != "" {
		require.NoError(t, s.Repo.Git.SetHead(plumbing.NewBranchReferenceName(spec.Head)))
	}
	return s
}

// ID returns the id of a named commit
func (s *Scenario) ID(name string) plumbing.Hash {
	s.T.Helper()

	id, ok := s.Commits[name]
	require.True(s.T, ok, "unknown commit %s", name)
	return id
}

// Name returns the fixture name of a commit id, or its short hash
func (s *Scenario) Name(id plumbing.Hash) string {
	for name, c := range s.Commits {
		if c == id {
			return name
		}
	}
	return id.String()[:7]
}
