package git

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// TrackingRef returns the remote-tracking reference of a local branch.
//
// Branch configuration (branch.<name>.remote/merge) is consulted first, then
// the fetch refspecs of every configured remote. Only when the repository has
// no remotes configured at all is the ref deduced from the
// refs/remotes/<remote>/<branch> naming convention. ok is false when nothing
// matches or the matching ref does not exist.
func (r *Repository) TrackingRef(local plumbing.ReferenceName) (plumbing.ReferenceName, bool, error) {
	if !local.IsBranch() {
		return "", false, nil
	}

	r.mu.Lock()
	cfg, err := r.repo.Config()
	r.mu.Unlock()
	if err != nil {
		return "", false, fmt.Errorf("failed to read repository config: %w", err)
	}

	if name, ok := trackingFromBranchConfig(cfg, local); ok {
		return r.existing(name)
	}

	if len(cfg.Remotes) > 0 {
		for _, remoteName := range sortedRemoteNames(cfg) {
			if name, ok := mapThroughRefSpecs(cfg.Remotes[remoteName].Fetch, local); ok {
				if found, exists, err := r.existing(name); err != nil || exists {
					return found, exists, err
				}
			}
		}
		return "", false, nil
	}

	return r.deduceTrackingRef(local)
}

func trackingFromBranchConfig(cfg *config.Config, local plumbing.ReferenceName) (plumbing.ReferenceName, bool) {
	branch, ok := cfg.Branches[local.Short()]
	if !ok || branch.Remote == "" || branch.Merge == "" {
		return "", false
	}
	// "." means the upstream is another local branch.
	if branch.Remote == "." {
		return branch.Merge, true
	}
	if remote, ok := cfg.Remotes[branch.Remote]; ok {
		if name, ok := mapThroughRefSpecs(remote.Fetch, branch.Merge); ok {
			return name, true
		}
	}
	return plumbing.NewRemoteReferenceName(branch.Remote, branch.Merge.Short()), true
}

func mapThroughRefSpecs(specs []config.RefSpec, src plumbing.ReferenceName) (plumbing.ReferenceName, bool) {
	for _, spec := range specs {
		if !spec.Match(src) {
			continue
		}
		return spec.Dst(src), true
	}
	return "", false
}

func sortedRemoteNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// deduceTrackingRef is the compatibility fallback for repositories without
// remote configuration.
func (r *Repository) deduceTrackingRef(local plumbing.ReferenceName) (plumbing.ReferenceName, bool, error) {
	refs, err := r.ListRefs("refs/remotes/")
	if err != nil {
		return "", false, err
	}
	candidates := make([]plumbing.ReferenceName, 0, 1)
	for name := range refs {
		rest := strings.TrimPrefix(name.String(), "refs/remotes/")
		remote, branch, ok := strings.Cut(rest, "/")
		if !ok || remote == "" {
			continue
		}
		if branch == local.Short() {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	sortRefNames(candidates)
	return candidates[0], true, nil
}

func (r *Repository) existing(name plumbing.ReferenceName) (plumbing.ReferenceName, bool, error) {
	_, ok, err := r.RefTarget(name)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return name, true, nil
}

// RemoteNames returns configured remote names in sorted order
func (r *Repository) RemoteNames() ([]string, error) {
	r.mu.Lock()
	cfg, err := r.repo.Config()
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read repository config: %w", err)
	}
	return sortedRemoteNames(cfg), nil
}

// AddRemote configures a remote with the default fetch refspec
func (r *Repository) AddRemote(name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name:  name,
		URLs:  []string{url},
		Fetch: []config.RefSpec{config.RefSpec(fmt.Sprintf(config.DefaultFetchRefSpec, name))},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	return nil
}

// SetUpstream records branch.<name>.remote and branch.<name>.merge
func (r *Repository) SetUpstream(local plumbing.ReferenceName, remote string, merge plumbing.ReferenceName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}
	cfg.Branches[local.Short()] = &config.Branch{Name: local.Short(), Remote: remote, Merge: merge}
	if err := r.repo.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write repository config: %w", err)
	}
	return nil
}
