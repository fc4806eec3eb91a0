package graph

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

func postProcess(repo Repository, g *Graph, opts Options) error {
	if err := associateRemotes(repo, g); err != nil {
		return err
	}
	if opts.WithTags {
		if err := attachTags(repo, g); err != nil {
			return err
		}
	}
	for i := range g.segments {
		for j := range g.segments[i].Commits {
			refs := g.segments[i].Commits[j].Refs
			sort.Slice(refs, func(a, b int) bool { return refs[a] < refs[b] })
		}
	}
	return addUnbornHead(repo, g)
}

// associateRemotes records the remote-tracking ref of every local segment.
func associateRemotes(repo Repository, g *Graph) error {
	for i := range g.segments {
		seg := &g.segments[i]
		if !seg.RefName.IsBranch() {
			continue
		}
		remote, ok, err := repo.TrackingRef(seg.RefName)
		if err != nil {
			return err
		}
		if ok {
			seg.RemoteRef = remote
		}
	}
	return nil
}

func attachTags(repo Repository, g *Graph) error {
	tags, err := repo.ListRefs("refs/tags/")
	if err != nil {
		return err
	}
	names := make([]plumbing.ReferenceName, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		// Tags are decoration; one that does not peel to a commit is skipped.
		id, err := repo.Peel(name)
		if err != nil {
			continue
		}
		if c, ok := g.Commit(id); ok {
			c.Refs = append(c.Refs, name)
		}
	}
	return nil
}

// addUnbornHead adds the empty root placeholder for a HEAD branch that has
// no commits yet.
func addUnbornHead(repo Repository, g *Graph) error {
	head, unborn, err := repo.HeadRef()
	if err != nil {
		return err
	}
	if !unborn || head == "" {
		return nil
	}
	if _, exists := g.SegmentByRef(head); exists {
		return nil
	}
	g.addSegment(head)
	return nil
}
