package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"stackit.dev/stackgraph/internal/git"
)

// Result is the outcome of a tree merge. Tree is always a writable tree:
// conflicting paths hold the auto-resolved content (ours, or the surviving
// side of a delete/modify).
type Result struct {
	Tree      plumbing.Hash
	Conflicts []string
}

// Clean reports whether the merge had no conflicts
func (r Result) Clean() bool {
	return len(r.Conflicts) == 0
}

type sideEntry struct {
	entry   git.Entry
	present bool
}

// Trees merges ours and theirs against base, path by path.
func Trees(repo *git.Repository, base, ours, theirs plumbing.Hash) (Result, error) {
	if ours == theirs {
		return Result{Tree: ours}, nil
	}
	if base == ours || (git.IsTreeEmpty(base) && git.IsTreeEmpty(ours)) {
		return Result{Tree: theirs}, nil
	}
	if base == theirs || (git.IsTreeEmpty(base) && git.IsTreeEmpty(theirs)) {
		return Result{Tree: ours}, nil
	}

	baseEntries, err := repo.FlattenTree(base)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read base tree: %w", err)
	}
	oursEntries, err := repo.FlattenTree(ours)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read our tree: %w", err)
	}
	theirsEntries, err := repo.FlattenTree(theirs)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read their tree: %w", err)
	}

	paths := make(map[string]struct{}, len(oursEntries)+len(theirsEntries))
	for _, m := range []map[string]git.Entry{baseEntries, oursEntries, theirsEntries} {
		for p := range m {
			paths[p] = struct{}{}
		}
	}

	merged := make(map[string]git.Entry, len(paths))
	conflicts := make(map[string]struct{})
	for path := range paths {
		b := lookup(baseEntries, path)
		o := lookup(oursEntries, path)
		t := lookup(theirsEntries, path)

		entry, keep, conflicted, err := mergeEntry(repo, b, o, t)
		if err != nil {
			return Result{}, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		if conflicted {
			conflicts[path] = struct{}{}
		}
		if keep {
			merged[path] = entry
		}
	}

	for _, path := range resolveDirectoryFileCollisions(merged, oursEntries) {
		conflicts[path] = struct{}{}
	}

	tree, err := repo.BuildTree(merged)
	if err != nil {
		return Result{}, fmt.Errorf("failed to write merged tree: %w", err)
	}
	return Result{Tree: tree, Conflicts: sortedKeys(conflicts)}, nil
}

// Octopus folds pairwise merges: trees[0] is merged with trees[i] against
// bases[i-1] for every following tree.
func Octopus(repo *git.Repository, trees, bases []plumbing.Hash) (Result, error) {
	if len(trees) == 0 {
		return Result{}, fmt.Errorf("octopus merge needs at least one tree")
	}
	if len(bases) != len(trees)-1 {
		return Result{}, fmt.Errorf("octopus merge of %d trees needs %d bases, got %d", len(trees), len(trees)-1, len(bases))
	}

	result := Result{Tree: trees[0]}
	conflicts := make(map[string]struct{})
	for i := 1; i < len(trees); i++ {
		step, err := Trees(repo, bases[i-1], result.Tree, trees[i])
		if err != nil {
			return Result{}, err
		}
		for _, p := range step.Conflicts {
			conflicts[p] = struct{}{}
		}
		result.Tree = step.Tree
	}
	result.Conflicts = sortedKeys(conflicts)
	return result, nil
}

func lookup(m map[string]git.Entry, path string) sideEntry {
	e, ok := m[path]
	return sideEntry{entry: e, present: ok}
}

func (s sideEntry) equal(other sideEntry) bool {
	if s.present != other.present {
		return false
	}
	return !s.present || s.entry == other.entry
}

func mergeEntry(repo *git.Repository, b, o, t sideEntry) (entry git.Entry, keep, conflicted bool, err error) {
	switch {
	case o.equal(t):
		return o.entry, o.present, false, nil
	case b.equal(o):
		return t.entry, t.present, false, nil
	case b.equal(t):
		return o.entry, o.present, false, nil
	}

	// Both sides changed the path differently.
	if !o.present {
		return t.entry, true, true, nil
	}
	if !t.present {
		return o.entry, true, true, nil
	}
	if !isBlob(o.entry.Mode) || !isBlob(t.entry.Mode) {
		return o.entry, true, true, nil
	}

	mode, modeConflict := mergeMode(b, o.entry.Mode, t.entry.Mode)

	var baseContent []byte
	if b.present && isBlob(b.entry.Mode) {
		if baseContent, err = repo.ReadBlob(b.entry.Hash); err != nil {
			return git.Entry{}, false, false, err
		}
	}
	oursContent, err := repo.ReadBlob(o.entry.Hash)
	if err != nil {
		return git.Entry{}, false, false, err
	}
	theirsContent, err := repo.ReadBlob(t.entry.Hash)
	if err != nil {
		return git.Entry{}, false, false, err
	}

	content, contentConflict := Lines(baseContent, oursContent, theirsContent)
	id := o.entry.Hash
	switch {
	case o.entry.Hash == t.entry.Hash:
	case string(content) == string(theirsContent):
		id = t.entry.Hash
	case string(content) != string(oursContent):
		if id, err = repo.WriteBlob(content); err != nil {
			return git.Entry{}, false, false, err
		}
	}
	return git.Entry{Mode: mode, Hash: id}, true, modeConflict || contentConflict, nil
}

func mergeMode(b sideEntry, ours, theirs filemode.FileMode) (filemode.FileMode, bool) {
	switch {
	case ours == theirs:
		return ours, false
	case b.present && b.entry.Mode == ours:
		return theirs, false
	case b.present && b.entry.Mode == theirs:
		return ours, false
	}
	return ours, true
}

func isBlob(mode filemode.FileMode) bool {
	return mode == filemode.Regular || mode == filemode.Executable || mode == filemode.Deprecated
}

// resolveDirectoryFileCollisions removes entries that would make a path both a
// file and a directory. Our side's shape wins; the colliding paths are
// returned as conflicts.
func resolveDirectoryFileCollisions(merged, ours map[string]git.Entry) []string {
	dirs := make(map[string]struct{})
	for path := range merged {
		for i := 0; i < len(path); i++ {
			if path[i] == '/' {
				dirs[path[:i]] = struct{}{}
			}
		}
	}

	var collisions []string
	for dir := range dirs {
		if _, isFile := merged[dir]; !isFile {
			continue
		}
		collisions = append(collisions, dir)
	}
	sort.Strings(collisions)

	for _, dir := range collisions {
		if _, stillFile := merged[dir]; !stillFile {
			continue
		}
		if _, oursIsFile := ours[dir]; oursIsFile {
			prefix := dir + "/"
			for path := range merged {
				if strings.HasPrefix(path, prefix) {
					delete(merged, path)
				}
			}
			continue
		}
		delete(merged, dir)
	}
	return collisions
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
