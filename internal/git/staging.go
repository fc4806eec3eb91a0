package git

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// StageNormal is the stage of an unconflicted entry. go-git's index.Merged
// constant is 1, which collides with the ancestor stage.
const StageNormal index.Stage = 0

// IndexEdit is one entry-level change to the index. A zero Hash removes the
// entry at Path/Stage.
type IndexEdit struct {
	Path  string
	Stage index.Stage
	Hash  plumbing.Hash
	Mode  filemode.FileMode
}

// ReadIndex returns the repository index. Repositories without an index
// yield an empty one.
func (r *Repository) ReadIndex() (*index.Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return idx, nil
}

// WriteIndex stores the index
func (r *Repository) WriteIndex(idx *index.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// UpsertIndexEntry sets the entry at path/stage to id and mode. Touched
// entries lose their cached stat data so the next status compares content.
// It reports whether a new entry was inserted; only then are entries
// re-sorted.
func UpsertIndexEntry(idx *index.Index, path string, id plumbing.Hash, mode filemode.FileMode, stage index.Stage) bool {
	inserted := upsertEntry(idx, path, id, mode, stage)
	if inserted {
		sortIndexEntries(idx)
	}
	idx.Cache = nil
	return inserted
}

// RemoveIndexEntry drops the entry at path/stage. Removing a path that is
// not present is a no-op.
func RemoveIndexEntry(idx *index.Index, path string, stage index.Stage) bool {
	removed := removeEntry(idx, path, stage)
	if removed {
		idx.Cache = nil
	}
	return removed
}

// ApplyIndexEdits applies a batch of edits, sorting at most once.
func ApplyIndexEdits(idx *index.Index, edits []IndexEdit) {
	inserted := false
	for _, edit := range edits {
		if edit.Hash.IsZero() {
			removeEntry(idx, edit.Path, edit.Stage)
			continue
		}
		if upsertEntry(idx, edit.Path, edit.Hash, edit.Mode, edit.Stage) {
			inserted = true
		}
	}
	if inserted {
		sortIndexEntries(idx)
	}
	if len(edits) > 0 {
		idx.Cache = nil
	}
}

// IndexEditsForTrees computes the stage-0 edits that move an index from
// matching oldTree to matching newTree.
func IndexEditsForTrees(oldEntries, newEntries map[string]Entry) []IndexEdit {
	var edits []IndexEdit
	for path, entry := range newEntries {
		if prev, ok := oldEntries[path]; ok && prev == entry {
			continue
		}
		edits = append(edits, IndexEdit{Path: path, Stage: StageNormal, Hash: entry.Hash, Mode: entry.Mode})
	}
	for path := range oldEntries {
		if _, ok := newEntries[path]; !ok {
			edits = append(edits, IndexEdit{Path: path, Stage: StageNormal})
		}
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Path < edits[j].Path })
	return edits
}

func upsertEntry(idx *index.Index, path string, id plumbing.Hash, mode filemode.FileMode, stage index.Stage) bool {
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage == stage {
			e.Hash = id
			e.Mode = mode
			clearStat(e)
			return false
		}
	}
	e := &index.Entry{Name: path, Hash: id, Mode: mode, Stage: stage}
	idx.Entries = append(idx.Entries, e)
	return true
}

func removeEntry(idx *index.Index, path string, stage index.Stage) bool {
	for i, e := range idx.Entries {
		if e.Name == path && e.Stage == stage {
			idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
			return true
		}
	}
	return false
}

func clearStat(e *index.Entry) {
	e.CreatedAt = time.Time{}
	e.ModifiedAt = time.Time{}
	e.Dev, e.Inode = 0, 0
	e.UID, e.GID = 0, 0
	e.Size = 0
}

func sortIndexEntries(idx *index.Index) {
	sort.SliceStable(idx.Entries, func(i, j int) bool {
		a, b := idx.Entries[i], idx.Entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Stage < b.Stage
	})
}
