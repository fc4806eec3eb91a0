package rebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"stackit.dev/stackgraph/internal/conflict"
	stackerrors "stackit.dev/stackgraph/internal/errors"
	"stackit.dev/stackgraph/internal/git"
)

// JournalPrefix holds journals of in-flight materializations.
const JournalPrefix = "refs/stackgraph/journal/"

// MaterializeOptions control Materialize.
type MaterializeOptions struct {
	// UpdateIndex rewrites index entries that differ between the old and
	// new HEAD trees when HEAD's branch moves.
	UpdateIndex bool
	Logger      *slog.Logger
}

func (o MaterializeOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// MaterializeResult reports what Materialize changed.
type MaterializeResult struct {
	Updates []RefUpdate
	// IndexEdits counts index entries that were upserted or removed.
	IndexEdits int
}

// journal is the record written before any reference moves.
type journal struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Head      string         `json:"head,omitempty"`
	Updates   []journalEntry `json:"updates"`
}

type journalEntry struct {
	Name string `json:"name"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// Materialize moves every anchored reference to its new target.
//
// Every reference is first checked against the value captured when the
// editor was created, and a journal listing all updates is stored under
// JournalPrefix. References are then updated one by one with
// compare-and-swap; if one fails, those already moved are put back. The
// journal is deleted last, so a crash in between leaves it for
// RecoverJournals.
func (o *Outcome) Materialize(ctx context.Context, opts MaterializeOptions) (*MaterializeResult, error) {
	log := opts.logger()
	updates := o.Updates()
	result := &MaterializeResult{Updates: updates}
	if len(updates) == 0 {
		return result, nil
	}

	for _, u := range updates {
		current, _, err := o.repo.RefTarget(u.Name)
		if err != nil {
			return nil, err
		}
		if current != u.Old {
			return nil, stackerrors.NewStaleRefError(u.Name.String(), git.ShortHash(u.Old), git.ShortHash(current))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	journalRef, err := o.writeJournal(updates)
	if err != nil {
		return nil, err
	}
	log.Debug("wrote materialization journal", "ref", journalRef, "updates", len(updates))

	for i, u := range updates {
		err = ctx.Err()
		if err == nil {
			err = o.repo.UpdateRef(u.Name, u.Old, u.New)
		}
		if err != nil {
			rollbackErr := o.rollback(updates[:i], log)
			if rollbackErr != nil {
				// Leave the journal for RecoverJournals.
				return nil, errors.Join(err, rollbackErr)
			}
			if delErr := o.deleteJournal(journalRef); delErr != nil {
				log.Warn("failed to delete journal", "ref", journalRef, "error", delErr)
			}
			return nil, fmt.Errorf("failed to update %s: %w", u.Name, err)
		}
		log.Debug("updated reference", "ref", u.Name, "old", git.ShortHash(u.Old), "new", git.ShortHash(u.New))
	}

	if opts.UpdateIndex {
		if result.IndexEdits, err = o.updateIndex(updates); err != nil {
			return nil, err
		}
	}

	if err := o.deleteJournal(journalRef); err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Outcome) writeJournal(updates []RefUpdate) (plumbing.ReferenceName, error) {
	j := journal{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Timestamp: time.Now().UTC(),
		Head:      o.head.String(),
	}
	for _, u := range updates {
		j.Updates = append(j.Updates, journalEntry{Name: u.Name.String(), Old: u.Old.String(), New: u.New.String()})
	}
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal journal: %w", err)
	}
	blob, err := o.repo.WriteBlob(data)
	if err != nil {
		return "", err
	}
	name := plumbing.ReferenceName(JournalPrefix + j.ID)
	if err := o.repo.UpdateRef(name, plumbing.ZeroHash, blob); err != nil {
		return "", fmt.Errorf("failed to store journal: %w", err)
	}
	return name, nil
}

func (o *Outcome) deleteJournal(name plumbing.ReferenceName) error {
	id, exists, err := o.repo.RefTarget(name)
	if err != nil || !exists {
		return err
	}
	return o.repo.DeleteRef(name, id)
}

// rollback restores already applied updates, newest first.
func (o *Outcome) rollback(applied []RefUpdate, log *slog.Logger) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		u := applied[i]
		if err := restore(o.repo, u); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", u.Name, err))
			continue
		}
		log.Debug("restored reference", "ref", u.Name, "to", git.ShortHash(u.Old))
	}
	return errors.Join(errs...)
}

// restore moves a reference from u.New back to u.Old, deleting it when it
// did not exist before.
func restore(repo *git.Repository, u RefUpdate) error {
	if u.Old.IsZero() {
		return repo.DeleteRef(u.Name, u.New)
	}
	return repo.UpdateRef(u.Name, u.New, u.Old)
}

// updateIndex applies the difference between the old and new HEAD trees to
// the index.
func (o *Outcome) updateIndex(updates []RefUpdate) (int, error) {
	var moved *RefUpdate
	for i := range updates {
		if updates[i].Name == o.head {
			moved = &updates[i]
		}
	}
	if moved == nil {
		return 0, nil
	}

	oldEntries, err := o.flattenWorkingTree(moved.Old)
	if err != nil {
		return 0, err
	}
	newEntries, err := o.flattenWorkingTree(moved.New)
	if err != nil {
		return 0, err
	}
	edits := git.IndexEditsForTrees(oldEntries, newEntries)
	if len(edits) == 0 {
		return 0, nil
	}

	idx, err := o.repo.ReadIndex()
	if err != nil {
		return 0, err
	}
	git.ApplyIndexEdits(idx, edits)
	if err := o.repo.WriteIndex(idx); err != nil {
		return 0, err
	}
	return len(edits), nil
}

func (o *Outcome) flattenWorkingTree(id plumbing.Hash) (map[string]git.Entry, error) {
	if id.IsZero() {
		return map[string]git.Entry{}, nil
	}
	tree, err := workingTree(o.repo, id)
	if err != nil {
		return nil, err
	}
	return o.repo.FlattenTree(tree)
}

// RecoverJournals rolls back materializations interrupted by a crash and
// returns how many journals were processed. References that moved again
// since are left alone.
func RecoverJournals(ctx context.Context, repo *git.Repository, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	refs, err := repo.ListRefs(JournalPrefix)
	if err != nil {
		return 0, err
	}
	names := make([]plumbing.ReferenceName, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	recovered := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		data, err := repo.ReadBlob(refs[name])
		if err != nil {
			return recovered, err
		}
		var j journal
		if err := json.Unmarshal(data, &j); err != nil {
			return recovered, fmt.Errorf("failed to parse journal %s: %w", strings.TrimPrefix(name.String(), JournalPrefix), err)
		}

		for i := len(j.Updates) - 1; i >= 0; i-- {
			u := RefUpdate{
				Name: plumbing.ReferenceName(j.Updates[i].Name),
				Old:  plumbing.NewHash(j.Updates[i].Old),
				New:  plumbing.NewHash(j.Updates[i].New),
			}
			current, _, err := repo.RefTarget(u.Name)
			if err != nil {
				return recovered, err
			}
			switch current {
			case u.Old:
			case u.New:
				if err := restore(repo, u); err != nil {
					return recovered, err
				}
				log.Info("restored reference from journal", "ref", u.Name.Short(), "to", git.ShortHash(u.Old))
			default:
				log.Warn("reference moved since interrupted update, leaving it", "ref", u.Name.Short())
			}
		}

		if err := repo.DeleteRef(name, refs[name]); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// IsConflictedHead reports whether HEAD's branch points at a conflicted
// commit after materialization.
func (o *Outcome) IsConflictedHead() (bool, error) {
	id, ok := o.Tips[o.head]
	if !ok {
		return false, nil
	}
	commit, err := o.repo.FindCommit(id)
	if err != nil {
		return false, err
	}
	return conflict.IsConflicted(commit), nil
}
