// Package hunklock matches uncommitted changes against advisory locks.
//
// A lock says that a change depends on a commit already in some stack, for
// example because it edits lines that commit introduced. Locks are computed
// elsewhere and keyed by the change's fingerprint; this package only looks
// them up to suggest where a change should be committed.
package hunklock

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"
	"lukechampine.com/blake3"

	"stackit.dev/stackgraph/internal/engine"
)

// Lock ties a change to a commit in a stack.
type Lock struct {
	Stack  string
	Commit plumbing.Hash
}

// Locks maps change fingerprints to the locks they hold.
type Locks map[string][]Lock

// Fingerprint identifies a change by its path and the content it writes.
// Selected hunks are hashed instead of the full content.
func Fingerprint(c engine.Change) string {
	h := blake3.New(32, nil)
	h.Write([]byte(c.Path))
	h.Write([]byte("\n"))
	h.Write([]byte(c.Kind.String()))
	h.Write([]byte("\n"))
	switch {
	case len(c.Hunks) > 0:
		for _, hunk := range c.Hunks {
			h.Write([]byte(hunk.Header()))
			h.Write([]byte("\n"))
			h.Write([]byte(hunk.Content))
		}
	case !c.Blob.IsZero():
		h.Write(c.Blob[:])
	default:
		h.Write([]byte(strconv.Itoa(len(c.Content))))
		h.Write([]byte("\n"))
		h.Write(c.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Add records that c depends on lock. Duplicate locks are ignored.
func (l Locks) Add(c engine.Change, lock Lock) {
	key := Fingerprint(c)
	for _, existing := range l[key] {
		if existing == lock {
			return
		}
	}
	l[key] = append(l[key], lock)
}

// For returns the locks held by c
func (l Locks) For(c engine.Change) []Lock {
	return l[Fingerprint(c)]
}

// Suggest returns the one lock every locked change agrees on. ok is false
// when no change is locked or the locks disagree.
func Suggest(locks Locks, changes []engine.Change) (lock Lock, ok bool) {
	seen := make(map[Lock]struct{})
	for _, c := range changes {
		for _, l := range locks.For(c) {
			seen[l] = struct{}{}
		}
	}
	if len(seen) != 1 {
		return Lock{}, false
	}
	for l := range seen {
		lock = l
	}
	return lock, true
}

// Stacks lists the stacks the changes are locked to, sorted.
func Stacks(locks Locks, changes []engine.Change) []string {
	set := make(map[string]struct{})
	for _, c := range changes {
		for _, l := range locks.For(c) {
			set[l.Stack] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

type lockDoc struct {
	Stack  string `json:"stack"`
	Commit string `json:"commit"`
}

// Load reads locks stored as a JSON object from fingerprints to lists of
// {"stack", "commit"} pairs.
func Load(r io.Reader) (Locks, error) {
	var doc map[string][]lockDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse locks: %w", err)
	}
	locks := make(Locks, len(doc))
	for key, entries := range doc {
		for _, e := range entries {
			if !plumbing.IsHash(e.Commit) {
				return nil, fmt.Errorf("lock for %s: invalid commit %q", key, e.Commit)
			}
			locks[key] = append(locks[key], Lock{Stack: e.Stack, Commit: plumbing.NewHash(e.Commit)})
		}
	}
	return locks, nil
}

// Write stores locks in the format Load reads
func (l Locks) Write(w io.Writer) error {
	doc := make(map[string][]lockDoc, len(l))
	for key, entries := range l {
		for _, e := range entries {
			doc[key] = append(doc[key], lockDoc{Stack: e.Stack, Commit: e.Commit.String()})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
