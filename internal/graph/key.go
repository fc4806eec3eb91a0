package graph

import (
	"math"
	"time"
)

// Key orders commits during traversal. Generation numbers come from the
// commit-graph file; commits outside it have none.
type Key struct {
	Generation    uint64
	HasGeneration bool
	Time          time.Time
}

// effectiveGeneration treats a missing generation as the largest possible
// value, i.e. younger than anything that has one.
func (k Key) effectiveGeneration() uint64 {
	if !k.HasGeneration {
		return math.MaxUint64
	}
	return k.Generation
}

// Compare orders keys youngest first: by generation descending, then by
// committer time descending. It returns a negative number when a sorts
// before b, zero when they tie and a positive number otherwise.
//
// Mixing keys with and without generation never falls back to time-only
// comparison; doing so would break transitivity.
func Compare(a, b Key) int {
	ga, gb := a.effectiveGeneration(), b.effectiveGeneration()
	switch {
	case ga > gb:
		return -1
	case ga < gb:
		return 1
	}

	ta, tb := a.Time.Unix(), b.Time.Unix()
	switch {
	case ta > tb:
		return -1
	case ta < tb:
		return 1
	}
	return 0
}

// Less reports whether a sorts strictly before b
func Less(a, b Key) bool {
	return Compare(a, b) < 0
}
