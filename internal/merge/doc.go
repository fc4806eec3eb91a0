// Package merge implements three-way content and tree merges.
//
// Merges never fail on overlapping edits. Conflicting regions are resolved to
// "ours" in the produced tree and reported by path, so callers can encode the
// conflict as data.
package merge
