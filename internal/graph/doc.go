// Package graph builds the segment graph of a repository.
//
// History reachable from a set of reference tips is collected youngest first
// and split into segments: maximal first-parent runs of commits owned by one
// reference (or by none, for merged-in side history). Edges record the exact
// commit where a segment forks from the one below it.
//
// A Graph is a read-only snapshot. It is rebuilt for every operation.
package graph
