// Package rebase edits a segment graph as a graph of steps and replays it
// into new commits.
//
// An Editor is created from a graph snapshot. Callers select nodes with
// predicates, substitute, insert, move or remove steps, and finally call
// Rebase, which consumes the editor. Picks whose parents and message are
// unchanged keep their original commit id, so a rebase without edits
// rewrites nothing. Merge conflicts become conflicted commits in the
// Outcome rather than errors. Materialize then moves references and
// updates the index.
package rebase
