// Package git provides the object and reference store used by stackgraph.
//
// It wraps go-git and provides a Go-friendly interface for:
//   - Object access (commits, trees, blobs) and content-addressed writes
//   - Reference reads and compare-and-swap updates
//   - Commit ordering keys backed by the commit-graph file
//   - Remote-tracking resolution, index surgery and line hunks
//
// This package should be the only place where repository storage is touched.
package git
