// Package workspace projects a segment graph into the stacks a user works
// with and exports graphs for bug reports.
package workspace
