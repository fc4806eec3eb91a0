// Package actions implements the stackgraph commands on top of the core
// packages.
//
// Each action takes a runtime.Context, which carries the repository, the
// configuration and the Splog. Actions that rewrite history share one
// pipeline: build the graph, edit it with a rebase.Editor, rebase, then
// materialize the reference updates and report them. Interactive input goes
// through the tui package and is only requested when flags leave a choice
// open.
package actions
