// Package tui provides the interactive parts of stackgraph: a commit picker
// built on bubbletea and message and confirmation prompts built on survey.
//
// Every entry point refuses to run when stdin or stdout is not a terminal,
// or when STACKGRAPH_NO_INTERACTIVE is set, so callers can fall back to
// flags.
package tui
