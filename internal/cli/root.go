// Package cli defines the stackgraph command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackgraph",
		Short: "Edit stacked branches as one commit graph",
		Long: `stackgraph treats every local branch as part of one commit graph.

Commits can be reworded, dropped, moved between branches and created on any
branch without checking it out. Descendants are rebased in memory, and
conflicts are recorded in commits instead of stopping the rebase.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print warnings and errors")

	rootCmd.AddCommand(
		newLogCmd(),
		newGraphCmd(),
		newRewordCmd(),
		newDropCmd(),
		newMoveCmd(),
		newCommitCmd(),
		newRecoverCmd(),
	)

	return rootCmd
}
