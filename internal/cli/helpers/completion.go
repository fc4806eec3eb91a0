package helpers

import (
	"os"

	"github.com/spf13/cobra"

	"stackit.dev/stackgraph/internal/git"
)

// CompleteBranches is a helper for cobra.ValidArgsFunction and RegisterFlagCompletionFunc
// that returns all branch names in the repository.
func CompleteBranches(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	repo, err := git.OpenRepository(cwd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer func() { _ = repo.Close() }()

	refs, err := repo.LocalBranches()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Short())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
