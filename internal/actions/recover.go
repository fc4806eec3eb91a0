package actions

import (
	"stackit.dev/stackgraph/internal/rebase"
	"stackit.dev/stackgraph/internal/runtime"
)

// RecoverAction rolls back reference updates interrupted by a crash
func RecoverAction(ctx *runtime.Context) error {
	n, err := rebase.RecoverJournals(ctx, ctx.Repo, ctx.Logger())
	if err != nil {
		return err
	}
	if n == 0 {
		ctx.Splog.Info("Nothing to recover.")
		return nil
	}
	ctx.Splog.Info("Recovered %d interrupted %s.", n, plural(n, "update", "updates"))
	return nil
}
