// Package sync provides the sync command implementation.
package sync

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the sync command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var jobFlags *cmdutil.JobFlags

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "maintenance",
		Short:   "Prune every derived store against the master list",
		Long: `Sync removes every record whose steam_id is no longer in the master list
from the games, description, summary, vector and tag stores.

Each store is backed up before it is rewritten. Only the last record of a
repeated id is kept and malformed lines are dropped. Stores already in sync
are not touched, and stores that do not exist yet are reported and skipped.
An empty master list is refused.`,
		Example: `  gamesync sync
  gamesync sync --dry-run
  gamesync sync --backup-policy versioned`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configure := func(cfg *jobs.Config) error {
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Run(ctx, jobs.JobSync)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	return cmd
}
