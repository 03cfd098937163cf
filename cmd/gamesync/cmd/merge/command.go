// Package merge provides the merge command implementation.
package merge

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the merge command and its subcommands.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "merge",
		GroupID: "maintenance",
		Short:   "Join fields of one store into another by steam_id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSubcommand(app, "genres", jobs.JobMergeGenres,
		"Copy genres and categories from the games store into the description store"))
	cmd.AddCommand(newSubcommand(app, "summary", jobs.JobMergeSummary,
		"Replace each game's long description with its summary"))
	return cmd
}

func newSubcommand(app appcontext.Interface, use, job, short string) *cobra.Command {
	var jobFlags *cmdutil.JobFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configure := func(cfg *jobs.Config) error {
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Run(ctx, job)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	return cmd
}
