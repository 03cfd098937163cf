// Package pipeline provides the pipeline command implementation.
package pipeline

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the pipeline command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		jobFlags    *cmdutil.JobFlags
		enrichFlags *cmdutil.EnrichFlags
	)

	cmd := &cobra.Command{
		Use:     "pipeline [job...]",
		GroupID: "core",
		Short:   "Run jobs in sequence, stopping at the first failure",
		Long: `Pipeline runs the named jobs one after another, or the configured pipeline
when none are named (by default: collect, filter-names, details,
filter-tags, sync). Every job must be known before anything runs.

Run "gamesync jobs" for the list of job names.`,
		Example: `  gamesync pipeline
  gamesync pipeline details merge-genres summarize merge-summary embed sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configure := func(cfg *jobs.Config) error {
				enrichFlags.Apply(cmd, cfg, nil)
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Pipeline(ctx, args)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	enrichFlags = cmdutil.AddEnrichFlags(cmd)
	return cmd
}
