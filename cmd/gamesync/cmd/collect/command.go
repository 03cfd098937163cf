// Package collect provides the collect command implementation.
package collect

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the collect command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		jobFlags *cmdutil.JobFlags
		target   int
		passes   []string
	)

	cmd := &cobra.Command{
		Use:     "collect",
		GroupID: "core",
		Short:   "Rebuild the master list from the storefront search",
		Long: `Collect walks the storefront search results page by page and rewrites
the master list with every game it finds.

Each pass uses one search order and stops once it has found --target games,
when the listing ends, or after twice --target results. Passes run in order;
a game found again keeps its first position and takes the later name.
The master list is left alone when the search returns nothing.`,
		Example: `  gamesync collect                         # most played, then relevance
  gamesync collect --target 500            # smaller list
  gamesync collect --pass CCU_DESC         # a single pass
  gamesync collect --dry-run -o json       # count without writing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configure := func(cfg *jobs.Config) error {
				if cmd.Flags().Changed("target") {
					cfg.Collect.Target = target
				}
				if cmd.Flags().Changed("pass") {
					cfg.Collect.Passes = passes
				}
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Run(ctx, jobs.JobCollect)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	cmd.Flags().IntVar(&target, "target", 0, "Games each pass aims for")
	cmd.Flags().StringSliceVar(&passes, "pass", nil,
		`Search orders to run, in sequence (CCU_DESC, or "" for relevance)`)

	return cmd
}
