// Package filter provides the filter command implementation.
package filter

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the filter command and its subcommands.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filter",
		GroupID: "maintenance",
		Short:   "Drop blocklisted titles or tags in place",
		Long: `Filter rewrites a store in place after backing it up.

The built-in blocklists can be replaced per list with a YAML file:

  names:
    - soundtrack
  tags:
    - steam cloud`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSubcommand(app, "names", jobs.JobFilterNames,
		"Drop master list entries whose name contains a blocklisted word"))
	cmd.AddCommand(newSubcommand(app, "tags", jobs.JobFilterTags,
		"Drop blocklisted categories from every game record"))
	return cmd
}

func newSubcommand(app appcontext.Interface, use, job, short string) *cobra.Command {
	var (
		jobFlags *cmdutil.JobFlags
		list     string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configure := func(cfg *jobs.Config) error {
				if cmd.Flags().Changed("list") {
					cfg.FilterList = list
				}
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Run(ctx, job)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	cmd.Flags().StringVar(&list, "list", "", "YAML file overriding the blocklists")
	return cmd
}
