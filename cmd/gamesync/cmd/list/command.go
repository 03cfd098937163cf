// Package list provides the jobs command, which lists the registered jobs.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/output"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// NewCommand creates the jobs command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "jobs",
		GroupID: "maintenance",
		Short:   "List the jobs the pipeline can run",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return output.Report(cmd.OutOrStdout(), app.OutputFormat(), jobs.Jobs())
		},
	}
}
