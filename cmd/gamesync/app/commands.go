package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/cmd/gamesync/cmd/collect"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/enrich"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/filter"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/list"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/merge"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/pipeline"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/sync"
	"github.com/agentstation/gamesync/cmd/gamesync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
// This is where we wire up all the command handlers.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(collect.NewCommand(a))
	rootCmd.AddCommand(enrich.NewDetailsCommand(a))
	rootCmd.AddCommand(enrich.NewDescribeCommand(a))
	rootCmd.AddCommand(enrich.NewTagsCommand(a))
	rootCmd.AddCommand(enrich.NewSummarizeCommand(a))
	rootCmd.AddCommand(enrich.NewEmbedCommand(a))
	rootCmd.AddCommand(pipeline.NewCommand(a))

	// Maintenance commands
	rootCmd.AddCommand(filter.NewCommand(a))
	rootCmd.AddCommand(merge.NewCommand(a))
	rootCmd.AddCommand(sync.NewCommand(a))
	rootCmd.AddCommand(list.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
