// Package enrich provides the resumable enrichment commands: details,
// describe, tags, summarize and embed.
package enrich

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/cmdutil"
	"github.com/agentstation/gamesync/pkg/jobs"
)

const resumeNote = `
The run is resumable: ids already present in the output store are skipped
unless --force is given, and every result is appended as soon as it is ready.
Interrupting the run (Ctrl-C) lets in-flight ids finish and keeps the store
valid.`

// definition describes one enrichment command.
type definition struct {
	job     string
	use     string
	short   string
	long    string
	example string

	// workers selects the concurrency setting the command overrides.
	workers func(*jobs.Config) *int

	// extra adds command-specific flags and returns their configure step.
	extra func(*cobra.Command) func(*cobra.Command, *jobs.Config)
}

func newCommand(app appcontext.Interface, d definition) *cobra.Command {
	var (
		jobFlags    *cmdutil.JobFlags
		enrichFlags *cmdutil.EnrichFlags
		configExtra func(*cobra.Command, *jobs.Config)
	)

	cmd := &cobra.Command{
		Use:     d.use,
		GroupID: "core",
		Short:   d.short,
		Long:    d.long + "\n" + resumeNote,
		Example: d.example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configure := func(cfg *jobs.Config) error {
				enrichFlags.Apply(cmd, cfg, d.workers(cfg))
				if configExtra != nil {
					configExtra(cmd, cfg)
				}
				return jobFlags.Apply(cmd, cfg)
			}
			return cmdutil.RunJob(cmd, app, configure, func(ctx context.Context, r *jobs.Runner) (any, error) {
				return r.Run(ctx, d.job)
			})
		},
	}

	jobFlags = cmdutil.AddJobFlags(cmd)
	enrichFlags = cmdutil.AddEnrichFlags(cmd)
	if d.extra != nil {
		configExtra = d.extra(cmd)
	}
	return cmd
}

func storefrontWorkers(cfg *jobs.Config) *int { return &cfg.Storefront.Concurrency }

// NewDetailsCommand creates the details command.
func NewDetailsCommand(app appcontext.Interface) *cobra.Command {
	return newCommand(app, definition{
		job:   jobs.JobDetails,
		use:   "details",
		short: "Fetch the full game document for every master id",
		long: `Details calls the storefront details API for every id of the master list
and appends one game document per id to the games store. Prices are in
euros, texts are cleaned of markup and release dates are normalized.
Games the storefront has no data for are counted and skipped.`,
		example: `  gamesync details
  gamesync details --limit 100 --reverse
  gamesync details --validator data/validator.json`,
		workers: storefrontWorkers,
	})
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(app appcontext.Interface) *cobra.Command {
	return newCommand(app, definition{
		job:   jobs.JobDescribe,
		use:   "describe",
		short: "Fetch the cleaned long description for every master id",
		long: `Describe stores {steam_id, name, detailed_description} for every master id
whose description is not empty.`,
		example: `  gamesync describe
  gamesync describe --force --limit 10`,
		workers: storefrontWorkers,
	})
}

// NewTagsCommand creates the tags command.
func NewTagsCommand(app appcontext.Interface) *cobra.Command {
	return newCommand(app, definition{
		job:   jobs.JobTags,
		use:   "tags",
		short: "Scrape the user tags for every master id",
		long: `Tags reads the user-defined tags from each game's store page and stores
{steam_id, tags} for every game that has some.`,
		example: `  gamesync tags --limit 50`,
		workers: storefrontWorkers,
	})
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(app appcontext.Interface) *cobra.Command {
	return newCommand(app, definition{
		job:   jobs.JobSummarize,
		use:   "summarize",
		short: "Generate a catalog summary for every description",
		long: `Summarize asks a language model for a short Spanish summary of every record
of the description store and appends {steam_id, name, summary} to the
summary store. The backend is OpenRouter (OPENROUTER_API_KEY) or Gemini
(GEMINI_API_KEY).`,
		example: `  gamesync summarize
  gamesync summarize --backend gemini -c 3
  gamesync summarize --model openai/gpt-4o --limit 20`,
		workers: func(cfg *jobs.Config) *int { return &cfg.Summary.Concurrency },
		extra: func(cmd *cobra.Command) func(*cobra.Command, *jobs.Config) {
			backend := cmd.Flags().String("backend", "", "Summary backend: openrouter or gemini")
			model := cmd.Flags().String("model", "", "Model name for the selected backend")
			return func(cmd *cobra.Command, cfg *jobs.Config) {
				if cmd.Flags().Changed("backend") {
					cfg.Summary.Backend = *backend
				}
				if cmd.Flags().Changed("model") {
					cfg.Summary.Model = *model
				}
			}
		},
	})
}

// NewEmbedCommand creates the embed command.
func NewEmbedCommand(app appcontext.Interface) *cobra.Command {
	return newCommand(app, definition{
		job:   jobs.JobEmbed,
		use:   "embed",
		short: "Attach a semantic vector to every game",
		long: `Embed copies every record of the games store into the vector store with its
description cleaned of markup and a vector_embedding field appended. The
vector comes from the Gemini embedding API (GEMINI_API_KEY).`,
		example: `  gamesync embed
  gamesync embed --limit 100`,
		workers: func(cfg *jobs.Config) *int { return &cfg.Embedding.Concurrency },
	})
}
