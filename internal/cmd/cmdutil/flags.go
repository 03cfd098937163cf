// Package cmdutil provides shared flags and the job-running glue for gamesync commands.
package cmdutil

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentstation/gamesync/internal/appcontext"
	"github.com/agentstation/gamesync/internal/cmd/output"
	"github.com/agentstation/gamesync/pkg/jobs"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/store"
)

// JobFlags holds the flags every job command accepts.
type JobFlags struct {
	DataDir      string
	DryRun       bool
	BackupPolicy string
}

// AddJobFlags adds the common job flags to a command.
func AddJobFlags(cmd *cobra.Command) *JobFlags {
	flags := &JobFlags{}

	cmd.Flags().StringVar(&flags.DataDir, "data-dir", "",
		"Directory holding the stores (default from config, then ./data)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false,
		"Report what would change without writing")
	cmd.Flags().StringVar(&flags.BackupPolicy, "backup-policy", "",
		"What to do when a backup exists: skip, versioned or fail")

	return flags
}

// Apply copies the flags the user set onto cfg.
func (f *JobFlags) Apply(cmd *cobra.Command, cfg *jobs.Config) error {
	if changed(cmd, "data-dir") {
		cfg.DataDir = f.DataDir
	}
	if changed(cmd, "dry-run") {
		cfg.DryRun = f.DryRun
	}
	if changed(cmd, "backup-policy") {
		policy, err := store.ParseBackupPolicy(f.BackupPolicy)
		if err != nil {
			return err
		}
		cfg.BackupPolicy = policy
	}
	return nil
}

// EnrichFlags holds the flags of the resumable enrichment commands.
type EnrichFlags struct {
	Force       bool
	Limit       int
	Reverse     bool
	Validator   string
	Concurrency int
}

// AddEnrichFlags adds the enrichment flags to a command.
func AddEnrichFlags(cmd *cobra.Command) *EnrichFlags {
	flags := &EnrichFlags{}

	cmd.Flags().BoolVar(&flags.Force, "force", false,
		"Process ids already present in the output store")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0,
		"Process at most this many ids (0 means all)")
	cmd.Flags().BoolVar(&flags.Reverse, "reverse", false,
		"Walk the master list from the end")
	cmd.Flags().StringVar(&flags.Validator, "validator", "",
		"Master-format list restricting the ids to process")
	cmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "c", 0,
		"Number of workers (1-10)")

	return flags
}

// Apply copies the flags the user set onto cfg. The concurrency flag sets
// the worker count of the collaborator the command talks to.
func (f *EnrichFlags) Apply(cmd *cobra.Command, cfg *jobs.Config, workers *int) {
	if changed(cmd, "force") {
		cfg.Force = f.Force
	}
	if changed(cmd, "limit") {
		cfg.Limit = f.Limit
	}
	if changed(cmd, "reverse") {
		cfg.Reverse = f.Reverse
	}
	if changed(cmd, "validator") {
		cfg.Validator = f.Validator
	}
	if changed(cmd, "concurrency") && workers != nil {
		*workers = f.Concurrency
	}
}

// RunJob builds a runner from the app config after configure has applied
// the command flags, runs fn with a context carrying the app logger and a
// fresh run id, and prints the report fn returns.
func RunJob(
	cmd *cobra.Command,
	app appcontext.Interface,
	configure func(*jobs.Config) error,
	fn func(ctx context.Context, r *jobs.Runner) (any, error),
) error {
	cfg := app.JobsConfig()
	if configure != nil {
		if err := configure(&cfg); err != nil {
			return err
		}
	}
	runner, err := app.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, app.Logger())
	ctx = logging.WithRunID(ctx, uuid.NewString())

	report, runErr := fn(ctx, runner)
	if report != nil && !isNilReport(report) {
		if err := output.Report(cmd.OutOrStdout(), app.OutputFormat(), report); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// isNilReport reports whether v is a typed nil, as returned next to an error.
func isNilReport(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		return rv.IsNil()
	default:
		return false
	}
}
