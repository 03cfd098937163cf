// Package appcontext defines what gamesync commands need from the
// application, so commands can be tested against a Mock.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/gamesync/pkg/jobs"
)

// Interface is implemented by the CLI App and by Mock.
type Interface interface {
	// JobsConfig returns a copy of the job configuration. Commands apply
	// their flags to the copy before building a runner from it.
	JobsConfig() jobs.Config

	// NewRunner resolves cfg and creates the runner a command executes.
	NewRunner(cfg jobs.Config) (*jobs.Runner, error)

	Logger() *zerolog.Logger

	// OutputFormat is table, json, yaml, or empty to detect from stdout.
	OutputFormat() string

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
