package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/gamesync/pkg/jobs"
	"github.com/agentstation/gamesync/pkg/logging"
)

// Mock is an Interface for command tests. Runners are built from Config and
// RunnerOptions, so tests can point jobs at a temp directory and swap the
// collaborators for stubs.
type Mock struct {
	Config        jobs.Config
	RunnerOptions []jobs.Option

	// Format defaults to json so tests can decode the report.
	Format string
	Log    *zerolog.Logger

	// Runners records every runner handed to a command.
	Runners []*jobs.Runner
}

// JobsConfig returns a copy of Config.
func (m *Mock) JobsConfig() jobs.Config {
	cfg := m.Config
	cfg.Pipeline = append([]string(nil), m.Config.Pipeline...)
	return cfg
}

// NewRunner builds a runner with RunnerOptions and records it.
func (m *Mock) NewRunner(cfg jobs.Config) (*jobs.Runner, error) {
	r, err := jobs.NewRunner(cfg, m.RunnerOptions...)
	if err != nil {
		return nil, err
	}
	m.Runners = append(m.Runners, r)
	return r, nil
}

// Logger returns Log or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.Log != nil {
		return m.Log
	}
	return logging.NewNopLogger()
}

// OutputFormat returns Format or json.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

func (m *Mock) Version() string { return "dev" }
func (m *Mock) Commit() string  { return "unknown" }
func (m *Mock) Date() string    { return "unknown" }
func (m *Mock) BuiltBy() string { return "test" }

var _ Interface = (*Mock)(nil)
