// Package app provides the application context and dependency management
// for the gamesync CLI. It centralizes configuration, logging and the
// construction of job runners so that commands stay thin.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/jobs"
)

// App represents the gamesync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Command output, stdout when nil
	out io.Writer

	// Extra runner options, used by tests to inject collaborators.
	mu         sync.RWMutex
	runnerOpts []jobs.Option
}

// New creates a new App instance with the given version information.
// The app is initialized with the configuration found in the environment,
// the .env files and the config file, which functional options can replace.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	// Load configuration
	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.NewConfigError("app", "loading config", err)
	}
	app.config = config

	// Initialize logger
	logger := NewLogger(config)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the output format selected by flag or config.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// JobsConfig returns a copy of the job configuration.
func (a *App) JobsConfig() jobs.Config {
	cfg := a.config.Jobs
	cfg.Collect.Passes = append([]string(nil), cfg.Collect.Passes...)
	cfg.Pipeline = append([]string(nil), cfg.Pipeline...)
	return cfg
}

// NewRunner creates a job runner for cfg.
func (a *App) NewRunner(cfg jobs.Config) (*jobs.Runner, error) {
	a.mu.RLock()
	opts := a.runnerOpts
	a.mu.RUnlock()
	return jobs.NewRunner(cfg, opts...)
}

// Shutdown performs graceful shutdown of the application. Jobs stop on
// context cancellation and flush their output stores themselves, so there
// is nothing left to release beyond a final log line.
func (a *App) Shutdown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Debug().Msg("Shutdown complete")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithRunnerOptions passes opts to every job runner the app creates
// (useful for testing).
func WithRunnerOptions(opts ...jobs.Option) Option {
	return func(a *App) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.runnerOpts = append(a.runnerOpts, opts...)
		return nil
	}
}

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
