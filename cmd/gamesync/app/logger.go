package app

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/gamesync/pkg/logging"
)

// NewLogger creates the application logger. Long enrichment runs report
// progress at info level, so quiet mode drops them and keeps warnings about
// rate limits and failed ids.
func NewLogger(config *Config) zerolog.Logger {
	level := resolveLogLevel(config, os.Stderr)

	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

func determineLogLevel(config *Config) string {
	return resolveLogLevel(config, io.Discard)
}

// resolveLogLevel picks the level in this order: --log-level or LOG_LEVEL,
// then -q, then -v, then info. Problems are reported to warn.
func resolveLogLevel(config *Config, warn io.Writer) string {
	if config.LogLevel != "" {
		level, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil || level > zerolog.ErrorLevel || level == zerolog.NoLevel {
			fmt.Fprintf(warn, "Warning: invalid log level %q, using info\n", config.LogLevel)
			return "info"
		}
		return level.String()
	}

	switch {
	case config.Quiet:
		if config.Verbose {
			fmt.Fprintln(warn, "Warning: both --verbose and --quiet given, using --quiet")
		}
		return "warn"
	case config.Verbose:
		return "debug"
	default:
		return "info"
	}
}
