// Package logging provides structured logging for gamesync jobs using zerolog.
// Console output is used when stderr is a terminal and JSON lines otherwise,
// so long batch runs can be tailed by a person or shipped to a log pipeline.
//
// Example usage:
//
//	ctx := logging.WithJob(ctx, "summarize")
//	ctx = logging.WithRecordID(ctx, 730)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Summary failed")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger serves contexts that carry no logger, such as library use
// outside the CLI.
var defaultLogger = NewLoggerFromConfig(&Config{
	Level:   os.Getenv("LOG_LEVEL"),
	Format:  os.Getenv("LOG_FORMAT"),
	NoColor: os.Getenv("NO_COLOR") != "",
})

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default logger and the zerolog global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Info starts an info event on the default logger.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Progress starts an info event reporting how far a job got through its
// queue. Percent is omitted when the total is unknown.
func Progress(logger *zerolog.Logger, done, total int64) *zerolog.Event {
	ev := logger.Info().Int64("done", done).Int64("total", total)
	if total > 0 {
		ev = ev.Int64("percent", done*100/total)
	}
	return ev
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
