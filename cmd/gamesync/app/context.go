package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// ExitInterrupted is the status used when a second signal aborts a run.
const ExitInterrupted = 130

// ContextWithSignals returns a context cancelled by the first SIGINT or
// SIGTERM. Enrichment jobs stop dispatching ids when it is cancelled and let
// the ids in flight finish, so every record they write is complete. A second
// signal exits at once. The stop function releases the signal handler.
func ContextWithSignals(parent context.Context, logger *zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-signals:
			logger.Warn().Str("signal", sig.String()).
				Msg("Stopping after the ids in flight; signal again to abort")
			cancel()
		case <-done:
			return
		}
		select {
		case <-signals:
			os.Exit(ExitInterrupted)
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(signals)
		close(done)
		cancel()
	}
}
