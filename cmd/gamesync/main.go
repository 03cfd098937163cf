// Package main provides the entry point for the gamesync CLI tool.
package main

import (
	"context"
	"os"

	"github.com/agentstation/gamesync/cmd/gamesync/app"
	"github.com/agentstation/gamesync/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	a, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, stop := app.ContextWithSignals(context.Background(), a.Logger())
	runErr := a.Execute(ctx, os.Args[1:])
	stop()

	// The run context may already be cancelled by a signal.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		a.Logger().Error().Err(err).Msg("Shutdown failed")
	}

	app.ExitOnError(runErr)
}
