package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gamesync/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.DebugLevel))

	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")

	assert.Contains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warning message")
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRunID(ctx, "run-123")
	ctx = logging.WithJob(ctx, "summarize")
	ctx = logging.WithRecordID(ctx, 730)
	ctx = logging.WithStore(ctx, "data/summaries.ndjson")

	logging.Ctx(ctx).Info().Msg("processed")

	tl.AssertContains(t, `"run_id":"run-123"`)
	tl.AssertContains(t, `"job":"summarize"`)
	tl.AssertContains(t, `"id":730`)
	tl.AssertContains(t, `"store":"data/summaries.ndjson"`)
	assert.Equal(t, "run-123", logging.RunID(ctx))
	assert.Len(t, tl.Lines(), 1)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
}

func TestWithFields(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithFields(ctx, map[string]any{"kept": 2, "removed": 1})

	logging.Ctx(ctx).Info().Msg("reconciled")

	tl.AssertContains(t, `"kept":2`)
	tl.AssertContains(t, `"removed":1`)
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	tests := []struct {
		name     string
		level    string
		contains []string
		excludes []string
	}{
		{
			name:     "debug level",
			level:    "debug",
			contains: []string{`"level":"debug"`, `"level":"info"`},
		},
		{
			name:     "error level only",
			level:    "error",
			contains: []string{`"level":"error"`},
			excludes: []string{`"level":"info"`},
		},
		{
			name:     "unknown level falls back to info",
			level:    "loud",
			contains: []string{`"level":"info"`},
			excludes: []string{`"level":"debug"`},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "job.log")
			logger := logging.NewLoggerFromConfig(&logging.Config{
				Level:  tc.level,
				Format: "json",
				Output: path,
			})

			logger.Debug().Msg("debug")
			logger.Info().Msg("info")
			logger.Error().Msg("error")

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			for _, s := range tc.contains {
				assert.Contains(t, string(data), s)
			}
			for _, s := range tc.excludes {
				assert.NotContains(t, string(data), s)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	tl := logging.NewTestLogger(t)
	logging.Progress(tl.Logger, 25, 200).Int64("failed", 1).Msg("Progress")
	logging.Progress(tl.Logger, 3, 0).Msg("Progress")

	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.EqualValues(t, 12, entries[0]["percent"])
	assert.EqualValues(t, 1, entries[0]["failed"])
	assert.NotContains(t, entries[1], "percent")
	assert.Equal(t, []string{"Progress", "Progress"}, tl.Messages(zerolog.InfoLevel))
}

func TestConfigFieldsAndDiscard(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	path := filepath.Join(t.TempDir(), "job.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Format: "json",
		Output: path,
		Fields: map[string]any{"job": "details", "workers": 1},
	})
	logger.Warn().Msg("rate limited")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job":"details"`)
	assert.Contains(t, string(data), `"workers":1`)

	quiet := logging.NewLoggerFromConfig(&logging.Config{Level: "off", Output: "discard"})
	assert.Equal(t, zerolog.Disabled, quiet.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}
