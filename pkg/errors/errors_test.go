package errors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/gamesync/pkg/errors"
)

func TestParseError(t *testing.T) {
	t.Run("with line", func(t *testing.T) {
		err := pkgerrors.NewParseError("ndjson", "raw-desc.ndjson", 12, errors.New("unexpected end of JSON input"))
		assert.Equal(t, "ndjson parse error at raw-desc.ndjson:12: unexpected end of JSON input", err.Error())
		assert.True(t, pkgerrors.IsParse(err))
	})

	t.Run("whole file", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "json", File: "master.json", Message: "not an array"}
		assert.Equal(t, "json parse error in master.json: not an array", err.Error())
	})

	t.Run("unwrap", func(t *testing.T) {
		base := errors.New("bad token")
		err := pkgerrors.NewParseError("json", "", 0, base)
		assert.Equal(t, base, err.Unwrap())
	})
}

func TestMissingInputError(t *testing.T) {
	err := pkgerrors.NewMissingInputError("master", "data/steam-top-games.json", nil)
	assert.Equal(t, "missing master input data/steam-top-games.json", err.Error())
	assert.True(t, pkgerrors.IsMissingInput(err))
	assert.True(t, pkgerrors.IsNotFound(err))

	wrapped := fmt.Errorf("sync: %w", err)
	assert.True(t, pkgerrors.IsMissingInput(wrapped))
}

func TestUpstreamError(t *testing.T) {
	t.Run("status code", func(t *testing.T) {
		err := pkgerrors.NewUpstreamError("storefront", 730, 503, nil)
		assert.Contains(t, err.Error(), "storefront")
		assert.Contains(t, err.Error(), "730")
		assert.Contains(t, err.Error(), "503")
		assert.True(t, errors.Is(err, pkgerrors.ErrUpstream))
		assert.True(t, pkgerrors.IsRetryable(err))
	})

	t.Run("client error is not retryable", func(t *testing.T) {
		err := pkgerrors.NewUpstreamError("openrouter", 1, 400, errors.New("bad request"))
		assert.False(t, pkgerrors.IsRetryable(err))
	})

	t.Run("transport failure is retryable", func(t *testing.T) {
		err := pkgerrors.WrapUpstream("gemini", 1, 0, errors.New("connection reset"))
		assert.True(t, pkgerrors.IsRetryable(err))
	})

	t.Run("429 counts as rate limited", func(t *testing.T) {
		err := pkgerrors.NewUpstreamError("storefront", 1, 429, nil)
		assert.True(t, pkgerrors.IsRateLimited(err))
		assert.False(t, pkgerrors.IsRetryable(err))
	})
}

func TestRateLimitError(t *testing.T) {
	err := pkgerrors.NewRateLimitError("storefront", 10, time.Minute)
	assert.Contains(t, err.Error(), "retry after 1m0s")
	assert.True(t, pkgerrors.IsRateLimited(err))
	assert.True(t, errors.Is(err, pkgerrors.ErrUpstream))
	assert.False(t, pkgerrors.IsRetryable(err))
}

func TestValidationError(t *testing.T) {
	err := pkgerrors.NewValidationError("concurrency", 0, "must be positive")
	assert.Equal(t, "validation failed for field concurrency: must be positive", err.Error())
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestIOError(t *testing.T) {
	base := errors.New("disk full")
	err := pkgerrors.WrapIO("write", "/data/games.ndjson", base)

	var ioErr *pkgerrors.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Operation)
	assert.Equal(t, base, ioErr.Unwrap())
	assert.Nil(t, pkgerrors.WrapIO("read", "x", nil))
}

func TestJobError(t *testing.T) {
	inner := pkgerrors.NewMissingInputError("master", "m.json", nil)
	err := &pkgerrors.JobError{Job: "details", Err: inner}
	assert.Contains(t, err.Error(), "job details failed")
	assert.True(t, pkgerrors.IsMissingInput(err))
}

func TestWrapHelpersNil(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapParse("json", "f", 1, nil))
	assert.Nil(t, pkgerrors.WrapUpstream("s", 1, 500, nil))
	assert.False(t, pkgerrors.IsRetryable(nil))
}
