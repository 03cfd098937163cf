package enhancer

import (
	"context"
	stderrors "errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/skipset"
)

// RunConfig controls one enrichment run.
type RunConfig struct {
	// Concurrency is the number of workers.
	Concurrency int

	// MaxRetries bounds the attempts made for an id failing with retryable
	// upstream errors.
	MaxRetries int

	// MaxRateLimitRetries bounds the rate-limit responses tolerated per id.
	MaxRateLimitRetries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration

	// RateLimitSleep is how long every worker pauses after a rate limit.
	RateLimitSleep time.Duration

	// Valid restricts the run to ids the validator lists. Nil allows all.
	Valid catalog.IDSet

	// Skip holds ids already in the output store.
	Skip *skipset.Set

	// Force reprocesses ids even when Skip has them.
	Force bool

	// Limit caps the number of ids processed. Zero means no cap.
	Limit int

	// ProgressEvery logs progress after this many finished ids.
	ProgressEvery int

	// Gate is shared by all workers. A new one is made when nil.
	Gate *Gate
}

// DefaultRunConfig returns the storefront pacing defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Concurrency:         constants.DefaultConcurrency,
		MaxRetries:          constants.MaxRetries,
		MaxRateLimitRetries: constants.MaxRateLimitRetries,
		RetryDelay:          constants.RetryDelay,
		RateLimitSleep:      constants.RateLimitSleep,
		ProgressEvery:       50,
	}
}

// Stats summarizes a run.
type Stats struct {
	Total       int           `json:"total" yaml:"total"`
	Queued      int           `json:"queued" yaml:"queued"`
	Skipped     int           `json:"skipped" yaml:"skipped"`
	Invalid     int           `json:"invalid" yaml:"invalid"`
	Ineligible  int           `json:"ineligible" yaml:"ineligible"`
	Duplicates  int           `json:"duplicates" yaml:"duplicates"`
	Written     int64         `json:"written" yaml:"written"`
	Unavailable int64         `json:"unavailable" yaml:"unavailable"`
	Failed      int64         `json:"failed" yaml:"failed"`
	RateLimited int64         `json:"rate_limited" yaml:"rate_limited"`
	FailedIDs   []int64       `json:"failed_ids,omitempty" yaml:"failed_ids,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Interrupted bool          `json:"interrupted" yaml:"interrupted"`
}

type counters struct {
	written     atomic.Int64
	unavailable atomic.Int64
	failed      atomic.Int64
	rateLimited atomic.Int64
	done        atomic.Int64
	failedIDs   chan int64
}

// Select applies the validator and the skip-set to tasks and returns the
// ones to process. An id is eligible iff the validator lists it and either
// Force is set or the skip-set lacks it.
func Select(cfg RunConfig, tasks []Task, e Enhancer, stats *Stats) []Task {
	seen := make(catalog.IDSet, len(tasks))
	queue := make([]Task, 0, len(tasks))
	stats.Total = len(tasks)

	for _, task := range tasks {
		switch {
		case !seen.Add(task.ID):
			stats.Duplicates++
		case cfg.Valid != nil && !cfg.Valid.Contains(task.ID):
			stats.Invalid++
		case !cfg.Force && cfg.Skip != nil && cfg.Skip.Contains(task.ID):
			stats.Skipped++
		case !e.CanEnhance(task):
			stats.Ineligible++
		case cfg.Limit > 0 && len(queue) >= cfg.Limit:
			// over the limit, left for the next run
		default:
			queue = append(queue, task)
		}
	}
	stats.Queued = len(queue)
	return queue
}

// Run enriches tasks with e and appends each result to sink.
//
// Cancelling ctx stops dispatching new ids. Calls already in flight run to
// completion so that no record is cut in half. Per-id failures never fail
// the run; the returned error is only ever the context error.
func Run(ctx context.Context, cfg RunConfig, tasks []Task, e Enhancer, sink Sink) (*Stats, error) {
	start := time.Now()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	if cfg.Gate == nil {
		cfg.Gate = NewGate()
	}

	ctx = logging.WithField(ctx, "enhancer", e.Name())
	logger := logging.Ctx(ctx)

	stats := &Stats{}
	queue := Select(cfg, tasks, e, stats)

	logger.Info().
		Int("total", stats.Total).
		Int("queued", stats.Queued).
		Int("skipped", stats.Skipped).
		Int("invalid", stats.Invalid).
		Int("workers", cfg.Concurrency).
		Msg("Starting enrichment run")

	c := &counters{failedIDs: make(chan int64, len(queue))}

	var g errgroup.Group
	g.SetLimit(cfg.Concurrency)
	for _, task := range queue {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			process(ctx, cfg, e, sink, task, c)
			if n := c.done.Add(1); cfg.ProgressEvery > 0 && n%int64(cfg.ProgressEvery) == 0 {
				logging.Progress(logger, n, int64(len(queue))).
					Int64("written", c.written.Load()).
					Int64("failed", c.failed.Load()).
					Msg("Progress")
			}
			return nil
		})
	}
	_ = g.Wait()
	close(c.failedIDs)

	stats.Written = c.written.Load()
	stats.Unavailable = c.unavailable.Load()
	stats.Failed = c.failed.Load()
	stats.RateLimited = c.rateLimited.Load()
	for id := range c.failedIDs {
		stats.FailedIDs = append(stats.FailedIDs, id)
	}
	slices.Sort(stats.FailedIDs)
	stats.Duration = time.Since(start)

	logger.Info().
		Int64("written", stats.Written).
		Int64("unavailable", stats.Unavailable).
		Int64("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Enrichment run finished")

	if err := ctx.Err(); err != nil {
		stats.Interrupted = true
		return stats, err
	}
	return stats, nil
}

// process handles one id. The upstream call itself is detached from ctx so
// a shutdown never abandons a record halfway; waits and retries are not.
func process(ctx context.Context, cfg RunConfig, e Enhancer, sink Sink, task Task, c *counters) {
	ctx = logging.WithRecordID(ctx, task.ID)
	logger := logging.Ctx(ctx)
	call := context.WithoutCancel(ctx)

	var (
		rec       *catalog.Record
		attempts  int
		rateHits  int
		lastError error
	)

	op := func() error {
		if err := cfg.Gate.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		out, err := e.Enhance(call, task)
		if err == nil {
			rec = out
			return nil
		}
		lastError = err

		if errors.IsRateLimited(err) {
			rateHits++
			c.rateLimited.Add(1)
			if rateHits >= cfg.MaxRateLimitRetries {
				return backoff.Permanent(err)
			}
			sleep := cfg.RateLimitSleep
			var rl *errors.RateLimitError
			if stderrors.As(err, &rl) && rl.RetryAfter > sleep {
				sleep = rl.RetryAfter
			}
			cfg.Gate.Close(sleep)
			logger.Warn().Err(err).Dur("pause", sleep).Int("hit", rateHits).Msg("Rate limited, pausing all workers")
			return err
		}

		if errors.IsRetryable(err) {
			attempts++
			if attempts >= cfg.MaxRetries {
				return backoff.Permanent(err)
			}
			logger.Warn().Err(err).Int("attempt", attempts).Msg("Retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(cfg.RetryDelay), ctx)
	err := backoff.Retry(op, b)
	if err != nil && ctx.Err() != nil {
		if lastError == nil {
			// Stopped at the gate before any call: the id stays pending.
			logger.Debug().Err(err).Msg("Run interrupted before the id was tried")
			return
		}
		err = lastError
	}

	switch {
	case err == nil && rec == nil:
		c.unavailable.Add(1)
		logger.Debug().Msg("Nothing to write")
	case err == nil:
		if werr := sink.Write(rec); werr != nil {
			c.failed.Add(1)
			c.failedIDs <- task.ID
			logger.Error().Err(werr).Msg("Failed to append record")
			return
		}
		c.written.Add(1)
		if cfg.Skip != nil {
			cfg.Skip.Add(task.ID)
		}
	case errors.IsUnavailable(err):
		c.unavailable.Add(1)
		logger.Info().Err(err).Msg("Skipping id, upstream has no data")
	default:
		c.failed.Add(1)
		c.failedIDs <- task.ID
		logger.Error().Err(err).Str("name", task.Name).Msg("Giving up on id")
	}
}
