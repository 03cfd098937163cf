package enhancer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/skipset"
	"github.com/agentstation/gamesync/pkg/store"
)

// TestEnhancer is a test implementation of the Enhancer interface.
type TestEnhancer struct {
	mu      sync.Mutex
	calls   map[int64]int
	starts  []time.Time
	enhance func(task Task, call int) (*catalog.Record, error)
	active  atomic.Int32
	peak    atomic.Int32
	latency time.Duration
}

func newTestEnhancer(fn func(task Task, call int) (*catalog.Record, error)) *TestEnhancer {
	return &TestEnhancer{calls: make(map[int64]int), enhance: fn}
}

func (e *TestEnhancer) Name() string { return "test" }

func (e *TestEnhancer) CanEnhance(task Task) bool { return task.ID != 999 }

func (e *TestEnhancer) Enhance(ctx context.Context, task Task) (*catalog.Record, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	e.mu.Lock()
	e.calls[task.ID]++
	call := e.calls[task.ID]
	e.starts = append(e.starts, time.Now())
	e.mu.Unlock()

	if e.latency > 0 {
		time.Sleep(e.latency)
	}
	if e.enhance != nil {
		return e.enhance(task, call)
	}
	return record(task.ID), nil
}

func (e *TestEnhancer) callsFor(id int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[id]
}

func (e *TestEnhancer) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

// memorySink collects records in memory.
type memorySink struct {
	mu      sync.Mutex
	records []*catalog.Record
}

func (s *memorySink) Write(rec *catalog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) ids() catalog.IDSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(catalog.IDSet)
	for _, rec := range s.records {
		id, _ := rec.ID("steam_id")
		ids.Add(id)
	}
	return ids
}

func record(id int64) *catalog.Record {
	rec := catalog.NewRecord()
	_ = rec.Set("steam_id", id)
	return rec
}

func tasks(ids ...int64) []Task {
	out := make([]Task, len(ids))
	for i, id := range ids {
		out[i] = Task{ID: id, Name: fmt.Sprintf("game %d", id)}
	}
	return out
}

func fastConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RateLimitSleep = 10 * time.Millisecond
	return cfg
}

func TestSelectValidatorWins(t *testing.T) {
	skip := skipset.New()
	skip.Add(2)
	skip.Add(7) // in the output but no longer valid

	cfg := fastConfig()
	cfg.Valid = catalog.NewIDSet(1, 2, 3, 999)
	cfg.Skip = skip

	var stats Stats
	queue := Select(cfg, tasks(1, 2, 3, 7, 1, 999), newTestEnhancer(nil), &stats)

	ids := []int64{}
	for _, task := range queue {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Ineligible)

	cfg.Force = true
	stats = Stats{}
	queue = Select(cfg, tasks(1, 2, 3, 7), newTestEnhancer(nil), &stats)
	assert.Len(t, queue, 3)
	assert.Zero(t, stats.Skipped)
}

func TestSelectLimit(t *testing.T) {
	cfg := fastConfig()
	cfg.Limit = 2
	var stats Stats
	queue := Select(cfg, tasks(5, 6, 7), newTestEnhancer(nil), &stats)
	assert.Len(t, queue, 2)
	assert.Equal(t, 2, stats.Queued)
}

func TestRunResumesFromOutputStore(t *testing.T) {
	const m = 20
	const n = 8
	path := filepath.Join(t.TempDir(), "summaries.ndjson")

	sink, err := skipset.Open(path)
	require.NoError(t, err)
	for id := int64(1); id <= n; id++ {
		require.NoError(t, sink.Write(record(id)))
	}
	require.NoError(t, sink.Close())

	all := make([]int64, 0, m)
	for id := int64(1); id <= m; id++ {
		all = append(all, id)
	}

	skip, _, err := skipset.Load(context.Background(), path, "steam_id")
	require.NoError(t, err)
	sink, err = skipset.Open(path)
	require.NoError(t, err)

	e := newTestEnhancer(nil)
	cfg := fastConfig()
	cfg.Concurrency = 4
	cfg.Skip = skip
	stats, err := Run(context.Background(), cfg, tasks(all...), e, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, m-n, e.totalCalls())
	assert.Equal(t, int64(m-n), stats.Written)
	assert.Equal(t, n, stats.Skipped)

	seen := make(catalog.IDSet)
	lines := 0
	_, err = store.Scan(context.Background(), path, "steam_id", func(en store.Entry) error {
		lines++
		seen.Add(en.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, m, lines)
	assert.Equal(t, m, seen.Len())
}

func TestRunFailuresDoNotStopBatch(t *testing.T) {
	e := newTestEnhancer(func(task Task, call int) (*catalog.Record, error) {
		switch task.ID {
		case 2:
			return nil, errors.NewUpstreamError("store", task.ID, 500, nil)
		case 3:
			return nil, errors.NewUpstreamError("store", task.ID, 404, nil)
		case 4:
			return nil, fmt.Errorf("empty description: %w", errors.ErrUnavailable)
		}
		return record(task.ID), nil
	})
	sink := &memorySink{}

	cfg := fastConfig()
	cfg.Concurrency = 2
	stats, err := Run(context.Background(), cfg, tasks(1, 2, 3, 4, 5), e, sink)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 5}, sink.ids().Sorted())
	assert.Equal(t, int64(2), stats.Written)
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Unavailable)
	assert.Equal(t, []int64{2, 3}, stats.FailedIDs)

	assert.Equal(t, cfg.MaxRetries, e.callsFor(2), "5xx is retried up to the cap")
	assert.Equal(t, 1, e.callsFor(3), "4xx is not retried")
	assert.Equal(t, 1, e.callsFor(4))
}

func TestRunRetrySucceeds(t *testing.T) {
	e := newTestEnhancer(func(task Task, call int) (*catalog.Record, error) {
		if call < 2 {
			return nil, errors.NewUpstreamError("store", task.ID, 0, fmt.Errorf("connection reset"))
		}
		return record(task.ID), nil
	})
	sink := &memorySink{}

	stats, err := Run(context.Background(), fastConfig(), tasks(1), e, sink)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Written)
	assert.Equal(t, 2, e.callsFor(1))
}

func TestRunRateLimitPausesAllWorkers(t *testing.T) {
	var limitedAt atomic.Int64
	e := newTestEnhancer(func(task Task, call int) (*catalog.Record, error) {
		if task.ID == 1 && call == 1 {
			limitedAt.Store(time.Now().UnixNano())
			return nil, errors.NewRateLimitError("store", task.ID, 0)
		}
		return record(task.ID), nil
	})
	e.latency = time.Millisecond
	sink := &memorySink{}

	cfg := fastConfig()
	cfg.Concurrency = 3
	cfg.RateLimitSleep = 150 * time.Millisecond

	ids := make([]int64, 0, 30)
	for id := int64(1); id <= 30; id++ {
		ids = append(ids, id)
	}
	stats, err := Run(context.Background(), cfg, tasks(ids...), e, sink)
	require.NoError(t, err)

	assert.Equal(t, int64(30), stats.Written)
	assert.Equal(t, int64(1), stats.RateLimited)
	assert.Equal(t, 2, e.callsFor(1))

	t0 := time.Unix(0, limitedAt.Load())
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, start := range e.starts {
		inPause := start.After(t0.Add(30*time.Millisecond)) && start.Before(t0.Add(120*time.Millisecond))
		assert.False(t, inPause, "call started %v after the rate limit", start.Sub(t0))
	}
}

func TestRunRateLimitCap(t *testing.T) {
	e := newTestEnhancer(func(task Task, call int) (*catalog.Record, error) {
		return nil, errors.NewRateLimitError("store", task.ID, 0)
	})
	cfg := fastConfig()
	cfg.RateLimitSleep = time.Millisecond
	cfg.MaxRateLimitRetries = 3

	stats, err := Run(context.Background(), cfg, tasks(1), e, &memorySink{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, 3, e.callsFor(1))
}

func TestRunRespectsConcurrency(t *testing.T) {
	e := newTestEnhancer(nil)
	e.latency = 5 * time.Millisecond

	cfg := fastConfig()
	cfg.Concurrency = 3
	ids := make([]int64, 0, 24)
	for id := int64(1); id <= 24; id++ {
		ids = append(ids, id)
	}
	_, err := Run(context.Background(), cfg, tasks(ids...), e, &memorySink{})
	require.NoError(t, err)
	assert.LessOrEqual(t, e.peak.Load(), int32(3))
	assert.Greater(t, e.peak.Load(), int32(1))
}

func TestRunCanceledStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := newTestEnhancer(func(task Task, call int) (*catalog.Record, error) {
		if task.ID == 2 {
			cancel()
		}
		return record(task.ID), nil
	})
	sink := &memorySink{}

	stats, err := Run(ctx, fastConfig(), tasks(1, 2, 3, 4, 5), e, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, stats.Interrupted)
	assert.Equal(t, []int64{1, 2}, sink.ids().Sorted(), "in-flight id finishes")
	assert.Zero(t, e.callsFor(3))
}

func TestRunCanceledAtGateIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.Concurrency = 3
	cfg.Gate = NewGate()
	cfg.Gate.Close(time.Hour)
	e := newTestEnhancer(nil)

	time.AfterFunc(20*time.Millisecond, cancel)
	stats, err := Run(ctx, cfg, tasks(1, 2, 3), e, &memorySink{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, stats.Interrupted)
	assert.Zero(t, stats.Failed)
	assert.Empty(t, stats.FailedIDs)
	assert.Zero(t, e.totalCalls())
}

func TestGate(t *testing.T) {
	g := NewGate()
	require.NoError(t, g.Wait(context.Background()))

	g.Close(40 * time.Millisecond)
	g.Close(10 * time.Millisecond) // never shortens
	assert.Greater(t, g.Remaining(), 20*time.Millisecond)

	start := time.Now()
	require.NoError(t, g.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	g.Close(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.Canceled)
}

func TestChainEnhancer(t *testing.T) {
	first := NewFunc("details", func(_ context.Context, task Task) (*catalog.Record, error) {
		rec := record(task.ID)
		_ = rec.Set("name", task.Name)
		return rec, nil
	}, nil)
	second := NewFunc("tags", func(_ context.Context, task Task) (*catalog.Record, error) {
		rec := catalog.NewRecord()
		_ = rec.Set("tags", []string{"Indie", task.Input.String("name")})
		return rec, nil
	}, nil)

	chain := NewChainEnhancer(first, second)
	assert.Equal(t, "chain(details,tags)", chain.Name())
	assert.True(t, chain.CanEnhance(Task{ID: 1}))

	rec, err := chain.Enhance(context.Background(), Task{ID: 1, Name: "Hades"})
	require.NoError(t, err)
	raw, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"steam_id":1,"name":"Hades","tags":["Indie","Hades"]}`, string(raw))

	failing := NewFunc("broken", func(context.Context, Task) (*catalog.Record, error) {
		return nil, errors.ErrUnavailable
	}, nil)
	_, err = NewChainEnhancer(first, failing).Enhance(context.Background(), Task{ID: 1})
	assert.True(t, errors.IsUnavailable(err))
}

func TestFromMasterAndStore(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.json")
	require.NoError(t, os.WriteFile(masterPath, []byte(`[{"appid":3,"name":"C"},{"appid":1,"name":"A"},{"appid":3,"name":"C2"}]`), 0644))
	m, err := store.LoadMaster(context.Background(), masterPath)
	require.NoError(t, err)

	forward := FromMaster(m, false)
	require.Len(t, forward, 2)
	assert.Equal(t, Task{ID: 3, Name: "C2"}, forward[0])

	backward := FromMaster(m, true)
	assert.Equal(t, int64(1), backward[0].ID)

	storePath := filepath.Join(dir, "raw-desc.ndjson")
	require.NoError(t, os.WriteFile(storePath, []byte(
		`{"steam_id":5,"name":"old"}`+"\n"+`{"steam_id":6,"name":"F"}`+"\n"+`{"steam_id":5,"name":"E"}`+"\n"), 0644))
	fromStore, _, err := FromStore(context.Background(), storePath, "steam_id")
	require.NoError(t, err)
	require.Len(t, fromStore, 2)
	assert.Equal(t, "E", fromStore[0].Name)
	assert.Equal(t, "E", fromStore[0].Input.String("name"))
}
