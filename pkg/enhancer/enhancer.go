// Package enhancer runs resumable enrichment jobs over a list of ids.
//
// An Enhancer turns one task into one output record by calling some upstream
// collaborator. Run feeds tasks to a bounded pool of workers, skips ids the
// output store already holds, retries upstream failures a bounded number of
// times, and pauses every worker when the upstream rate-limits. A failed id
// is logged and counted and the run moves on.
package enhancer

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/gamesync/pkg/catalog"
)

// Task is one id to enrich.
type Task struct {
	ID   int64
	Name string

	// Input is the source record when the task comes from a store.
	Input *catalog.Record
}

// Enhancer defines the interface for per-id enrichment.
type Enhancer interface {
	// Name returns the enhancer name
	Name() string

	// Enhance returns the record to append for task. It returns an error
	// matching errors.ErrUnavailable when the upstream has nothing for the id.
	Enhance(ctx context.Context, task Task) (*catalog.Record, error)

	// CanEnhance checks if this enhancer has enough input for task
	CanEnhance(task Task) bool
}

// Sink receives the records a run produces. Implementations must be safe
// for concurrent use.
type Sink interface {
	Write(rec *catalog.Record) error
}

// Func adapts a function to the Enhancer interface.
type Func struct {
	name    string
	enhance func(context.Context, Task) (*catalog.Record, error)
	can     func(Task) bool
}

// NewFunc creates an Enhancer from fn. A nil can accepts every task.
func NewFunc(name string, fn func(context.Context, Task) (*catalog.Record, error), can func(Task) bool) *Func {
	return &Func{name: name, enhance: fn, can: can}
}

// Name returns the enhancer name
func (f *Func) Name() string { return f.name }

// Enhance calls the wrapped function.
func (f *Func) Enhance(ctx context.Context, task Task) (*catalog.Record, error) {
	return f.enhance(ctx, task)
}

// CanEnhance calls the wrapped predicate.
func (f *Func) CanEnhance(task Task) bool {
	if f.can == nil {
		return true
	}
	return f.can(task)
}

// ChainEnhancer runs several enhancers on the same task and merges their
// records into one. Later enhancers see the record built so far as Input.
type ChainEnhancer struct {
	enhancers []Enhancer
}

// NewChainEnhancer creates a new chain enhancer
func NewChainEnhancer(enhancers ...Enhancer) *ChainEnhancer {
	return &ChainEnhancer{enhancers: enhancers}
}

// Name returns the enhancer name
func (e *ChainEnhancer) Name() string {
	names := []string{}
	for _, enhancer := range e.enhancers {
		names = append(names, enhancer.Name())
	}
	return fmt.Sprintf("chain(%s)", strings.Join(names, ","))
}

// CanEnhance checks if the first enhancer in the chain can enhance
func (e *ChainEnhancer) CanEnhance(task Task) bool {
	return len(e.enhancers) > 0 && e.enhancers[0].CanEnhance(task)
}

// Enhance applies all enhancers in sequence. Any error stops the chain.
func (e *ChainEnhancer) Enhance(ctx context.Context, task Task) (*catalog.Record, error) {
	var out *catalog.Record
	for _, enhancer := range e.enhancers {
		if out != nil {
			task.Input = out
		}
		if !enhancer.CanEnhance(task) {
			continue
		}
		rec, err := enhancer.Enhance(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", enhancer.Name(), err)
		}
		if out == nil {
			out = rec
			continue
		}
		for _, key := range rec.Keys() {
			raw, _ := rec.Raw(key)
			out.SetRaw(key, raw)
		}
	}
	return out, nil
}
