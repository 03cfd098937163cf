// Package skipset tracks which ids an enrichment job has already written so
// that a restarted job resumes where it stopped.
//
// The set lives in memory only. It is rebuilt from the output store on every
// run, and the output store is the only thing that is ever persisted.
package skipset

import (
	"context"
	"sync"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/store"
)

// Set is a concurrency-safe set of ids already present in an output store.
type Set struct {
	mu  sync.RWMutex
	ids catalog.IDSet
}

// New returns an empty set.
func New() *Set {
	return &Set{ids: make(catalog.IDSet)}
}

// Load streams the output store at path once and collects every id found
// under idField. Malformed lines are ignored but counted in the returned
// stats. A missing store yields an empty set.
func Load(ctx context.Context, path, idField string) (*Set, store.Stats, error) {
	s := New()
	stats, err := store.ScanOptional(ctx, path, idField, func(e store.Entry) error {
		s.ids.Add(e.ID)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	logging.Ctx(ctx).Debug().
		Str("path", path).
		Int("ids", s.ids.Len()).
		Int("parse_errors", stats.ParseErrors).
		Msg("Built skip-set from output store")

	return s, stats, nil
}

// Contains reports whether id was already written.
func (s *Set) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Contains(id)
}

// Add records id as written and reports whether it was new.
func (s *Set) Add(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Add(id)
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Len()
}

// Restrict drops every id that valid does not list and returns how many were
// dropped. The validator always wins over what the output store contains.
func (s *Set) Restrict(valid catalog.IDSet) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id := range s.ids {
		if !valid.Contains(id) {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

// IDs returns a sorted copy of the set.
func (s *Set) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Sorted()
}
