package catalog

import (
	"slices"
)

// IDSet is a deduplicated set of catalog ids.
type IDSet map[int64]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s IDSet) Add(id int64) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Difference returns the ids of s that are not in other.
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// IDMap maps each id to exactly one value.
// Put has last-write-wins semantics: a later value for the same id replaces
// the earlier one, and Order keeps the position of the first insertion.
type IDMap[V any] struct {
	values map[int64]V
	order  []int64
}

// NewIDMap returns an empty map.
func NewIDMap[V any]() *IDMap[V] {
	return &IDMap[V]{values: make(map[int64]V)}
}

// Put stores v for id and reports whether it replaced an earlier value.
func (m *IDMap[V]) Put(id int64, v V) bool {
	_, replaced := m.values[id]
	if !replaced {
		m.order = append(m.order, id)
	}
	m.values[id] = v
	return replaced
}

// Get returns the value for id.
func (m *IDMap[V]) Get(id int64) (V, bool) {
	v, ok := m.values[id]
	return v, ok
}

// Len returns the number of distinct ids.
func (m *IDMap[V]) Len() int {
	return len(m.values)
}

// Order returns ids in first-insertion order.
func (m *IDMap[V]) Order() []int64 {
	return append([]int64(nil), m.order...)
}

// Keys returns the ids as a set.
func (m *IDMap[V]) Keys() IDSet {
	s := make(IDSet, len(m.values))
	for id := range m.values {
		s[id] = struct{}{}
	}
	return s
}
