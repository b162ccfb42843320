// Package session provides a typed, thread-safe in-memory store for
// per-browser-session state. There is deliberately no persistence behind it:
// all orchestration state lives and dies with the process.
package session

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Store maps opaque session IDs to one instance of T, created on first access
// via the factory. Entries inactive longer than the TTL are evicted by
// Cleanup, which the caller schedules periodically.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	newFn   func() *T
	evictFn func(*T)
}

// New creates a Store that evicts sessions inactive longer than ttl.
// evictFn, when non-nil, runs for every evicted value so owned resources
// (poll timers) can be released.
func New[T any](ttl time.Duration, newFn func() *T, evictFn func(*T)) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
		evictFn: evictFn,
	}
}

// Get returns the state for the given session, creating it if needed.
// Each call refreshes the session's last-access timestamp.
func (s *Store[T]) Get(id string) *T {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = time.Now()
	return e.value
}

// Cleanup evicts all sessions that have been inactive longer than the TTL.
func (s *Store[T]) Cleanup() {
	s.mu.Lock()
	cutoff := time.Now().Add(-s.ttl)
	var evicted []*T
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			evicted = append(evicted, e.value)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	if s.evictFn != nil {
		for _, v := range evicted {
			s.evictFn(v)
		}
	}
}

// Shutdown evicts every session regardless of age.
func (s *Store[T]) Shutdown() {
	s.mu.Lock()
	var evicted []*T
	for id, e := range s.entries {
		evicted = append(evicted, e.value)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if s.evictFn != nil {
		for _, v := range evicted {
			s.evictFn(v)
		}
	}
}

// Len returns the number of active sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
