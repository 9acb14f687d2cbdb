// Package cache provides the process-wide TTL store backing query results and
// built statements. Entries live in memory only; a restart starts cold.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a key-addressed TTL cache safe for concurrent use. Expired entries
// are evicted lazily on read; there is no background sweeper.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests to step past TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live value for key. A stale entry is evicted and reported
// as a miss.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Invalidate drops key if present.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// ClearAll drops every entry and returns how many were removed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return n
}

// Len reports the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats reports cumulative hit and miss counts.
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key joins parts into a deterministic cache key. Separator characters inside
// a part are escaped, so a part containing ":" can never collide with two
// separate parts. Caller-supplied values like org ids flow through here.
func Key(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = keyEscaper.Replace(fmt.Sprintf("%v", p))
	}
	return strings.Join(strs, ":")
}
