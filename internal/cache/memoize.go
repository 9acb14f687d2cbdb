package cache

import (
	"context"
	"time"
)

// Memoize returns the cached value for key when present, otherwise runs
// compute and stores its result under ttl. A compute failure propagates to
// the caller and caches nothing, so the next request retries.
//
// Concurrent misses on the same key each run compute; the last writer wins.
// Wasteful under load but never incorrect, since compute is read-only. A
// single-flight layer would be the fix if duplicate upstream load ever
// becomes a problem.
func Memoize[T any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		// Key collision across value types; drop and recompute.
		s.Invalidate(key)
	}
	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Set(key, value, ttl)
	return value, nil
}
