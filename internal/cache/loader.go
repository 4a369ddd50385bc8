package cache

import (
	"golang.org/x/sync/singleflight"
)

// Loader fronts an LRUCache. Concurrent misses for the same key share one
// call to the compute function.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

// NewLoader wraps cache.
func NewLoader[T any](cache *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: cache}
}

// Get returns the cached value for key, calling compute and storing its
// result on a miss. Errors are not cached. hit reports whether the value
// came from the cache.
func (l *Loader[T]) Get(key string, compute func() (T, error)) (value T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return res, err
		}
		l.cache.Set(key, res)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Cache returns the underlying cache.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
