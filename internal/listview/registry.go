package listview

import (
	"sync"
	"time"
)

// Registry keeps one Query per session and view so that a failed fetch
// can still show the rows of the previous successful one.
type Registry[T any] struct {
	fetch Fetcher[T]
	opts  QueryOptions
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry[T]
}

type registryEntry[T any] struct {
	query    *Query[T]
	lastUsed time.Time
}

// NewRegistry builds a registry. Entries unused for ttl are evicted.
func NewRegistry[T any](fetch Fetcher[T], ttl time.Duration, opts QueryOptions) *Registry[T] {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry[T]{
		fetch:   fetch,
		opts:    opts,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*registryEntry[T]),
	}
}

// For returns the query bound to key, creating it on first use.
func (r *Registry[T]) For(key string) *Query[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictLocked(now)
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry[T]{query: NewQuery(r.fetch, r.opts)}
		r.entries[key] = entry
	}
	entry.lastUsed = now
	return entry.query
}

// Forget drops the query bound to key.
func (r *Registry[T]) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len reports the number of live queries.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry[T]) evictLocked(now time.Time) {
	for key, entry := range r.entries {
		if now.Sub(entry.lastUsed) > r.ttl {
			delete(r.entries, key)
		}
	}
}
