package download

import (
	"path/filepath"
	"sync"
)

// InFlight is the set of destination paths currently being downloaded.
// TryAcquire is an atomic insert-if-absent, so at most one download per
// destination runs at a time.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

// TryAcquire claims key and reports whether the caller now owns it.
func (r *InFlight) TryAcquire(key string) bool {
	key = filepath.Clean(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key]; ok {
		return false
	}
	r.keys[key] = struct{}{}
	return true
}

// Release drops key. Releasing an absent key is a no-op.
func (r *InFlight) Release(key string) {
	key = filepath.Clean(key)
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
}

// Contains reports whether key is currently claimed.
func (r *InFlight) Contains(key string) bool {
	key = filepath.Clean(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.keys[key]
	return ok
}

// Len returns the number of claimed keys.
func (r *InFlight) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
