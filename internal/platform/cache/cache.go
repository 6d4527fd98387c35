// Package cache holds short-lived computed values such as report summaries.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Store is a byte cache with per-entry expiry.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string) int
	Clear()
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-process Store with lazy expiration.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns a live entry. An expired entry is removed and reported as a miss.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set stores value for ttl. A non-positive ttl deletes the key.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		delete(s.entries, key)
		return
	}
	s.entries[key] = &entry{data: value, expiresAt: s.now().Add(ttl)}
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (s *MemoryStore) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// Len counts entries, expired ones included until they are swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// StartCleanup removes expired entries every interval until ctx is done.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Generation versions a family of cache keys. A value computed before an
// Invalidate is never stored after it.
type Generation struct {
	mu sync.Mutex
	n  uint64
}

// Current returns the generation a computation starts under.
func (g *Generation) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Invalidate advances the generation and runs drop, typically a prefix
// delete, while no stale store can interleave.
func (g *Generation) Invalidate(drop func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if drop != nil {
		drop()
	}
}

// storeIf runs set only while the generation is still n.
func (g *Generation) storeIf(n uint64, set func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n != n {
		return false
	}
	set()
	return true
}

// Remember returns the cached JSON value under key, or computes, stores and
// returns it. hit reports whether the value came from the cache. A compute
// error is returned as is and nothing is stored. An undecodable entry is
// treated as a miss.
func Remember[T any](store Store, key string, ttl time.Duration, compute func() (T, error)) (T, bool, error) {
	return RememberAt(store, nil, key, ttl, compute)
}

// RememberAt is Remember guarded by gen: when gen is invalidated while
// compute runs, the result is returned but not stored.
func RememberAt[T any](store Store, gen *Generation, key string, ttl time.Duration, compute func() (T, error)) (v T, hit bool, err error) {
	var start uint64
	if gen != nil {
		start = gen.Current()
	}
	if raw, ok := store.Get(key); ok {
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, true, nil
		}
		store.Delete(key)
	}

	v, err = compute()
	if err != nil {
		return v, false, err
	}
	raw, mErr := json.Marshal(v)
	if mErr != nil {
		return v, false, nil
	}
	set := func() { store.Set(key, raw, ttl) }
	if gen == nil {
		set()
	} else {
		gen.storeIf(start, set)
	}
	return v, false, nil
}
