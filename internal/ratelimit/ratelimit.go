package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store tracks request counts per client key over a fixed window. The
// interface exists so a distributed cache can replace the in-memory store
// when the service runs with more than one instance.
type Store interface {
	// Allow records a hit for key and reports whether it stays within
	// limit hits per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter applies a fixed request budget per client key.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New builds a limiter allowing limit requests per window for each key.
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow reports whether the key may make another request right now.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.store.Allow(ctx, key, l.limit, l.window)
}

type windowCounter struct {
	count       int
	windowStart time.Time
}

// MemoryStore is the single-instance Store backed by a map. Stale entries
// are dropped during Allow once their window has passed, and a janitor
// sweep runs periodically so idle keys do not accumulate.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowCounter
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore builds a memory store and starts its janitor.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowCounter),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Allow implements Store with a fixed window counter per key.
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.Sub(entry.windowStart) >= window {
		s.entries[key] = &windowCounter{count: 1, windowStart: now}
		return true, nil
	}

	entry.count++
	return entry.count <= limit, nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(10 * time.Minute)
		case <-s.stop:
			return
		}
	}
}

// sweep removes entries whose window started longer than maxAge ago.
func (s *MemoryStore) sweep(maxAge time.Duration) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if entry.windowStart.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}
