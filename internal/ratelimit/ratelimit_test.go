package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// newTestStore returns a store with a controllable clock and no janitor.
func newTestStore(now *time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowCounter),
		now:     func() time.Time { return *now },
		stop:    make(chan struct{}),
	}
}

func TestMemoryStoreEnforcesLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}

	ok, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Error("fourth request allowed past a limit of 3")
	}
}

func TestMemoryStoreWindowReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		store.Allow(ctx, "key", 2, time.Minute)
	}
	if ok, _ := store.Allow(ctx, "key", 2, time.Minute); ok {
		t.Fatal("expected denial at the limit")
	}

	now = now.Add(time.Minute)
	if ok, _ := store.Allow(ctx, "key", 2, time.Minute); !ok {
		t.Error("expected a fresh window after the old one expired")
	}
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	ctx := context.Background()

	store.Allow(ctx, "a", 1, time.Minute)
	if ok, _ := store.Allow(ctx, "a", 1, time.Minute); ok {
		t.Fatal("key a should be at its limit")
	}
	if ok, _ := store.Allow(ctx, "b", 1, time.Minute); !ok {
		t.Error("key b should not be affected by key a")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	ctx := context.Background()

	store.Allow(ctx, "old", 10, time.Minute)
	now = now.Add(time.Hour)
	store.Allow(ctx, "fresh", 10, time.Minute)

	store.sweep(10 * time.Minute)

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.entries["old"]; ok {
		t.Error("stale entry survived the sweep")
	}
	if _, ok := store.entries["fresh"]; !ok {
		t.Error("fresh entry was swept")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Allow(ctx, "shared", 1000, time.Minute)
			}
		}(i)
	}
	wg.Wait()

	// All 800 hits fit in the budget, so one more must still pass.
	if ok, _ := store.Allow(ctx, "shared", 1000, time.Minute); !ok {
		t.Error("request denied below the limit after concurrent hits")
	}
}

func TestLimiterWrapsStore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(&now)
	limiter := New(store, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := limiter.Allow(ctx, "ip"); err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := limiter.Allow(ctx, "ip"); ok {
		t.Error("limiter allowed a request past its budget")
	}
}
