package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_GetOrLoad_SingleFlight(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) ([]byte, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("bootstrap"), nil
	}

	const workers = 24
	start := make(chan struct{})
	results := make([][]byte, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", loader, TTLDefault)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
	for i, v := range results {
		if string(v) != "bootstrap" {
			t.Fatalf("worker %d got %q, want bootstrap", i, v)
		}
	}
}

func TestStore_TTLEnforcedAtRead(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, time.Hour)

	fetchTime := time.Unix(10_000, 0)
	store.now = func() time.Time { return fetchTime }
	if err := store.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// t0+4 with ttl=5: served from cache.
	store.now = func() time.Time { return fetchTime.Add(4 * time.Second) }
	if _, ok := store.Get(context.Background(), "k", 5*time.Second); !ok {
		t.Fatal("entry expired at t0+4 with ttl=5, want hit")
	}

	// t0+6 with ttl=5: expired, triggers a refetch through GetOrLoad.
	store.now = func() time.Time { return fetchTime.Add(6 * time.Second) }
	var calls atomic.Int32
	v, err := store.GetOrLoad(context.Background(), "k", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("fresh"), nil
	}, 5*time.Second)
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("loader calls = %d, want 1", calls.Load())
	}
	if string(v) != "fresh" {
		t.Fatalf("got %q, want fresh", v)
	}
}

func TestStore_IndefiniteTTLNeverExpires(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, time.Second)

	fetchTime := time.Unix(20_000, 0)
	store.now = func() time.Time { return fetchTime }
	if err := store.Set(context.Background(), "picks", []byte("locked")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	store.now = func() time.Time { return fetchTime.Add(1000 * time.Hour) }
	if _, ok := store.Get(context.Background(), "picks", TTLIndefinite); !ok {
		t.Fatal("indefinite entry expired, want hit")
	}
}

func TestStore_LoaderFailureNotCached(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, time.Minute)
	wantErr := errors.New("upstream 503")
	var calls atomic.Int32

	failing := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, wantErr
	}

	if _, err := store.GetOrLoad(context.Background(), "k", failing, TTLDefault); !errors.Is(err, wantErr) {
		t.Fatalf("first call error = %v, want %v", err, wantErr)
	}

	// Immediate retry must invoke the loader again.
	v, err := store.GetOrLoad(context.Background(), "k", func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("recovered"), nil
	}, TTLDefault)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if string(v) != "recovered" {
		t.Fatalf("retry got %q, want recovered", v)
	}
	if calls.Load() != 2 {
		t.Fatalf("loader calls = %d, want 2", calls.Load())
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewStore(path, time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Set(context.Background(), "durable", []byte("still-here")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(path, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, ok := reopened.Get(context.Background(), "durable", TTLDefault)
	if !ok {
		t.Fatal("entry missing after reopen")
	}
	if string(v) != "still-here" {
		t.Fatalf("got %q, want still-here", v)
	}
}

func TestStore_ClearAndClearAll(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	if err := store.Clear(ctx, "b"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Get(ctx, "b", TTLDefault); ok {
		t.Fatal("cleared key still present")
	}
	if got := store.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if got := store.Len(); got != 0 {
		t.Fatalf("Len after ClearAll = %d, want 0", got)
	}
}
