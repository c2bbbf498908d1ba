package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viccon/sturdyc"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
	"github.com/CalHacks12USF/fregister-backend/internal/cacheinfra"
)

// mockLatestSource counts reads and optionally blocks them until released.
type mockLatestSource struct {
	mu        sync.Mutex
	callCount int
	snapshot  *gateway.InventorySnapshot
	err       error

	entered chan struct{}
	release chan struct{}
}

func (m *mockLatestSource) LatestSnapshot(ctx context.Context) (*gateway.InventorySnapshot, error) {
	m.mu.Lock()
	m.callCount++
	snapshot, err := m.snapshot, m.err
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return snapshot, err
}

func (m *mockLatestSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockLatestSource) set(snapshot *gateway.InventorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
}

func newSnapshot(name string) *gateway.InventorySnapshot {
	return &gateway.InventorySnapshot{
		ID:        uuid.New(),
		Timestamp: time.Date(2025, 10, 24, 20, 55, 2, 0, time.UTC),
		Inventory: []gateway.InventoryItem{{Name: name, Quantity: 3}},
	}
}

func newTestCache(t *testing.T, source LatestSource) (*Cache, *sturdyc.TestClock) {
	t.Helper()

	clock := sturdyc.NewTestClock(time.Date(2025, 10, 24, 21, 0, 0, 0, time.UTC))
	cfg := cacheinfra.DefaultConfig()
	cfg.Clock = clock

	cache, err := NewCache(source, cfg, nil)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return cache, clock
}

func TestCache_MissThenHit(t *testing.T) {
	source := &mockLatestSource{snapshot: newSnapshot("apple")}
	cache, clock := newTestCache(t, source)
	ctx := context.Background()

	first, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("expected first read to come from the database")
	}

	clock.Add(59 * time.Second)

	second, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("expected second read within TTL to be cached")
	}
	if second.Data.ID != first.Data.ID {
		t.Errorf("expected the same snapshot, got %s and %s", first.Data.ID, second.Data.ID)
	}
	if source.calls() != 1 {
		t.Errorf("expected 1 database read, got %d", source.calls())
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	source := &mockLatestSource{snapshot: newSnapshot("apple")}
	cache, clock := newTestCache(t, source)
	ctx := context.Background()

	if _, err := cache.GetLatest(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newer := newSnapshot("banana")
	source.set(newer)
	clock.Add(60 * time.Second)

	got, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cached {
		t.Error("expected a read at exactly TTL to go to the database")
	}
	if got.Data.ID != newer.ID {
		t.Errorf("expected the re-queried snapshot %s, got %s", newer.ID, got.Data.ID)
	}
	if source.calls() != 2 {
		t.Errorf("expected 2 database reads, got %d", source.calls())
	}
}

func TestCache_UpdateServesWithoutDatabase(t *testing.T) {
	source := &mockLatestSource{err: errors.New("must not be called")}
	cache, _ := newTestCache(t, source)

	written := newSnapshot("yogurt")
	cache.Update(written)

	got, err := cache.GetLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Cached {
		t.Error("expected write-through entry to be served from cache")
	}
	if got.Data != written {
		t.Error("expected the exact written snapshot")
	}
	if source.calls() != 0 {
		t.Errorf("expected no database reads, got %d", source.calls())
	}
}

func TestCache_UpdateRestartsTTL(t *testing.T) {
	source := &mockLatestSource{snapshot: newSnapshot("apple")}
	cache, clock := newTestCache(t, source)
	ctx := context.Background()

	if _, err := cache.GetLatest(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Add(50 * time.Second)
	cache.Update(newSnapshot("banana"))
	clock.Add(50 * time.Second)

	got, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Cached {
		t.Error("expected the updated entry to still be fresh")
	}
	if source.calls() != 1 {
		t.Errorf("expected 1 database read, got %d", source.calls())
	}
}

func TestCache_Invalidate(t *testing.T) {
	source := &mockLatestSource{snapshot: newSnapshot("apple")}
	cache, _ := newTestCache(t, source)
	ctx := context.Background()

	cache.Update(newSnapshot("banana"))
	cache.Invalidate()

	if _, fresh := cache.Peek(); fresh {
		t.Error("expected no fresh entry after invalidate")
	}

	got, err := cache.GetLatest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cached {
		t.Error("expected read after invalidate to query the database")
	}
	if source.calls() != 1 {
		t.Errorf("expected 1 database read, got %d", source.calls())
	}
}

func TestCache_NotFound(t *testing.T) {
	cache, _ := newTestCache(t, &noRowsSource{})

	_, err := cache.GetLatest(context.Background())
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if apperr.Message(err) != "No inventory data found" {
		t.Errorf("unexpected message %q", apperr.Message(err))
	}
	if _, ok := cache.Peek(); ok {
		t.Error("expected the cache to stay empty")
	}
}

func TestCache_UpstreamFailure(t *testing.T) {
	source := &mockLatestSource{err: errors.New("connection refused")}
	cache, _ := newTestCache(t, source)

	_, err := cache.GetLatest(context.Background())
	if !apperr.IsUpstream(err) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if apperr.Message(err) != "Failed to fetch latest inventory: connection refused" {
		t.Errorf("expected upstream message to be embedded, got %q", apperr.Message(err))
	}

	// failures are not cached
	if _, err := cache.GetLatest(context.Background()); err == nil {
		t.Error("expected the second read to fail again")
	}
	if source.calls() != 2 {
		t.Errorf("expected 2 database reads, got %d", source.calls())
	}
}

func TestCache_ReadThroughDoesNotOverwriteNewerUpdate(t *testing.T) {
	stale := newSnapshot("stale")
	source := &mockLatestSource{
		snapshot: stale,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	cache, _ := newTestCache(t, source)

	done := make(chan Latest, 1)
	go func() {
		got, err := cache.GetLatest(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- got
	}()

	<-source.entered
	newer := newSnapshot("fresh")
	cache.Update(newer)
	close(source.release)

	got := <-done
	if got.Data.ID != stale.ID || got.Cached {
		t.Errorf("expected the caller to receive its own database read")
	}

	entry, fresh := cache.Peek()
	if !fresh || entry.Snapshot.ID != newer.ID {
		t.Errorf("expected the write-through snapshot to survive the slower read-through")
	}
}

func TestCache_ReadThroughDoesNotReviveInvalidatedEntry(t *testing.T) {
	source := &mockLatestSource{
		snapshot: newSnapshot("apple"),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	cache, _ := newTestCache(t, source)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetLatest(context.Background())
	}()

	<-source.entered
	cache.Invalidate()
	close(source.release)
	<-done

	if _, ok := cache.Peek(); ok {
		t.Error("expected the invalidated cache to stay empty")
	}
}

func TestCache_ReadAfterInvalidateQueriesSource(t *testing.T) {
	source := &mockLatestSource{
		snapshot: newSnapshot("old"),
		entered:  make(chan struct{}, 2),
		release:  make(chan struct{}),
	}
	cache, _ := newTestCache(t, source)

	go func() {
		_, _ = cache.GetLatest(context.Background())
	}()
	<-source.entered

	source.set(newSnapshot("new"))
	cache.Invalidate()

	results := make(chan Latest, 1)
	go func() {
		got, err := cache.GetLatest(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		results <- got
	}()

	select {
	case <-source.entered:
	case <-time.After(2 * time.Second):
		close(source.release)
		t.Fatal("read after Invalidate joined the earlier flight instead of querying the source")
	}
	close(source.release)

	got := <-results
	if got.Cached {
		t.Error("expected a read-through result")
	}
	if name := got.Data.Inventory[0].Name; name != "new" {
		t.Errorf("expected the post-invalidation row, got %q", name)
	}
	if calls := source.calls(); calls != 2 {
		t.Errorf("expected 2 source calls, got %d", calls)
	}
}

func TestCache_ConcurrentMissesShareOneRead(t *testing.T) {
	source := &mockLatestSource{
		snapshot: newSnapshot("apple"),
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	cache, _ := newTestCache(t, source)

	const readers = 8
	var wg sync.WaitGroup
	results := make(chan Latest, readers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		got, err := cache.GetLatest(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		results <- got
	}()
	<-source.entered

	for i := 1; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetLatest(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- got
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()
	close(results)

	for got := range results {
		if got.Data == nil || got.Data.ID != source.snapshot.ID {
			t.Errorf("expected every reader to get the same snapshot")
		}
	}
	if source.calls() != 1 {
		t.Errorf("expected concurrent misses to share 1 database read, got %d", source.calls())
	}
}

type noRowsSource struct{}

func (noRowsSource) LatestSnapshot(ctx context.Context) (*gateway.InventorySnapshot, error) {
	return nil, gateway.NoRows("inventory_snapshots")
}
