package testsupport

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// NewGateway opens a migrated in-memory SQLite gateway private to the test.
func NewGateway(t testing.TB) *gateway.Gateway {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	ctx := context.Background()
	db, err := gateway.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	gw := gateway.New(db)
	t.Cleanup(func() { _ = gw.Close() })

	if err := gw.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gw
}

// SeedSnapshots inserts n snapshots one minute apart, oldest first, and returns them in
// insertion order. Snapshot i holds a single item named "item-i".
func SeedSnapshots(t testing.TB, gw *gateway.Gateway, n int) []*gateway.InventorySnapshot {
	t.Helper()

	base := time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)
	out := make([]*gateway.InventorySnapshot, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		saved, err := gw.InsertSnapshot(context.Background(), &gateway.InventorySnapshot{
			Timestamp: at,
			Inventory: []gateway.InventoryItem{{Name: fmt.Sprintf("item-%d", i), Quantity: float64(i)}},
			CreatedAt: at,
			UpdatedAt: at,
		})
		if err != nil {
			t.Fatalf("failed to seed snapshot %d: %v", i, err)
		}
		out = append(out, saved)
	}
	return out
}

// SeedThread inserts a thread owned by userID.
func SeedThread(t testing.TB, gw *gateway.Gateway, title, userID string) *gateway.Thread {
	t.Helper()

	thread, err := gw.InsertThread(context.Background(), &gateway.Thread{Title: title, UserID: userID})
	if err != nil {
		t.Fatalf("failed to seed thread %q: %v", title, err)
	}
	return thread
}
