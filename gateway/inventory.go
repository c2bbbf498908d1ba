package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// LatestSnapshot returns the most recent snapshot by producer timestamp.
func (g *Gateway) LatestSnapshot(ctx context.Context) (*InventorySnapshot, error) {
	return g.snapshots.Single(ctx, orderBy("timestamp DESC"))
}

// SnapshotHistory returns one page of snapshots ordered by ingestion time, newest first.
func (g *Gateway) SnapshotHistory(ctx context.Context, page Page) ([]*InventorySnapshot, int, error) {
	return g.snapshots.Select(ctx, page, orderBy("created_at DESC"))
}

// InsertSnapshot stores a new snapshot and returns the persisted row. ID and ingestion
// timestamps are assigned when zero.
func (g *Gateway) InsertSnapshot(ctx context.Context, snapshot *InventorySnapshot) (*InventorySnapshot, error) {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = snapshot.CreatedAt
	}

	saved, err := g.snapshots.Insert(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, errors.New("insert into inventory_snapshots: no row returned")
	}
	return saved, nil
}
