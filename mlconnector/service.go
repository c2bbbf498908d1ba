// Package mlconnector ingests inventory snapshots pushed by the ML pipeline.
//
// Every accepted payload is inserted as a new snapshot and then written through to the
// inventory cache, so the next latest-inventory read is served from memory. A failed
// insert leaves the cache untouched.
package mlconnector

import (
	"context"
	"log/slog"
	"time"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// SnapshotWriter persists snapshots.
type SnapshotWriter interface {
	InsertSnapshot(ctx context.Context, snapshot *gateway.InventorySnapshot) (*gateway.InventorySnapshot, error)
}

// CacheWriter receives the persisted snapshot. inventory.Cache implements it.
type CacheWriter interface {
	Update(snapshot *gateway.InventorySnapshot)
}

// Service stores inventory snapshots.
type Service struct {
	store  SnapshotWriter
	cache  CacheWriter
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an ingestion Service.
func NewService(store SnapshotWriter, cache CacheWriter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  cache,
		now:    time.Now,
		logger: logger.With("component", "ml_connector"),
	}
}

// SaveInventoryData validates payload, inserts it as a new snapshot and writes the
// persisted row through to the cache before returning it.
func (s *Service) SaveInventoryData(ctx context.Context, payload Payload) (*gateway.InventorySnapshot, error) {
	if err := payload.Validate(); err != nil {
		return nil, apperr.Validation("Invalid inventory payload: %s", err.Error())
	}

	snapshot, err := payload.Snapshot()
	if err != nil {
		return nil, apperr.Validation("Invalid inventory timestamp: %s", err.Error())
	}
	snapshot.CreatedAt = s.now().UTC()
	snapshot.UpdatedAt = snapshot.CreatedAt

	saved, err := s.store.InsertSnapshot(ctx, snapshot)
	if err != nil {
		s.logger.Error("error saving inventory data", "error", err)
		return nil, apperr.Upstream("Failed to save inventory data", err)
	}

	s.logger.Info("saved inventory snapshot", "snapshot_id", saved.ID, "items", len(saved.Inventory))
	s.cache.Update(saved)

	return saved, nil
}
