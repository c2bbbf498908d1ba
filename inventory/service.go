package inventory

import (
	"context"
	"log/slog"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// HistorySource pages through stored snapshots, newest ingestion first.
type HistorySource interface {
	SnapshotHistory(ctx context.Context, page gateway.Page) ([]*gateway.InventorySnapshot, int, error)
}

// Service is the read side of the inventory.
type Service struct {
	cache   *Cache
	history HistorySource
	logger  *slog.Logger
}

// NewService creates a Service reading the latest snapshot through cache.
func NewService(cache *Cache, history HistorySource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:   cache,
		history: history,
		logger:  logger.With("component", "inventory_service"),
	}
}

// GetLatest returns the newest snapshot and whether it came from the cache.
func (s *Service) GetLatest(ctx context.Context) (Latest, error) {
	return s.cache.GetLatest(ctx)
}

// GetHistory returns one page of snapshots ordered by ingestion time, newest first.
// History reads are never cached.
func (s *Service) GetHistory(ctx context.Context, limit, offset int) (gateway.Paged[*gateway.InventorySnapshot], error) {
	rows, total, err := s.history.SnapshotHistory(ctx, gateway.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to fetch inventory history", "error", err)
		return gateway.Paged[*gateway.InventorySnapshot]{}, apperr.Upstream("Failed to fetch inventory history", err)
	}
	if rows == nil {
		rows = []*gateway.InventorySnapshot{}
	}

	return gateway.Paged[*gateway.InventorySnapshot]{
		Data:   rows,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
