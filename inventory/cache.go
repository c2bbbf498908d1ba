package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
	"github.com/CalHacks12USF/fregister-backend/internal/cacheinfra"
)

const latestKey = "inventory:latest"

// LatestSource reads the newest snapshot from the source of truth.
type LatestSource interface {
	LatestSnapshot(ctx context.Context) (*gateway.InventorySnapshot, error)
}

// Entry is the cached snapshot and the time it was stored.
type Entry struct {
	Snapshot *gateway.InventorySnapshot
	CachedAt time.Time
}

// Latest is the result of a latest-snapshot read.
type Latest struct {
	Data   *gateway.InventorySnapshot `json:"data"`
	Cached bool                       `json:"cached"`
}

// Cache is the single-entry inventory freshness cache.
type Cache struct {
	source LatestSource
	store  *cacheinfra.Store[Entry]
	cfg    cacheinfra.Config
	logger *slog.Logger
	tracer trace.Tracer

	group singleflight.Group

	mu         sync.Mutex
	generation uint64
}

// NewCache creates a cold cache reading through source.
func NewCache(source LatestSource, cfg cacheinfra.Config, logger *slog.Logger) (*Cache, error) {
	store, err := cacheinfra.NewStore[Entry](cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "inventory_cache"),
		tracer: otel.Tracer("github.com/CalHacks12USF/fregister-backend/inventory"),
	}, nil
}

// TTL returns how long an entry stays fresh.
func (c *Cache) TTL() time.Duration {
	return c.cfg.TTL
}

// GetLatest returns the newest snapshot, from memory when the entry is fresh.
func (c *Cache) GetLatest(ctx context.Context) (Latest, error) {
	if entry, ok := c.fresh(); ok {
		c.logger.Debug("returning cached latest inventory", "snapshot_id", entry.Snapshot.ID)
		return Latest{Data: entry.Snapshot, Cached: true}, nil
	}

	ctx, span := c.tracer.Start(ctx, "inventory.cache.read_through")
	defer span.End()

	c.logger.Info("cache miss, fetching latest inventory from database")

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	// one flight per generation; shared flights outlive the caller that started them
	flight := fmt.Sprintf("%s:%d", latestKey, generation)
	v, err, shared := c.group.Do(flight, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), generation)
	})
	span.SetAttributes(attribute.Bool("inventory.shared_flight", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Latest{}, err
	}

	return Latest{Data: v.(*gateway.InventorySnapshot), Cached: false}, nil
}

func (c *Cache) load(ctx context.Context, generation uint64) (*gateway.InventorySnapshot, error) {
	snapshot, err := c.source.LatestSnapshot(ctx)
	if err != nil {
		if gateway.IsNoRows(err) {
			return nil, apperr.NotFound("No inventory data found")
		}
		c.logger.Error("failed to fetch latest inventory", "error", err)
		return nil, apperr.Upstream("Failed to fetch latest inventory", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation {
		c.store.Set(latestKey, Entry{Snapshot: snapshot, CachedAt: c.cfg.Now()})
	} else {
		c.logger.Debug("discarding read-through result superseded by a newer write")
	}
	return snapshot, nil
}

// Update replaces the entry with snapshot, stamped with the current time.
func (c *Cache) Update(snapshot *gateway.InventorySnapshot) {
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.store.Set(latestKey, Entry{Snapshot: snapshot, CachedAt: c.cfg.Now()})
	c.logger.Info("cache updated with new data", "snapshot_id", snapshot.ID)
}

// Invalidate clears the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.store.Delete(latestKey)
	c.logger.Info("cache invalidated")
}

// Peek returns the current entry and whether it is fresh, without reading through.
func (c *Cache) Peek() (Entry, bool) {
	entry, ok := c.store.Get(latestKey)
	if !ok {
		return Entry{}, false
	}
	return entry, c.isFresh(entry)
}

func (c *Cache) fresh() (Entry, bool) {
	entry, ok := c.store.Get(latestKey)
	if !ok || !c.isFresh(entry) {
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) isFresh(entry Entry) bool {
	return entry.Snapshot != nil && c.cfg.Now().Sub(entry.CachedAt) < c.store.TTL()
}
