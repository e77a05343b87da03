package application

import (
	"context"
	"sync"
	"time"

	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/spot"
	"go.uber.org/zap"
)

// CatalogCache holds the current spot catalog generation in memory.
// Each Reload takes a generation token; a fetch that completes after a newer
// one has started is discarded instead of overwriting fresher data.
type CatalogCache struct {
	source spot.Source
	logger *zap.Logger

	mu         sync.RWMutex
	spots      []spot.ParkingSpot
	rejected   int
	loadedAt   time.Time
	lastErr    error
	generation uint64
	applied    uint64
}

// CatalogSnapshot describes the loaded catalog.
type CatalogSnapshot struct {
	Size       int       `json:"size"`
	Rejected   int       `json:"rejected"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// NewCatalogCache creates an empty cache backed by source.
func NewCatalogCache(source spot.Source, logger *zap.Logger) *CatalogCache {
	return &CatalogCache{source: source, logger: logger, spots: []spot.ParkingSpot{}}
}

// Reload fetches and normalizes the catalog. A failed fetch leaves the cache
// empty and returns an unavailable error.
func (c *CatalogCache) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	token := c.generation
	c.mu.Unlock()

	raw, fetchErr := c.source.Fetch(ctx)

	var spots []spot.ParkingSpot
	var rejected []spot.Rejection
	if fetchErr == nil {
		spots, rejected = spot.Normalize(raw)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.generation {
		c.logger.Info("discarding superseded catalog fetch",
			zap.Uint64("generation", token),
			zap.Uint64("current", c.generation),
		)
		return nil
	}

	c.applied = token
	c.loadedAt = time.Now().UTC()

	if fetchErr != nil {
		c.spots = []spot.ParkingSpot{}
		c.rejected = 0
		c.lastErr = fetchErr
		c.logger.Error("catalog fetch failed, serving empty catalog", zap.Error(fetchErr))
		return domain.NewUnavailableError("failed to load parking catalog", fetchErr)
	}

	for _, r := range rejected {
		c.logger.Warn("excluded catalog record",
			zap.Int("index", r.Index),
			zap.String("spot_id", r.ID),
			zap.String("reason", r.Reason),
		)
	}

	c.spots = spots
	c.rejected = len(rejected)
	c.lastErr = nil
	c.logger.Info("catalog loaded",
		zap.Uint64("generation", token),
		zap.Int("spots", len(spots)),
		zap.Int("rejected", len(rejected)),
	)
	return nil
}

// Spots returns the current catalog. The slice is shared and must not be modified.
func (c *CatalogCache) Spots() []spot.ParkingSpot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.spots
}

// Find returns the spot with id from the current catalog.
func (c *CatalogCache) Find(id string) (spot.ParkingSpot, bool) {
	return spot.FindByID(c.Spots(), id)
}

// Snapshot reports size and load state.
func (c *CatalogCache) Snapshot() CatalogSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := CatalogSnapshot{
		Size:       len(c.spots),
		Rejected:   c.rejected,
		Generation: c.applied,
		LoadedAt:   c.loadedAt,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Ready reports an error when the last load failed.
func (c *CatalogCache) Ready(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.applied == 0 {
		return domain.NewUnavailableError("catalog not loaded yet", nil)
	}
	return c.lastErr
}
