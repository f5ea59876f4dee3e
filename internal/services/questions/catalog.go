package questions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/triviagame/internal/dependencies/clock"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage"
)

// DefaultStaleAfter is how long synced categories are trusted
const DefaultStaleAfter = 24 * time.Hour

// Catalog serves the stored category list, re-syncing it from the source
// when it is empty or stale
type Catalog struct {
	storage    storage.Storage
	source     CategorySource
	clock      clock.Clock
	staleAfter time.Duration
	logger     *slog.Logger

	syncMu sync.Mutex
}

// NewCatalog creates a new Catalog
func NewCatalog(storage storage.Storage, source CategorySource, clock clock.Clock, staleAfter time.Duration, logger *slog.Logger) *Catalog {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Catalog{
		storage:    storage,
		source:     source,
		clock:      clock,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// List returns available categories sorted by name. A failed refresh of a
// stale but non-empty list is logged and the stale list is served.
func (c *Catalog) List(ctx context.Context) ([]model.Category, error) {
	categories, err := c.storage.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if !c.needsSync(categories) {
		return categories, nil
	}

	fresh, err := c.Sync(ctx)
	if err != nil {
		if len(categories) > 0 {
			c.logger.Warn("category sync failed, serving stale categories",
				slog.Int("count", len(categories)),
				slog.String("error", err.Error()),
			)
			return categories, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Get returns an available category, syncing first if the catalog is empty or stale
func (c *Catalog) Get(ctx context.Context, id model.CategoryID) (*model.Category, error) {
	categories, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i], nil
		}
	}
	return nil, model.ErrCategoryNotFound
}

// Sync pulls categories from the source, deactivating any that disappeared
func (c *Catalog) Sync(ctx context.Context) ([]model.Category, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	fetched, err := c.source.FetchCategories(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	for i := range fetched {
		fetched[i].UpdatedAt = now
	}
	if err := c.storage.SyncCategories(ctx, fetched); err != nil {
		return nil, err
	}

	c.logger.Info("categories synced", slog.Int("count", len(fetched)))
	return c.storage.ListCategories(ctx)
}

func (c *Catalog) needsSync(categories []model.Category) bool {
	if len(categories) == 0 {
		return true
	}
	cutoff := c.clock.Now().Add(-c.staleAfter)
	for _, cat := range categories {
		if cat.UpdatedAt.Before(cutoff) {
			return true
		}
	}
	return false
}
