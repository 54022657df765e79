// Package catalog caches the store's product catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agenthands/compat/internal/core/common"
	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
)

// Provider fetches the full catalog from an upstream system.
type Provider interface {
	FetchProducts(ctx context.Context) ([]model.Product, error)
}

// Cache is the process-wide catalog snapshot.
type Cache struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	products []model.Product
	index    map[string]int

	persistence driver.Persistence
	logger      *slog.Logger
}

func New(p driver.Persistence, logger *slog.Logger) *Cache {
	return &Cache{
		products:    []model.Product{},
		index:       map[string]int{},
		persistence: p,
		logger:      logger,
	}
}

// Load restores the saved catalog, falling back to an empty one.
func Load(ctx context.Context, p driver.Persistence, logger *slog.Logger) *Cache {
	c := New(p, logger)

	data, found, err := p.Load(ctx, driver.KeyCatalog)
	if err != nil {
		logger.Warn("failed to load catalog, starting empty", "error", err)
		return c
	}
	if !found {
		return c
	}

	products, err := common.DecodeJSON[[]model.Product](data)
	if err != nil {
		logger.Warn("stored catalog is invalid, starting empty", "error", err)
		return c
	}

	c.swap(products)
	return c
}

// Replace installs products as the catalog and persists it. A repeated id keeps
// its first position and its last content.
func (c *Cache) Replace(ctx context.Context, products []model.Product) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	snapshot := c.swap(products)

	data, err := common.EncodeJSON(snapshot)
	if err != nil {
		return &model.PersistenceError{Op: "save", Key: driver.KeyCatalog, Err: err}
	}
	if err := c.persistence.Save(ctx, driver.KeyCatalog, data); err != nil {
		c.logger.Error("failed to persist catalog", "error", err)
		return &model.PersistenceError{Op: "save", Key: driver.KeyCatalog, Err: err}
	}
	return nil
}

// Refresh replaces the catalog with what provider returns. A failed fetch leaves
// the current snapshot untouched. The product count is returned whenever the
// snapshot was swapped, even if persisting it failed.
func (c *Cache) Refresh(ctx context.Context, provider Provider) (int, error) {
	products, err := provider.FetchProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch catalog: %w", err)
	}
	err = c.Replace(ctx, products)
	return c.Len(), err
}

func (c *Cache) swap(products []model.Product) []model.Product {
	snapshot := make([]model.Product, 0, len(products))
	index := make(map[string]int, len(products))
	for _, p := range products {
		if i, ok := index[p.ID]; ok {
			snapshot[i] = p
			continue
		}
		index[p.ID] = len(snapshot)
		snapshot = append(snapshot, p)
	}

	c.mu.Lock()
	c.products = snapshot
	c.index = index
	c.mu.Unlock()

	return snapshot
}

// Lookup returns the product with the given id.
func (c *Cache) Lookup(id string) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[i], true
}

// Products returns a copy of the catalog in stored order.
func (c *Cache) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}
