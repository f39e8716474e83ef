package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductLister fetches the live catalog from the inventory service.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// CatalogCache holds the locally cached product catalog. A successful refresh
// replaces the whole snapshot; a failed refresh leaves the previous snapshot
// untouched, so readers always see the last known-good data.
type CatalogCache struct {
	mu       sync.RWMutex
	products []domain.Product
	byID     map[string]domain.Product
	lastSync time.Time

	lister ProductLister
}

// NewCatalogCache creates an empty catalog cache backed by the given lister.
func NewCatalogCache(lister ProductLister) *CatalogCache {
	return &CatalogCache{
		byID:   make(map[string]domain.Product),
		lister: lister,
	}
}

// Refresh replaces the cached catalog with the service's current state.
// On failure the existing snapshot is retained and the error is returned.
func (c *CatalogCache) Refresh(ctx context.Context) error {
	products, err := c.lister.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	c.mu.Lock()
	c.products = products
	c.byID = byID
	c.lastSync = time.Now().UTC()
	c.mu.Unlock()

	return nil
}

// Products returns a copy of the cached catalog snapshot.
func (c *CatalogCache) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product looks up a single cached product by ID.
func (c *CatalogCache) Product(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	return p, ok
}

// LastSync returns when the cache last refreshed successfully. The zero time
// means no refresh has succeeded yet.
func (c *CatalogCache) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}
