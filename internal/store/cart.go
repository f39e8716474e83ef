package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// CartFetcher fetches the session's cart from the inventory service.
type CartFetcher interface {
	FetchCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// CartStore mirrors the session's cart as the inventory service last reported
// it. The cart is never mutated locally: mutations go to the service and the
// mirror is replaced by a subsequent refresh. On refresh failure the previous
// mirror is retained.
type CartStore struct {
	mu       sync.RWMutex
	cart     *domain.Cart
	lastSync time.Time

	fetcher CartFetcher
}

// NewCartStore creates a cart store backed by the given fetcher. Until the
// first refresh the store reports an empty cart for any session.
func NewCartStore(fetcher CartFetcher) *CartStore {
	return &CartStore{fetcher: fetcher}
}

// Refresh replaces the mirrored cart with the service's current state for the
// session. A missing cart on the service side arrives here as an empty cart
// (the fetcher handles that), so an empty result is a valid replacement.
func (s *CartStore) Refresh(ctx context.Context, sessionID string) error {
	cart, err := s.fetcher.FetchCart(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("refresh cart: %w", err)
	}

	s.mu.Lock()
	s.cart = cart
	s.lastSync = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

// Cart returns a copy of the mirrored cart. Before the first successful
// refresh it returns an empty cart for the given session.
func (s *CartStore) Cart(sessionID string) *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cart == nil {
		return domain.EmptyCart(sessionID)
	}

	cpy := *s.cart
	cpy.Items = make([]domain.LineItem, len(s.cart.Items))
	copy(cpy.Items, s.cart.Items)
	return &cpy
}

// LastSync returns when the mirror last refreshed successfully.
func (s *CartStore) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}
