package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/store"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MaxQuantityPerItem is the maximum quantity accepted for a single cart line.
const MaxQuantityPerItem = 100

// InventoryClient covers the cart mutations the engine submits to the
// inventory service. Reads go through the catalog and cart stores instead.
type InventoryClient interface {
	AddItem(ctx context.Context, sessionID, productID string, quantity int) error
	UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, itemID string) error
	ClearCart(ctx context.Context, sessionID string) error
}

// Summary is the cart aggregate view: total line quantity plus the cart
// total rendered at two decimal places.
type Summary struct {
	ItemCount int    `json:"item_count"`
	Total     string `json:"total"`
}

// Engine coordinates cart mutations against the inventory service and keeps
// the local catalog and cart caches in sync with it. The inventory service is
// the single source of truth: the engine never applies a mutation locally,
// it submits the mutation and then re-fetches both caches, so local state is
// only ever a snapshot of what the service last confirmed.
//
// Mutations are serialized: while one is in flight, further mutations are
// rejected with ErrSyncInFlight rather than queued.
type Engine struct {
	inventory InventoryClient
	catalog   *store.CatalogCache
	cart      *store.CartStore
	sessions  *session.Manager
	producer  *event.Producer
	logger    *slog.Logger

	busy atomic.Bool
}

// New creates a sync engine.
func New(
	inventory InventoryClient,
	catalog *store.CatalogCache,
	cart *store.CartStore,
	sessions *session.Manager,
	producer *event.Producer,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		inventory: inventory,
		catalog:   catalog,
		cart:      cart,
		sessions:  sessions,
		producer:  producer,
		logger:    logger,
	}
}

// Session returns the current session ID, establishing one on first use.
func (e *Engine) Session(ctx context.Context) (string, error) {
	id, created, err := e.sessions.GetOrCreate(ctx)
	if err != nil {
		return "", fmt.Errorf("establish session: %w", err)
	}

	if created {
		if err := e.producer.PublishSessionCreated(ctx, id); err != nil {
			e.logger.ErrorContext(ctx, "failed to publish session.created event",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return id, nil
}

// Bootstrap establishes the session identity and performs the initial cache
// sync. A failed initial sync is not fatal: the caches start empty and the
// next successful refresh fills them.
func (e *Engine) Bootstrap(ctx context.Context) error {
	sessionID, err := e.Session(ctx)
	if err != nil {
		return err
	}

	e.syncCaches(ctx, sessionID)
	return nil
}

// AddToCart submits an add mutation for the given product and re-syncs both
// caches. When the cached catalog already shows the product as out of stock,
// the mutation is rejected locally and never reaches the service. A stock
// rejection from the service (ErrInsufficientStock) is surfaced as-is; it is
// not retried and the caches are re-synced so the stale stock count that
// allowed the attempt is corrected.
func (e *Engine) AddToCart(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	sessionID, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return nil, apperrors.SyncInFlight()
	}
	defer e.busy.Store(false)

	if p, ok := e.catalog.Product(productID); ok && !p.InStock() {
		return nil, apperrors.OutOfStock(p.Name)
	}

	mutErr := e.inventory.AddItem(ctx, sessionID, productID, quantity)
	e.syncCaches(ctx, sessionID)
	if mutErr != nil {
		return nil, mutErr
	}

	cart := e.cart.Cart(sessionID)
	e.publishCartUpdated(ctx, cart)

	e.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// UpdateQuantity submits a quantity change for an existing cart line and
// re-syncs both caches.
func (e *Engine) UpdateQuantity(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	sessionID, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return nil, apperrors.SyncInFlight()
	}
	defer e.busy.Store(false)

	mutErr := e.inventory.UpdateItem(ctx, sessionID, itemID, quantity)
	e.syncCaches(ctx, sessionID)
	if mutErr != nil {
		return nil, mutErr
	}

	cart := e.cart.Cart(sessionID)
	e.publishCartUpdated(ctx, cart)

	e.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveFromCart submits a remove mutation and re-syncs both caches. The
// mutation is always submitted without consulting local state; the inventory
// client already treats an item that is gone on the service side as removed.
func (e *Engine) RemoveFromCart(ctx context.Context, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	sessionID, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return nil, apperrors.SyncInFlight()
	}
	defer e.busy.Store(false)

	mutErr := e.inventory.RemoveItem(ctx, sessionID, itemID)
	e.syncCaches(ctx, sessionID)
	if mutErr != nil {
		return nil, mutErr
	}

	cart := e.cart.Cart(sessionID)
	e.publishCartUpdated(ctx, cart)

	e.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
	)

	return cart, nil
}

// ClearCart removes every item from the session's cart and re-syncs both
// caches.
func (e *Engine) ClearCart(ctx context.Context) error {
	sessionID, err := e.Session(ctx)
	if err != nil {
		return err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return apperrors.SyncInFlight()
	}
	defer e.busy.Store(false)

	mutErr := e.inventory.ClearCart(ctx, sessionID)
	e.syncCaches(ctx, sessionID)
	if mutErr != nil {
		return mutErr
	}

	if err := e.producer.PublishCartCleared(ctx, sessionID); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	e.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return nil
}

// RefreshAll re-syncs both caches on demand and reports whether either
// refresh failed. Unlike the implicit post-mutation sync, the caller asked
// for fresh data, so a failure is returned instead of just logged.
func (e *Engine) RefreshAll(ctx context.Context) error {
	sessionID, err := e.Session(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error { return e.catalog.Refresh(ctx) })
	g.Go(func() error { return e.cart.Refresh(ctx, sessionID) })
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.producer.PublishCatalogRefreshed(ctx, len(e.catalog.Products())); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish catalog.refreshed event",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Products returns the cached catalog snapshot.
func (e *Engine) Products() []domain.Product {
	return e.catalog.Products()
}

// Cart returns the cached cart snapshot for the current session.
func (e *Engine) Cart(ctx context.Context) (*domain.Cart, error) {
	sessionID, err := e.Session(ctx)
	if err != nil {
		return nil, err
	}
	return e.cart.Cart(sessionID), nil
}

// CartSummary returns the cart aggregates for the current session.
func (e *Engine) CartSummary(ctx context.Context) (Summary, error) {
	cart, err := e.Cart(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		ItemCount: cart.ItemCount(),
		Total:     cart.DisplayTotal(),
	}, nil
}

// LastSync reports the most recent successful refresh time of either cache.
func (e *Engine) LastSync() time.Time {
	catalog := e.catalog.LastSync()
	cart := e.cart.LastSync()
	if cart.After(catalog) {
		return cart
	}
	return catalog
}

// syncCaches refreshes the catalog and cart caches concurrently. It runs
// after every submitted mutation regardless of the mutation's outcome. Both
// refreshes run to completion; a failure keeps the previous snapshot and is
// logged, never surfaced, so stale-but-available data keeps serving reads.
func (e *Engine) syncCaches(ctx context.Context, sessionID string) {
	var g errgroup.Group
	g.Go(func() error { return e.catalog.Refresh(ctx) })
	g.Go(func() error { return e.cart.Refresh(ctx, sessionID) })
	if err := g.Wait(); err != nil {
		e.logger.WarnContext(ctx, "cache refresh failed, keeping last known snapshot",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := e.producer.PublishCartUpdated(ctx, cart); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
