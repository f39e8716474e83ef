package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/engine"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// StorefrontHandler handles HTTP requests for the storefront endpoints.
type StorefrontHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(eng *engine.Engine, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		engine: eng,
		logger: logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for changing a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// --- Response views ---

// ProductView is the presentation shape of a catalog product. Price carries
// the display rendering at two decimal places.
type ProductView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	InStock     bool   `json:"in_stock"`
}

// CartItemView is the presentation shape of a cart line.
type CartItemView struct {
	ID       string      `json:"id"`
	Product  ProductView `json:"product"`
	Quantity int         `json:"quantity"`
	Subtotal string      `json:"subtotal"`
}

// CartView is the presentation shape of the cart with its aggregates.
type CartView struct {
	SessionID string         `json:"session_id"`
	Items     []CartItemView `json:"items"`
	ItemCount int            `json:"item_count"`
	Total     string         `json:"total"`
}

// SessionView is the presentation shape of the session identity.
type SessionView struct {
	SessionID string `json:"session_id"`
}

// RefreshView reports the outcome of an on-demand sync.
type RefreshView struct {
	Status   string    `json:"status"`
	LastSync time.Time `json:"last_sync"`
}

func productView(p domain.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.DisplayPrice(),
		Stock:       p.Stock,
		InStock:     p.InStock(),
	}
}

func cartView(cart *domain.Cart) CartView {
	items := make([]CartItemView, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemView{
			ID:       item.ID,
			Product:  productView(item.Product),
			Quantity: item.Quantity,
			Subtotal: item.Subtotal().StringFixed(2),
		}
	}
	return CartView{
		SessionID: cart.SessionID,
		Items:     items,
		ItemCount: cart.ItemCount(),
		Total:     cart.DisplayTotal(),
	}
}

// --- Handlers ---

// GetSession handles GET /api/v1/storefront/session
func (h *StorefrontHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.engine.Session(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionView{SessionID: id}})
}

// ListProducts handles GET /api/v1/storefront/products
func (h *StorefrontHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.engine.Products()

	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = productView(p)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: views})
}

// GetCart handles GET /api/v1/storefront/cart
func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.engine.Cart(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartView(cart)})
}

// GetCartSummary handles GET /api/v1/storefront/cart/summary
func (h *StorefrontHandler) GetCartSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.CartSummary(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}

// AddItem handles POST /api/v1/storefront/cart/items
func (h *StorefrontHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.engine.AddToCart(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartView(cart)})
}

// UpdateItemQuantity handles PUT /api/v1/storefront/cart/items/{itemId}
func (h *StorefrontHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("itemId is required"), h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.engine.UpdateQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartView(cart)})
}

// RemoveItem handles DELETE /api/v1/storefront/cart/items/{itemId}
func (h *StorefrontHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("itemId is required"), h.logger)
		return
	}

	cart, err := h.engine.RemoveFromCart(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartView(cart)})
}

// ClearCart handles DELETE /api/v1/storefront/cart
func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCart(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}

// Refresh handles POST /api/v1/storefront/refresh
func (h *StorefrontHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshAll(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: RefreshView{Status: "refreshed", LastSync: h.engine.LastSync()},
	})
}
