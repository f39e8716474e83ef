package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the inventory service, the single source of truth for
// products, stock, and cart contents. Reads go through a retrying client;
// mutations go through a non-retrying one so a rejected mutation is surfaced
// exactly once.
type Client struct {
	reads   HTTPDoer
	writes  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// New creates an inventory client. reads and writes may be the same doer in
// tests; in production reads retry and writes do not.
func New(reads, writes HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		reads:   reads,
		writes:  writes,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type cartItemDTO struct {
	ID       string     `json:"id"`
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
}

type cartDTO struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Items     []cartItemDTO `json:"items"`
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
	}
}

func (d cartDTO) toDomain(sessionID string) *domain.Cart {
	items := make([]domain.LineItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = domain.LineItem{
			ID:       it.ID,
			Product:  it.Product.toDomain(),
			Quantity: it.Quantity,
		}
	}
	if d.SessionID == "" {
		d.SessionID = sessionID
	}
	return &domain.Cart{ID: d.ID, SessionID: d.SessionID, Items: items}
}

// ListProducts fetches the full catalog with live stock levels.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create products request: %w", err)
	}

	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	// Reads never hit stock rejections, so the generic mapping is enough.
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var dtos []productDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	products := make([]domain.Product, len(dtos))
	for i, d := range dtos {
		products[i] = d.toDomain()
	}
	return products, nil
}

// FetchCart retrieves the cart for a session. A 404 from the service means no
// cart exists yet and is returned as an empty cart, not an error.
func (c *Client) FetchCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	u := c.baseURL + "/cart/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create cart request: %w", err)
	}

	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return domain.EmptyCart(sessionID), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var dto cartDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	return dto.toDomain(sessionID), nil
}

// AddItem submits an add-to-cart mutation. Stock rejections come back as
// InsufficientStock; they are expected under concurrent load and are never
// retried here.
func (c *Client) AddItem(ctx context.Context, sessionID, productID string, quantity int) error {
	payload, err := json.Marshal(map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	if err != nil {
		return fmt.Errorf("marshal add item request: %w", err)
	}

	u := c.baseURL + "/cart/add?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create add item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.writes.Do(ctx, req)
	if err != nil {
		return apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.classify(resp)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// UpdateItem changes the quantity of an existing cart line.
func (c *Client) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) error {
	payload, err := json.Marshal(map[string]any{"quantity": quantity})
	if err != nil {
		return fmt.Errorf("marshal update item request: %w", err)
	}

	u := c.baseURL + "/cart/" + url.PathEscape(sessionID) + "/item/" + url.PathEscape(itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create update item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.writes.Do(ctx, req)
	if err != nil {
		return apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.classify(resp)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// RemoveItem deletes a cart line. A 404 means the item is already gone, which
// is the outcome the caller wanted, so it is treated as success.
func (c *Client) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	u := c.baseURL + "/cart/" + url.PathEscape(sessionID) + "/item/" + url.PathEscape(itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create remove item request: %w", err)
	}

	resp, err := c.writes.Do(ctx, req)
	if err != nil {
		return apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.DebugContext(ctx, "cart item already absent on remove",
			slog.String("session_id", sessionID),
			slog.String("item_id", itemID),
		)
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.classify(resp)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// ClearCart deletes the whole cart for a session. A 404 is treated as success
// for the same reason as RemoveItem.
func (c *Client) ClearCart(ctx context.Context, sessionID string) error {
	u := c.baseURL + "/cart/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create clear cart request: %w", err)
	}

	resp, err := c.writes.Do(ctx, req)
	if err != nil {
		return apperrors.Unavailable("inventory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.classify(resp)
	}

	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}

// classify normalizes mutation error responses. It reads the body once so
// stock rejections can be upgraded to InsufficientStock before the generic
// status mapping runs; read paths skip this and parse the response directly.
func (c *Client) classify(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("inventory returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict {
		if msg := httpclient.ErrorMessage(body); isStockRejection(msg) {
			return apperrors.InsufficientStock(msg)
		}
	}

	return httpclient.ParseErrorBody(resp.StatusCode, body, "inventory")
}

// isStockRejection matches the message the inventory service uses when the
// requested quantity exceeds what is available.
func isStockRejection(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not enough stock")
}
