package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront domain events, e.g. "storefront.cart.updated".
var (
	TopicCartUpdated      = pkgkafka.Topic("cart", "updated")
	TopicCartCleared      = pkgkafka.Topic("cart", "cleared")
	TopicCatalogRefreshed = pkgkafka.Topic("catalog", "refreshed")
	TopicSessionCreated   = pkgkafka.Topic("session", "created")
)

// Aggregate type constants.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeCatalog = "catalog"
	AggregateTypeSession = "session"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID   string         `json:"session_id"`
	Items       []CartItemData `json:"items"`
	ItemCount   int            `json:"item_count"`
	TotalAmount string         `json:"total_amount"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// CatalogRefreshedData is the payload for a catalog.refreshed event.
type CatalogRefreshedData struct {
	ProductCount int `json:"product_count"`
}

// SessionCreatedData is the payload for a session.created event.
type SessionCreatedData struct {
	SessionID string `json:"session_id"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ItemID:    item.ID,
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Price:     item.Product.Price.String(),
			Quantity:  item.Quantity,
		}
	}

	data := CartUpdatedData{
		SessionID:   cart.SessionID,
		Items:       items,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.Total().String(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.SessionID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", cart.SessionID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	data := CartClearedData{SessionID: sessionID}

	event, err := pkgkafka.NewEvent(TopicCartCleared, sessionID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("session_id", sessionID),
	)

	return nil
}

// PublishCatalogRefreshed publishes a catalog.refreshed event.
func (p *Producer) PublishCatalogRefreshed(ctx context.Context, productCount int) error {
	data := CatalogRefreshedData{ProductCount: productCount}

	event, err := pkgkafka.NewEvent(TopicCatalogRefreshed, SourceStorefront, AggregateTypeCatalog, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create catalog.refreshed event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicCatalogRefreshed, event); err != nil {
		return fmt.Errorf("publish catalog.refreshed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published catalog.refreshed event",
		slog.Int("product_count", productCount),
	)

	return nil
}

// PublishSessionCreated publishes a session.created event.
func (p *Producer) PublishSessionCreated(ctx context.Context, sessionID string) error {
	data := SessionCreatedData{SessionID: sessionID}

	event, err := pkgkafka.NewEvent(TopicSessionCreated, sessionID, AggregateTypeSession, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create session.created event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicSessionCreated, event); err != nil {
		return fmt.Errorf("publish session.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published session.created event",
		slog.String("session_id", sessionID),
	)

	return nil
}
