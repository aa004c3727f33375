package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	pkgkafka "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/kafka"
)

// Kafka topics for catalog domain events.
var (
	TopicProductCreated       = pkgkafka.Topic("product", "created")
	TopicProductUpdated       = pkgkafka.Topic("product", "updated")
	TopicProductDeleted       = pkgkafka.Topic("product", "deleted")
	TopicProductRatingUpdated = pkgkafka.Topic("product", "rating_updated")
	TopicCategoryCreated      = pkgkafka.Topic("category", "created")
	TopicCategoryDeleted      = pkgkafka.Topic("category", "deleted")
)

// Aggregate type constants.
const (
	AggregateTypeProduct  = "product"
	AggregateTypeCategory = "category"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Description  string              `json:"description"`
	SKU          string              `json:"sku"`
	CategoryID   *string             `json:"category_id,omitempty"`
	Status       string              `json:"status"`
	Price        decimal.Decimal     `json:"price"`
	ComparePrice decimal.NullDecimal `json:"compare_price"`
	Quantity     int                 `json:"quantity"`
	Featured     bool                `json:"featured"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// RatingUpdatedData is the payload for a product.rating_updated event.
type RatingUpdatedData struct {
	ProductID     string              `json:"product_id"`
	AverageRating decimal.NullDecimal `json:"average_rating"`
	ReviewCount   int                 `json:"review_count"`
}

// CategoryData is the payload for a category.created event.
type CategoryData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *string `json:"parent_id,omitempty"`
}

// CategoryDeletedData is the payload for a category.deleted event.
type CategoryDeletedData struct {
	ID string `json:"id"`
}

// Producer publishes catalog domain events. A Producer without a publisher
// drops every event, which is how the service runs without Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. publisher may be nil.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		SKU:          p.SKU,
		CategoryID:   p.CategoryID,
		Status:       p.Status,
		Price:        p.Price,
		ComparePrice: p.ComparePrice,
		Quantity:     p.Quantity,
		Featured:     p.Featured,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id, slug string) error {
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct, ProductDeletedData{ID: id, Slug: slug})
}

// PublishRatingUpdated publishes a product.rating_updated event.
func (p *Producer) PublishRatingUpdated(ctx context.Context, productID string, summary rating.Summary) error {
	data := RatingUpdatedData{
		ProductID:     productID,
		AverageRating: summary.Average,
		ReviewCount:   summary.Count,
	}
	return p.publish(ctx, TopicProductRatingUpdated, productID, AggregateTypeProduct, data)
}

// PublishCategoryCreated publishes a category.created event.
func (p *Producer) PublishCategoryCreated(ctx context.Context, c *domain.Category) error {
	data := CategoryData{ID: c.ID, Name: c.Name, Slug: c.Slug, ParentID: c.ParentID}
	return p.publish(ctx, TopicCategoryCreated, c.ID, AggregateTypeCategory, data)
}

// PublishCategoryDeleted publishes a category.deleted event.
func (p *Producer) PublishCategoryDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicCategoryDeleted, id, AggregateTypeCategory, CategoryDeletedData{ID: id})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.publisher == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)

	return nil
}
