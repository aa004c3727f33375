package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// ProductService implements the business logic for product operations.
type ProductService struct {
	repos    repository.Repositories
	uow      repository.UnitOfWork
	cache    detailCache
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewProductService creates a new product service. cache may be nil.
func NewProductService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	cache repository.ProductDetailCache,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repos:    repos,
		uow:      uow,
		cache:    detailCache{cache: cache, logger: logger},
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateProduct creates a product owned by the acting administrator.
func (s *ProductService) CreateProduct(ctx context.Context, actor domain.Actor, input *domain.CreateProductInput) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can manage products")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if strings.TrimSpace(input.SKU) == "" {
		return nil, apperrors.InvalidInput("sku is required")
	}
	if err := checkPrices(input.Price, input.ComparePrice, input.CostPrice); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	status := input.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}
	explicit, err := explicitSlug(input.Slug)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		Name:         name,
		Slug:         explicit,
		Description:  input.Description,
		Price:        input.Price,
		ComparePrice: nullDecimal(input.ComparePrice),
		CostPrice:    nullDecimal(input.CostPrice),
		SKU:          strings.TrimSpace(input.SKU),
		Barcode:      input.Barcode,
		Quantity:     input.Quantity,
		CategoryID:   input.CategoryID,
		Status:       status,
		Featured:     input.Featured,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !actor.Anonymous() {
		product.CreatedBy = &actor.UserID
	}

	err = withSlugRetry(ctx, "product", s.metrics, func(ctx context.Context) (bool, error) {
		derived := explicit == ""
		return derived, s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			if derived {
				slug, err := deriveSlug(ctx, product.Name, product.ID, repos.Products.SlugsWithPrefix)
				if err != nil {
					return err
				}
				product.Slug = slug
			}
			return repos.Products.Create(ctx, product)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProductDetail returns a product with its category, ordered images and
// latest approved reviews. Unpublished products are only visible to
// administrators.
func (s *ProductService) GetProductDetail(ctx context.Context, actor domain.Actor, slug string) (*domain.ProductDetail, error) {
	if detail := s.cache.get(ctx, slug); detail != nil {
		if !detail.IsPublished() && !actor.IsAdmin {
			return nil, apperrors.NotFound("product", slug)
		}
		return detail, nil
	}

	product, err := s.repos.Products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	detail, err := s.assembleDetail(ctx, product)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, detail)

	if !detail.IsPublished() && !actor.IsAdmin {
		return nil, apperrors.NotFound("product", slug)
	}
	return detail, nil
}

func (s *ProductService) assembleDetail(ctx context.Context, product *domain.Product) (*domain.ProductDetail, error) {
	detail := &domain.ProductDetail{Product: *product}

	if product.CategoryID != nil {
		category, err := s.repos.Categories.GetByID(ctx, *product.CategoryID)
		switch {
		case err == nil:
			detail.Category = category
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return nil, fmt.Errorf("get product category: %w", err)
		}
	}

	images, err := s.repos.Images.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	detail.Images = images

	reviews, _, err := s.repos.Reviews.ListApproved(ctx, product.ID, pagination.Params{Page: 1, PerPage: domain.DetailReviewLimit})
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}
	detail.Reviews = reviews

	return detail, nil
}

// ListProducts returns a filtered page of products. Non-administrators only
// see published products whatever status they ask for.
func (s *ProductService) ListProducts(ctx context.Context, actor domain.Actor, filter domain.ProductFilter) ([]domain.Product, int, error) {
	if !actor.IsAdmin {
		published := domain.ProductStatusPublished
		filter.Status = &published
	}
	if !domain.IsValidOrdering(filter.Ordering) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid ordering %q", filter.Ordering))
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, 0, apperrors.InvalidInput("min_price must not exceed max_price")
	}

	products, total, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// FeaturedProducts returns up to domain.FeaturedLimit featured published
// products, newest first.
func (s *ProductService) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	featured := true
	published := domain.ProductStatusPublished
	products, _, err := s.repos.Products.List(ctx, domain.ProductFilter{
		Featured: &featured,
		Status:   &published,
		Ordering: domain.OrderingNewest,
		Limit:    domain.FeaturedLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return products, nil
}

// OnSaleProducts returns a page of published products priced below their
// compare price.
func (s *ProductService) OnSaleProducts(ctx context.Context, params pagination.Params) ([]domain.Product, int, error) {
	published := domain.ProductStatusPublished
	products, total, err := s.repos.Products.List(ctx, domain.ProductFilter{
		Status:   &published,
		OnSale:   true,
		Ordering: domain.OrderingNewest,
		Limit:    params.PerPage,
		Offset:   params.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list on-sale products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct applies a partial update. The slug only changes when one is
// supplied, or when the stored slug is empty and has to be assigned.
func (s *ProductService) UpdateProduct(ctx context.Context, actor domain.Actor, slug string, input *domain.UpdateProductInput) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can manage products")
	}
	explicit, err := explicitSlug(input.Slug)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = withSlugRetry(ctx, "product", s.metrics, func(ctx context.Context) (derived bool, err error) {
		err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			current, err := repos.Products.GetBySlug(ctx, slug)
			if err != nil {
				return err
			}

			if err := applyProductUpdate(current, input); err != nil {
				return err
			}

			switch {
			case explicit != "":
				current.Slug = explicit
			case current.Slug == "":
				derived = true
				current.Slug, err = deriveSlug(ctx, current.Name, current.ID, repos.Products.SlugsWithPrefix)
				if err != nil {
					return err
				}
			}

			if err := repos.Products.Update(ctx, current); err != nil {
				return err
			}
			product = current
			return nil
		})
		return derived, err
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.cache.invalidate(ctx, slug, product.Slug)

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

func applyProductUpdate(p *domain.Product, input *domain.UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.InvalidInput("product name must not be empty")
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.ComparePrice != nil {
		p.ComparePrice = nullDecimal(input.ComparePrice)
	}
	if input.CostPrice != nil {
		p.CostPrice = nullDecimal(input.CostPrice)
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return apperrors.InvalidInput("sku must not be empty")
		}
		p.SKU = sku
	}
	if input.Barcode != nil {
		p.Barcode = *input.Barcode
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return apperrors.InvalidInput("quantity must not be negative")
		}
		p.Quantity = *input.Quantity
	}
	if input.CategoryID != nil {
		if *input.CategoryID == "" {
			p.CategoryID = nil
		} else {
			p.CategoryID = input.CategoryID
		}
	}
	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *input.Status))
		}
		p.Status = *input.Status
	}
	if input.Featured != nil {
		p.Featured = *input.Featured
	}
	return checkPrices(p.Price, decimalPtr(p.ComparePrice), decimalPtr(p.CostPrice))
}

// DeleteProduct deletes a product together with its images and reviews.
func (s *ProductService) DeleteProduct(ctx context.Context, actor domain.Actor, slug string) error {
	if !actor.IsAdmin {
		return apperrors.Forbidden("only administrators can manage products")
	}

	product, err := s.repos.Products.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get product by slug: %w", err)
	}

	if err := s.repos.Products.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.cache.invalidate(ctx, slug)

	if err := s.producer.PublishProductDeleted(ctx, product.ID, product.Slug); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", product.ID),
		slog.String("slug", slug),
	)

	return nil
}

// AddImage attaches an image to a product. A new default image replaces the
// previous default.
func (s *ProductService) AddImage(ctx context.Context, actor domain.Actor, slug string, input *domain.AddImageInput) (*domain.ProductImage, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can manage products")
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperrors.InvalidInput("image url is required")
	}

	image := &domain.ProductImage{
		ID:        uuid.New().String(),
		URL:       input.URL,
		AltText:   input.AltText,
		IsDefault: input.IsDefault,
		CreatedAt: time.Now().UTC(),
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		image.ProductID = product.ID

		if image.IsDefault {
			if err := repos.Images.ClearDefault(ctx, product.ID); err != nil {
				return err
			}
		}
		return repos.Images.Add(ctx, image)
	})
	if err != nil {
		return nil, fmt.Errorf("add product image: %w", err)
	}

	s.cache.invalidate(ctx, slug)

	s.logger.InfoContext(ctx, "product image added",
		slog.String("product_id", image.ProductID),
		slog.String("image_id", image.ID),
		slog.Bool("is_default", image.IsDefault),
	)

	return image, nil
}

// DeleteImage removes an image of a product.
func (s *ProductService) DeleteImage(ctx context.Context, actor domain.Actor, slug, imageID string) error {
	if !actor.IsAdmin {
		return apperrors.Forbidden("only administrators can manage products")
	}

	product, err := s.repos.Products.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get product by slug: %w", err)
	}

	if err := s.repos.Images.Delete(ctx, product.ID, imageID); err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}

	s.cache.invalidate(ctx, slug)
	return nil
}

func checkPrices(price decimal.Decimal, compare, cost *decimal.Decimal) error {
	if err := checkMoney("price", price); err != nil {
		return err
	}
	if compare != nil {
		if err := checkMoney("compare_price", *compare); err != nil {
			return err
		}
	}
	if cost != nil {
		if err := checkMoney("cost_price", *cost); err != nil {
			return err
		}
	}
	return nil
}

// checkMoney holds an amount to the stored precision. Trailing zeros such as
// 9.990 are accepted; 9.999 is not rounded silently.
func checkMoney(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return apperrors.InvalidInput(field + " must not be negative")
	case !d.Equal(d.Truncate(domain.MoneyScale)):
		return apperrors.InvalidInput(fmt.Sprintf("%s must have at most %d decimal places", field, domain.MoneyScale))
	case d.GreaterThanOrEqual(domain.MaxMoney):
		return apperrors.InvalidInput(fmt.Sprintf("%s must be less than %s", field, domain.MaxMoney))
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}
