package repository

import (
	"context"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	// Create inserts a new category. A slug collision is reported as
	// domain.ErrSlugConflict.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID retrieves a category by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	// GetBySlug retrieves a category by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)

	// Update modifies an existing category.
	Update(ctx context.Context, category *domain.Category) error

	// Delete removes a category and, through the foreign key, its descendants.
	Delete(ctx context.Context, id string) error

	// List returns categories matching filter ordered by name.
	List(ctx context.Context, filter domain.CategoryFilter) ([]domain.Category, error)

	// SlugsWithPrefix returns the category slugs equal to base or of the form
	// base-N, leaving out the category excludeID.
	SlugsWithPrefix(ctx context.Context, base, excludeID string) ([]string, error)

	// ListMissingSlug returns categories stored with an empty slug.
	ListMissingSlug(ctx context.Context) ([]domain.Category, error)
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product. A slug collision is reported as
	// domain.ErrSlugConflict; a SKU collision as apperrors.ErrAlreadyExists.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching filter along with the total count.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	// Update modifies the editable fields of a product. The rating aggregate
	// is never written here.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product; its images and reviews cascade.
	Delete(ctx context.Context, id string) error

	// SlugsWithPrefix returns the product slugs equal to base or of the form
	// base-N, leaving out the product excludeID.
	SlugsWithPrefix(ctx context.Context, base, excludeID string) ([]string, error)

	// ListMissingSlug returns products stored with an empty slug.
	ListMissingSlug(ctx context.Context) ([]domain.Product, error)

	// ListIDs returns the IDs of every product.
	ListIDs(ctx context.Context) ([]string, error)

	// LockForUpdate takes a row lock on the product for the rest of the
	// transaction. It returns rating.ErrProductMissing when absent.
	LockForUpdate(ctx context.Context, id string) error

	// UpdateRating writes average_rating and review_count only. It returns
	// rating.ErrProductMissing when no row matched.
	UpdateRating(ctx context.Context, id string, summary rating.Summary) error

	// ClearCreator nulls created_by on every product created by userID and
	// returns the number of affected rows.
	ClearCreator(ctx context.Context, userID string) (int64, error)
}

// ImageRepository defines the interface for product image persistence.
type ImageRepository interface {
	// Add inserts an image for a product.
	Add(ctx context.Context, image *domain.ProductImage) error

	// ClearDefault unsets the default flag on every image of the product.
	ClearDefault(ctx context.Context, productID string) error

	// ListByProduct returns the product's images, default first.
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)

	// Delete removes one image of a product.
	Delete(ctx context.Context, productID, imageID string) error
}

// ReviewRepository defines the interface for review persistence.
type ReviewRepository interface {
	// Create inserts a review. A second review by the same user for the
	// same product is reported as apperrors.ErrAlreadyExists.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update modifies rating, title, content and approval of a review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review.
	Delete(ctx context.Context, id string) error

	// ListApproved returns a page of the product's approved reviews, newest
	// first, with the total count.
	ListApproved(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error)

	// ApprovedRatings returns the ratings of the product's approved reviews.
	ApprovedRatings(ctx context.Context, productID string) ([]int, error)

	// DeleteByUser removes every review written by userID and returns the
	// distinct IDs of the products they belonged to.
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
}

// Repositories groups the repositories bound to one connection or
// transaction.
type Repositories struct {
	Categories CategoryRepository
	Products   ProductRepository
	Images     ImageRepository
	Reviews    ReviewRepository
}

// UnitOfWork runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// ProductDetailCache caches assembled product details by slug.
type ProductDetailCache interface {
	// Get returns the cached detail for slug, or nil on a miss.
	Get(ctx context.Context, slug string) (*domain.ProductDetail, error)

	// Set stores a detail under its product slug.
	Set(ctx context.Context, detail *domain.ProductDetail) error

	// Invalidate drops the cached details of the given slugs.
	Invalidate(ctx context.Context, slugs ...string) error

	// Flush drops every cached detail.
	Flush(ctx context.Context) error
}

// RatingStore adapts a transaction's repositories to rating.Store.
type RatingStore struct {
	Repos Repositories
}

// LockProduct implements rating.Store.
func (s RatingStore) LockProduct(ctx context.Context, productID string) error {
	return s.Repos.Products.LockForUpdate(ctx, productID)
}

// ApprovedRatings implements rating.Store.
func (s RatingStore) ApprovedRatings(ctx context.Context, productID string) ([]int, error) {
	return s.Repos.Reviews.ApprovedRatings(ctx, productID)
}

// WriteSummary implements rating.Store.
func (s RatingStore) WriteSummary(ctx context.Context, productID string, summary rating.Summary) error {
	return s.Repos.Products.UpdateRating(ctx, productID, summary)
}
