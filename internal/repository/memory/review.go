package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// ReviewRepository implements repository.ReviewRepository in memory.
type ReviewRepository struct {
	s *Store
}

// Create inserts a review, one per user and product.
func (r *ReviewRepository) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[rv.ProductID]; !ok {
		return apperrors.NotFound("product", rv.ProductID)
	}
	for _, other := range r.s.reviews {
		if other.ProductID == rv.ProductID && other.UserID == rv.UserID {
			return apperrors.AlreadyExists("review", "user", rv.UserID)
		}
	}

	r.s.reviews[rv.ID] = *rv
	return nil
}

// GetByID retrieves a review by its unique identifier.
func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return &rv, nil
}

// Update modifies rating, title, content and approval of a review.
func (r *ReviewRepository) Update(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.reviews[rv.ID]
	if !ok {
		return apperrors.NotFound("review", rv.ID)
	}

	rv.UpdatedAt = time.Now().UTC()
	current.Rating = rv.Rating
	current.Title = rv.Title
	current.Content = rv.Content
	current.IsApproved = rv.IsApproved
	current.UpdatedAt = rv.UpdatedAt
	r.s.reviews[rv.ID] = current
	return nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(r.s.reviews, id)
	return nil
}

// ListApproved returns a page of approved reviews, newest first.
func (r *ReviewRepository) ListApproved(_ context.Context, productID string, params pagination.Params) ([]domain.Review, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	approved := []domain.Review{}
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID && rv.IsApproved {
			approved = append(approved, rv)
		}
	}
	slices.SortFunc(approved, func(a, b domain.Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(approved)
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	offset := min(max(params.Offset(), 0), total)
	end := min(offset+perPage, total)

	return approved[offset:end], total, nil
}

// ApprovedRatings returns the ratings of the product's approved reviews.
func (r *ReviewRepository) ApprovedRatings(_ context.Context, productID string) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ratings []int
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID && rv.IsApproved {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings, nil
}

// DeleteByUser removes the reviews of userID and returns the sorted,
// distinct IDs of the affected products.
func (r *ReviewRepository) DeleteByUser(_ context.Context, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[string]bool)
	var productIDs []string
	for id, rv := range r.s.reviews {
		if rv.UserID != userID {
			continue
		}
		delete(r.s.reviews, id)
		if !seen[rv.ProductID] {
			seen[rv.ProductID] = true
			productIDs = append(productIDs, rv.ProductID)
		}
	}
	slices.Sort(productIDs)
	return productIDs, nil
}
