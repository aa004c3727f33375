package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

const defaultListLimit = 20

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	s *Store
}

// Create inserts a new product with an empty rating aggregate.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	if err := r.s.checkProduct(p); err != nil {
		return err
	}

	stored := *p
	stored.AverageRating = rating.Empty().Average
	stored.ReviewCount = 0
	r.s.products[p.ID] = stored
	return nil
}

// GetByID retrieves a product by its unique identifier.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if slug != "" {
		for _, p := range r.s.products {
			if p.Slug == slug {
				return &p, nil
			}
		}
	}
	return nil, apperrors.ErrNotFound
}

// List returns products matching filter along with the total count.
func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var categoryID *string
	if filter.CategorySlug != nil {
		c, ok := r.s.categoryBySlug(*filter.CategorySlug)
		if !ok {
			return []domain.Product{}, 0, nil
		}
		categoryID = &c.ID
	}

	matched := []domain.Product{}
	for _, p := range r.s.products {
		if matchesProduct(&p, filter, categoryID) {
			matched = append(matched, p)
		}
	}

	sortProducts(matched, filter.Ordering)

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := min(max(filter.Offset, 0), total)
	end := min(offset+limit, total)

	return matched[offset:end], total, nil
}

func matchesProduct(p *domain.Product, filter domain.ProductFilter, categoryID *string) bool {
	if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
		return false
	}
	if filter.Featured != nil && p.Featured != *filter.Featured {
		return false
	}
	if filter.Status != nil && p.Status != *filter.Status {
		return false
	}
	if filter.Search != nil {
		q := strings.ToLower(*filter.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) {
			return false
		}
	}
	if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
		return false
	}
	if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
		return false
	}
	if filter.InStock != nil && p.InStock() != *filter.InStock {
		return false
	}
	if filter.OnSale && !p.OnSale() {
		return false
	}
	return true
}

// sortProducts orders products the way the SQL ORDER BY clauses do,
// including NULLS LAST for the rating and the id tiebreaker.
func sortProducts(products []domain.Product, ordering string) {
	if !domain.IsValidOrdering(ordering) || ordering == "" {
		ordering = domain.OrderingNewest
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	slices.SortFunc(products, func(a, b domain.Product) int {
		var c int
		switch field {
		case "price":
			c = a.Price.Cmp(b.Price)
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "average_rating":
			switch {
			case a.AverageRating.Valid != b.AverageRating.Valid:
				if a.AverageRating.Valid {
					return -1
				}
				return 1
			case a.AverageRating.Valid:
				c = a.AverageRating.Decimal.Cmp(b.AverageRating.Decimal)
			}
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})
}

// Update modifies the editable fields of a product, keeping the stored
// rating aggregate.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if err := r.s.checkProduct(p); err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	stored := *p
	stored.AverageRating = current.AverageRating
	stored.ReviewCount = current.ReviewCount
	stored.CreatedBy = current.CreatedBy
	stored.CreatedAt = current.CreatedAt
	r.s.products[p.ID] = stored
	return nil
}

// Delete removes a product with its images and reviews.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}

	delete(r.s.products, id)
	for iid, img := range r.s.images {
		if img.ProductID == id {
			delete(r.s.images, iid)
		}
	}
	for rid, rv := range r.s.reviews {
		if rv.ProductID == id {
			delete(r.s.reviews, rid)
		}
	}
	return nil
}

// SlugsWithPrefix returns product slugs equal to base or of the form base-N,
// leaving out excludeID.
func (r *ProductRepository) SlugsWithPrefix(_ context.Context, base, excludeID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return slugsWithPrefix(func(yield func(string, string) bool) {
		for id, p := range r.s.products {
			if !yield(id, p.Slug) {
				return
			}
		}
	}, base, excludeID), nil
}

// ListMissingSlug returns products stored with an empty slug, oldest first.
func (r *ProductRepository) ListMissingSlug(_ context.Context) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Product{}
	for _, p := range r.s.products {
		if p.Slug == "" {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// ListIDs returns the IDs of every product in ascending order.
func (r *ProductRepository) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.products))
	for id := range r.s.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// LockForUpdate only checks existence. Transactions on the store are
// already serialized.
func (r *ProductRepository) LockForUpdate(_ context.Context, id string) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.products[id]; !ok {
		return rating.ErrProductMissing
	}
	return nil
}

// UpdateRating writes the rating aggregate and nothing else.
func (r *ProductRepository) UpdateRating(_ context.Context, id string, summary rating.Summary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return rating.ErrProductMissing
	}
	p.AverageRating = summary.Average
	p.ReviewCount = summary.Count
	r.s.products[id] = p
	return nil
}

// ClearCreator nulls created_by on products created by userID.
func (r *ProductRepository) ClearCreator(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, p := range r.s.products {
		if p.CreatedBy != nil && *p.CreatedBy == userID {
			p.CreatedBy = nil
			r.s.products[id] = p
			n++
		}
	}
	return n, nil
}

// checkProduct enforces the unique and foreign key constraints of the
// products table. The caller holds the write lock.
func (s *Store) checkProduct(p *domain.Product) error {
	for id, other := range s.products {
		if id == p.ID {
			continue
		}
		if p.Slug != "" && other.Slug == p.Slug {
			return fmt.Errorf("%w: %w", domain.ErrSlugConflict, apperrors.AlreadyExists("product", "slug", p.Slug))
		}
		if other.SKU == p.SKU {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
	}
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return apperrors.InvalidInput("category does not exist")
		}
	}
	return nil
}
