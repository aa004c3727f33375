package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository in memory.
type CategoryRepository struct {
	s *Store
}

// Create inserts a new category.
func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[c.ID]; ok {
		return apperrors.AlreadyExists("category", "id", c.ID)
	}
	if err := r.s.checkCategory(c); err != nil {
		return err
	}

	stored := *c
	stored.Children = nil
	r.s.categories[c.ID] = stored
	return nil
}

// GetByID retrieves a category by its unique identifier.
func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

// GetBySlug retrieves a category by its slug.
func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if c, ok := r.s.categoryBySlug(slug); ok {
		return &c, nil
	}
	return nil, apperrors.ErrNotFound
}

// Update modifies an existing category.
func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[c.ID]; !ok {
		return apperrors.NotFound("category", c.ID)
	}
	if err := r.s.checkCategory(c); err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()
	stored := *c
	stored.Children = nil
	r.s.categories[c.ID] = stored
	return nil
}

// Delete removes a category with all of its descendants. Products in any
// removed category lose their category.
func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return apperrors.NotFound("category", id)
	}

	doomed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for cid, c := range r.s.categories {
			if !doomed[cid] && c.ParentID != nil && doomed[*c.ParentID] {
				doomed[cid] = true
				grew = true
			}
		}
	}

	for cid := range doomed {
		delete(r.s.categories, cid)
	}
	for pid, p := range r.s.products {
		if p.CategoryID != nil && doomed[*p.CategoryID] {
			p.CategoryID = nil
			r.s.products[pid] = p
		}
	}
	return nil
}

// List returns categories matching filter ordered by name.
func (r *CategoryRepository) List(_ context.Context, filter domain.CategoryFilter) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var parentID *string
	if filter.ParentSlug != nil {
		parent, ok := r.s.categoryBySlug(*filter.ParentSlug)
		if !ok {
			return []domain.Category{}, nil
		}
		parentID = &parent.ID
	}

	withProducts := make(map[string]bool)
	for _, p := range r.s.products {
		if p.CategoryID != nil {
			withProducts[*p.CategoryID] = true
		}
	}

	out := []domain.Category{}
	for _, c := range r.s.categories {
		if !filter.IncludeInactive && !c.IsActive {
			continue
		}
		if parentID != nil && (c.ParentID == nil || *c.ParentID != *parentID) {
			continue
		}
		if filter.HasProducts != nil && withProducts[c.ID] != *filter.HasProducts {
			continue
		}
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// SlugsWithPrefix returns category slugs equal to base or of the form
// base-N, leaving out excludeID.
func (r *CategoryRepository) SlugsWithPrefix(_ context.Context, base, excludeID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return slugsWithPrefix(func(yield func(string, string) bool) {
		for id, c := range r.s.categories {
			if !yield(id, c.Slug) {
				return
			}
		}
	}, base, excludeID), nil
}

// ListMissingSlug returns categories stored with an empty slug, oldest first.
func (r *CategoryRepository) ListMissingSlug(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Category{}
	for _, c := range r.s.categories {
		if c.Slug == "" {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// checkCategory enforces the unique and foreign key constraints of the
// categories table. The caller holds the write lock.
func (s *Store) checkCategory(c *domain.Category) error {
	for id, other := range s.categories {
		if id == c.ID {
			continue
		}
		if c.Slug != "" && other.Slug == c.Slug {
			return fmt.Errorf("%w: %w", domain.ErrSlugConflict, apperrors.AlreadyExists("category", "slug", c.Slug))
		}
		if other.Name == c.Name {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
	}
	if c.ParentID != nil {
		if _, ok := s.categories[*c.ParentID]; !ok {
			return apperrors.InvalidInput("parent category does not exist")
		}
	}
	return nil
}

func (s *Store) categoryBySlug(slug string) (domain.Category, bool) {
	if slug == "" {
		return domain.Category{}, false
	}
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return domain.Category{}, false
}
