package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
)

// CategoryService implements the business logic for category operations.
type CategoryService struct {
	repos    repository.Repositories
	uow      repository.UnitOfWork
	cache    detailCache
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewCategoryService creates a new category service. cache may be nil.
func NewCategoryService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	cache repository.ProductDetailCache,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		repos:    repos,
		uow:      uow,
		cache:    detailCache{cache: cache, logger: logger},
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateCategory creates a category. Without an explicit slug one is derived
// from the name.
func (s *CategoryService) CreateCategory(ctx context.Context, actor domain.Actor, input *domain.CreateCategoryInput) (*domain.Category, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can manage categories")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}
	explicit, err := explicitSlug(input.Slug)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        explicit,
		Description: input.Description,
		ParentID:    input.ParentID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	err = withSlugRetry(ctx, "category", s.metrics, func(ctx context.Context) (bool, error) {
		derived := explicit == ""
		return derived, s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			if derived {
				slug, err := deriveSlug(ctx, category.Name, category.ID, repos.Categories.SlugsWithPrefix)
				if err != nil {
					return err
				}
				category.Slug = slug
			}
			return repos.Categories.Create(ctx, category)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if err := s.producer.PublishCategoryCreated(ctx, category); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish category.created event",
			slog.String("category_id", category.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// GetCategory returns a category by slug. Inactive categories are only
// visible to administrators.
func (s *CategoryService) GetCategory(ctx context.Context, actor domain.Actor, slug string) (*domain.Category, error) {
	category, err := s.repos.Categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	if !category.IsActive && !actor.IsAdmin {
		return nil, apperrors.NotFound("category", slug)
	}
	return category, nil
}

// ListCategories returns categories as a flat list ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context, actor domain.Actor, filter domain.CategoryFilter) ([]domain.Category, error) {
	if !actor.IsAdmin {
		filter.IncludeInactive = false
	}
	categories, err := s.repos.Categories.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryTree returns the listed categories nested under their parents.
func (s *CategoryService) CategoryTree(ctx context.Context, actor domain.Actor, filter domain.CategoryFilter) ([]*domain.Category, error) {
	categories, err := s.ListCategories(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return domain.BuildCategoryTree(categories), nil
}

// UpdateCategory applies a partial update. The slug only changes when one is
// supplied, or when the stored slug is empty and has to be assigned.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor domain.Actor, slug string, input *domain.UpdateCategoryInput) (*domain.Category, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can manage categories")
	}
	explicit, err := explicitSlug(input.Slug)
	if err != nil {
		return nil, err
	}

	var category *domain.Category
	err = withSlugRetry(ctx, "category", s.metrics, func(ctx context.Context) (derived bool, err error) {
		err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			current, err := repos.Categories.GetBySlug(ctx, slug)
			if err != nil {
				return err
			}

			if err := applyCategoryUpdate(ctx, repos.Categories, current, input); err != nil {
				return err
			}

			switch {
			case explicit != "":
				current.Slug = explicit
			case current.Slug == "":
				derived = true
				current.Slug, err = deriveSlug(ctx, current.Name, current.ID, repos.Categories.SlugsWithPrefix)
				if err != nil {
					return err
				}
			}

			if err := repos.Categories.Update(ctx, current); err != nil {
				return err
			}
			category = current
			return nil
		})
		return derived, err
	})
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.cache.flush(ctx)

	s.logger.InfoContext(ctx, "category updated",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

func applyCategoryUpdate(ctx context.Context, categories repository.CategoryRepository, c *domain.Category, input *domain.UpdateCategoryInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.InvalidInput("category name must not be empty")
		}
		c.Name = name
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	if input.ParentID != nil {
		if *input.ParentID == "" {
			c.ParentID = nil
		} else {
			if err := checkNoCycle(ctx, categories, c.ID, *input.ParentID); err != nil {
				return err
			}
			c.ParentID = input.ParentID
		}
	}
	return nil
}

// checkNoCycle rejects a parent that is the category itself or one of its
// descendants.
func checkNoCycle(ctx context.Context, categories repository.CategoryRepository, id, parentID string) error {
	for cur := parentID; cur != ""; {
		if cur == id {
			return apperrors.InvalidInput("a category cannot be its own ancestor")
		}
		parent, err := categories.GetByID(ctx, cur)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.InvalidInput("parent category does not exist")
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		cur = *parent.ParentID
	}
	return nil
}

// DeleteCategory deletes a category with its descendants. Products in those
// categories are kept without a category.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor domain.Actor, slug string) error {
	if !actor.IsAdmin {
		return apperrors.Forbidden("only administrators can manage categories")
	}

	category, err := s.repos.Categories.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get category by slug: %w", err)
	}

	if err := s.repos.Categories.Delete(ctx, category.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.cache.flush(ctx)

	if err := s.producer.PublishCategoryDeleted(ctx, category.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish category.deleted event",
			slog.String("category_id", category.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "category deleted",
		slog.String("category_id", category.ID),
		slog.String("slug", slug),
	)

	return nil
}
