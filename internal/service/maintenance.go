package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
)

// MaintenanceService repairs stored data: slugs that were never assigned and
// rating aggregates that drifted from the approved reviews.
type MaintenanceService struct {
	repos   repository.Repositories
	uow     repository.UnitOfWork
	cache   detailCache
	metrics *Metrics
	logger  *slog.Logger
}

// NewMaintenanceService creates a new maintenance service. cache may be nil.
func NewMaintenanceService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	cache repository.ProductDetailCache,
	metrics *Metrics,
	logger *slog.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		repos:   repos,
		uow:     uow,
		cache:   detailCache{cache: cache, logger: logger},
		metrics: metrics,
		logger:  logger,
	}
}

// SlugFix records one slug assigned by FixSlugs.
type SlugFix struct {
	Entity string
	ID     string
	Name   string
	Slug   string
}

// FixSlugs assigns slugs to every category and product stored without one.
func (s *MaintenanceService) FixSlugs(ctx context.Context) ([]SlugFix, error) {
	var fixes []SlugFix

	categories, err := s.repos.Categories.ListMissingSlug(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories without slug: %w", err)
	}
	for _, c := range categories {
		fix, err := s.fixCategorySlug(ctx, c.ID)
		if err != nil {
			return fixes, err
		}
		fixes = append(fixes, fix)
	}

	products, err := s.repos.Products.ListMissingSlug(ctx)
	if err != nil {
		return fixes, fmt.Errorf("list products without slug: %w", err)
	}
	for _, p := range products {
		fix, err := s.fixProductSlug(ctx, p.ID)
		if err != nil {
			return fixes, err
		}
		fixes = append(fixes, fix)
	}

	if len(fixes) > 0 {
		s.cache.flush(ctx)
	}
	return fixes, nil
}

func (s *MaintenanceService) fixCategorySlug(ctx context.Context, id string) (SlugFix, error) {
	var fix SlugFix
	err := withSlugRetry(ctx, "category", s.metrics, func(ctx context.Context) (bool, error) {
		return true, s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			c, err := repos.Categories.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if c.Slug != "" {
				fix = SlugFix{Entity: "category", ID: c.ID, Name: c.Name, Slug: c.Slug}
				return nil
			}
			c.Slug, err = deriveSlug(ctx, c.Name, c.ID, repos.Categories.SlugsWithPrefix)
			if err != nil {
				return err
			}
			if err := repos.Categories.Update(ctx, c); err != nil {
				return err
			}
			fix = SlugFix{Entity: "category", ID: c.ID, Name: c.Name, Slug: c.Slug}
			return nil
		})
	})
	if err != nil {
		return fix, fmt.Errorf("fix slug of category %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "category slug assigned",
		slog.String("category_id", fix.ID),
		slog.String("slug", fix.Slug),
	)
	return fix, nil
}

func (s *MaintenanceService) fixProductSlug(ctx context.Context, id string) (SlugFix, error) {
	var fix SlugFix
	err := withSlugRetry(ctx, "product", s.metrics, func(ctx context.Context) (bool, error) {
		return true, s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			p, err := repos.Products.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if p.Slug != "" {
				fix = SlugFix{Entity: "product", ID: p.ID, Name: p.Name, Slug: p.Slug}
				return nil
			}
			p.Slug, err = deriveSlug(ctx, p.Name, p.ID, repos.Products.SlugsWithPrefix)
			if err != nil {
				return err
			}
			if err := repos.Products.Update(ctx, p); err != nil {
				return err
			}
			fix = SlugFix{Entity: "product", ID: p.ID, Name: p.Name, Slug: p.Slug}
			return nil
		})
	})
	if err != nil {
		return fix, fmt.Errorf("fix slug of product %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "product slug assigned",
		slog.String("product_id", fix.ID),
		slog.String("slug", fix.Slug),
	)
	return fix, nil
}

// RatingRepair records one aggregate that RecomputeRatings changed.
type RatingRepair struct {
	ProductID string
	Before    rating.Summary
	After     rating.Summary
}

// RecomputeRatings rebuilds the aggregate of every product, one transaction
// per product, and reports the ones that had drifted.
func (s *MaintenanceService) RecomputeRatings(ctx context.Context) ([]RatingRepair, error) {
	ids, err := s.repos.Products.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}

	var repairs []RatingRepair
	for _, id := range ids {
		var repair RatingRepair
		err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			p, err := repos.Products.GetByID(ctx, id)
			if err != nil {
				return err
			}
			after, err := rating.Recompute(ctx, repository.RatingStore{Repos: repos}, id)
			if err != nil {
				return err
			}
			repair = RatingRepair{ProductID: id, Before: summaryOf(p), After: after}
			return nil
		})
		if err != nil {
			return repairs, fmt.Errorf("recompute rating of product %s: %w", id, err)
		}
		s.metrics.ratingRecomputed()

		if !repair.Before.Equal(repair.After) {
			repairs = append(repairs, repair)
			s.logger.InfoContext(ctx, "rating aggregate repaired",
				slog.String("product_id", id),
				slog.String("before", repair.Before.String()),
				slog.String("after", repair.After.String()),
			)
		}
	}

	if len(repairs) > 0 {
		s.cache.flush(ctx)
	}
	return repairs, nil
}

func summaryOf(p *domain.Product) rating.Summary {
	return rating.Summary{Average: p.AverageRating, Count: p.ReviewCount}
}
