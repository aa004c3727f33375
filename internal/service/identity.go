package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
)

// IdentityService reacts to lifecycle changes of identities owned by the
// external identity provider.
type IdentityService struct {
	uow      repository.UnitOfWork
	cache    detailCache
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewIdentityService creates a new identity service. cache may be nil.
func NewIdentityService(
	uow repository.UnitOfWork,
	cache repository.ProductDetailCache,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		uow:      uow,
		cache:    detailCache{cache: cache, logger: logger},
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// RemoveUser detaches a deleted identity from the catalog: products it
// created lose their creator, its reviews are deleted, and the aggregates of
// the affected products are recomputed in the same transaction.
func (s *IdentityService) RemoveUser(ctx context.Context, userID string) error {
	var (
		cleared   int64
		summaries = map[string]rating.Summary{}
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		cleared, err = repos.Products.ClearCreator(ctx, userID)
		if err != nil {
			return err
		}

		productIDs, err := repos.Reviews.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range productIDs {
			summary, err := rating.Recompute(ctx, repository.RatingStore{Repos: repos}, id)
			if err != nil {
				return err
			}
			summaries[id] = summary
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove user %s: %w", userID, err)
	}

	if cleared > 0 || len(summaries) > 0 {
		s.cache.flush(ctx)
	}
	for id, summary := range summaries {
		s.metrics.ratingRecomputed()
		if err := s.producer.PublishRatingUpdated(ctx, id, summary); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.rating_updated event",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user removed from catalog",
		slog.String("user_id", userID),
		slog.Int64("products_cleared", cleared),
		slog.Int("products_recomputed", len(summaries)),
	)

	return nil
}
