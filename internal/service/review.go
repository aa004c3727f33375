package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/event"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/rating"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
	apperrors "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/errors"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// ReviewService implements the business logic for product reviews. Every
// mutation recomputes the product's rating aggregate in its own transaction.
type ReviewService struct {
	repos    repository.Repositories
	uow      repository.UnitOfWork
	cache    detailCache
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewReviewService creates a new review service. cache may be nil.
func NewReviewService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	cache repository.ProductDetailCache,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		repos:    repos,
		uow:      uow,
		cache:    detailCache{cache: cache, logger: logger},
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// ReviewPage is a page of approved reviews with the product's aggregate.
type ReviewPage struct {
	Reviews []domain.Review
	Total   int
	Summary rating.Summary
}

// ListReviews returns a page of the product's approved reviews.
func (s *ReviewService) ListReviews(ctx context.Context, actor domain.Actor, slug string, params pagination.Params) (*ReviewPage, error) {
	product, err := visibleProduct(ctx, s.repos, actor, slug)
	if err != nil {
		return nil, err
	}

	reviews, total, err := s.repos.Reviews.ListApproved(ctx, product.ID, params)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &ReviewPage{
		Reviews: reviews,
		Total:   total,
		Summary: rating.Summary{Average: product.AverageRating, Count: product.ReviewCount},
	}, nil
}

// CreateReview stores the actor's review of a product. Reviews by
// administrators are approved immediately; all others wait for moderation.
func (s *ReviewService) CreateReview(ctx context.Context, actor domain.Actor, slug string, input *domain.CreateReviewInput) (*domain.Review, error) {
	if actor.Anonymous() {
		return nil, apperrors.Unauthorized("authentication is required to review a product")
	}
	if err := checkRating(input.Rating); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("review title is required")
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:         uuid.New().String(),
		UserID:     actor.UserID,
		Rating:     input.Rating,
		Title:      strings.TrimSpace(input.Title),
		Content:    input.Content,
		IsApproved: actor.IsAdmin,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var (
		product *domain.Product
		summary rating.Summary
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		product, err = visibleProduct(ctx, repos, actor, slug)
		if err != nil {
			return err
		}
		review.ProductID = product.ID

		if err := repos.Reviews.Create(ctx, review); err != nil {
			return err
		}
		summary, err = rating.Recompute(ctx, repository.RatingStore{Repos: repos}, product.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.afterRatingChange(ctx, product, summary)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", product.ID),
		slog.Bool("approved", review.IsApproved),
		slog.String("rating", summary.String()),
	)

	return review, nil
}

// UpdateReview applies a partial update by the review's author or an
// administrator. Only administrators may change the approval flag.
func (s *ReviewService) UpdateReview(ctx context.Context, actor domain.Actor, slug, reviewID string, input *domain.UpdateReviewInput) (*domain.Review, error) {
	if actor.Anonymous() {
		return nil, apperrors.Unauthorized("authentication is required")
	}
	if input.IsApproved != nil && !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can approve reviews")
	}
	if input.Rating != nil {
		if err := checkRating(*input.Rating); err != nil {
			return nil, err
		}
	}

	return s.mutateReview(ctx, actor, slug, reviewID, "updated", func(review *domain.Review) error {
		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperrors.InvalidInput("review title must not be empty")
			}
			review.Title = title
		}
		if input.Content != nil {
			review.Content = *input.Content
		}
		if input.IsApproved != nil {
			review.IsApproved = *input.IsApproved
		}
		return nil
	})
}

// SetApproval approves or unapproves a review.
func (s *ReviewService) SetApproval(ctx context.Context, actor domain.Actor, slug, reviewID string, approved bool) (*domain.Review, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden("only administrators can approve reviews")
	}

	action := "approved"
	if !approved {
		action = "unapproved"
	}
	return s.mutateReview(ctx, actor, slug, reviewID, action, func(review *domain.Review) error {
		review.IsApproved = approved
		return nil
	})
}

func (s *ReviewService) mutateReview(
	ctx context.Context,
	actor domain.Actor,
	slug, reviewID, action string,
	apply func(review *domain.Review) error,
) (*domain.Review, error) {
	var (
		product *domain.Product
		review  *domain.Review
		summary rating.Summary
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		product, review, err = reviewOfProduct(ctx, repos, actor, slug, reviewID)
		if err != nil {
			return err
		}
		if !actor.CanModifyReview(review) {
			return apperrors.Forbidden("you can only modify your own reviews")
		}

		if err := apply(review); err != nil {
			return err
		}
		review.UpdatedAt = time.Now().UTC()
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return err
		}

		summary, err = rating.Recompute(ctx, repository.RatingStore{Repos: repos}, product.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.afterRatingChange(ctx, product, summary)

	s.logger.InfoContext(ctx, "review "+action,
		slog.String("review_id", review.ID),
		slog.String("product_id", product.ID),
		slog.String("rating", summary.String()),
	)

	return review, nil
}

// DeleteReview removes a review on behalf of its author or an administrator.
func (s *ReviewService) DeleteReview(ctx context.Context, actor domain.Actor, slug, reviewID string) error {
	if actor.Anonymous() {
		return apperrors.Unauthorized("authentication is required")
	}

	var (
		product *domain.Product
		summary rating.Summary
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var (
			review *domain.Review
			err    error
		)
		product, review, err = reviewOfProduct(ctx, repos, actor, slug, reviewID)
		if err != nil {
			return err
		}
		if !actor.CanModifyReview(review) {
			return apperrors.Forbidden("you can only delete your own reviews")
		}

		if err := repos.Reviews.Delete(ctx, review.ID); err != nil {
			return err
		}
		summary, err = rating.Recompute(ctx, repository.RatingStore{Repos: repos}, product.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.afterRatingChange(ctx, product, summary)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", product.ID),
		slog.String("rating", summary.String()),
	)

	return nil
}

func (s *ReviewService) afterRatingChange(ctx context.Context, product *domain.Product, summary rating.Summary) {
	s.metrics.ratingRecomputed()
	s.cache.invalidate(ctx, product.Slug)

	if err := s.producer.PublishRatingUpdated(ctx, product.ID, summary); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.rating_updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}

// visibleProduct loads a product by slug, hiding unpublished products from
// non-administrators.
func visibleProduct(ctx context.Context, repos repository.Repositories, actor domain.Actor, slug string) (*domain.Product, error) {
	product, err := repos.Products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	if !product.IsPublished() && !actor.IsAdmin {
		return nil, apperrors.NotFound("product", slug)
	}
	return product, nil
}

// reviewOfProduct loads a review and checks that it belongs to the product
// addressed by slug.
func reviewOfProduct(ctx context.Context, repos repository.Repositories, actor domain.Actor, slug, reviewID string) (*domain.Product, *domain.Review, error) {
	product, err := visibleProduct(ctx, repos, actor, slug)
	if err != nil {
		return nil, nil, err
	}
	review, err := repos.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, nil, fmt.Errorf("get review: %w", err)
	}
	if review.ProductID != product.ID {
		return nil, nil, apperrors.NotFound("review", reviewID)
	}
	return product, review, nil
}

func checkRating(r int) error {
	if r < rating.MinRating || r > rating.MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", rating.MinRating, rating.MaxRating))
	}
	return nil
}
