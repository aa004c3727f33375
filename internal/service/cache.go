package service

import (
	"context"
	"log/slog"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/repository"
)

// detailCache wraps an optional repository.ProductDetailCache. Cache
// failures are logged and never fail the request.
type detailCache struct {
	cache  repository.ProductDetailCache
	logger *slog.Logger
}

func (c detailCache) get(ctx context.Context, slug string) *domain.ProductDetail {
	if c.cache == nil {
		return nil
	}
	detail, err := c.cache.Get(ctx, slug)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache read failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return detail
}

func (c detailCache) set(ctx context.Context, detail *domain.ProductDetail) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, detail); err != nil {
		c.logger.WarnContext(ctx, "product cache write failed",
			slog.String("slug", detail.Slug),
			slog.String("error", err.Error()),
		)
	}
}

func (c detailCache) invalidate(ctx context.Context, slugs ...string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, slugs...); err != nil {
		c.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.Any("slugs", slugs),
			slog.String("error", err.Error()),
		)
	}
}

func (c detailCache) flush(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Flush(ctx); err != nil {
		c.logger.WarnContext(ctx, "product cache flush failed",
			slog.String("error", err.Error()),
		)
	}
}
