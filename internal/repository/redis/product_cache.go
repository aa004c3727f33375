package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
)

const (
	keyPrefix = "catalog:product:"
	scanBatch = 100
)

// ProductCache implements repository.ProductDetailCache using Redis.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache creates a Redis-backed product detail cache.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached detail for slug, or nil on a miss.
func (c *ProductCache) Get(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	data, err := c.client.Get(ctx, keyPrefix+slug).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get product detail: %w", err)
	}

	var detail domain.ProductDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("unmarshal product detail: %w", err)
	}

	return &detail, nil
}

// Set stores detail under its product slug with the configured TTL.
func (c *ProductCache) Set(ctx context.Context, detail *domain.ProductDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal product detail: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+detail.Slug, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set product detail: %w", err)
	}

	return nil
}

// Invalidate drops the cached details of the given slugs.
func (c *ProductCache) Invalidate(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, keyPrefix+s)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del product detail: %w", err)
	}

	return nil
}

// Flush drops every cached product detail. Category changes use it because
// a detail embeds its category.
func (c *ProductCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del product details: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan product details: %w", err)
	}

	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del product details: %w", err)
		}
	}

	return nil
}
