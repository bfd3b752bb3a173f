package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultReviewCacheTTL = 5 * time.Minute

// ReviewCache memoizes per-product listings. Misses and failures are not errors.
type ReviewCache interface {
	Get(ctx context.Context, productID string) (ProductReviews, bool)
	Set(ctx context.Context, productID string, list ProductReviews)
	Invalidate(ctx context.Context, productID string)
}

// RedisReviewCache stores listings as JSON with a TTL.
type RedisReviewCache struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisReviewCache(rc *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisReviewCache {
	if ttl <= 0 {
		ttl = defaultReviewCacheTTL
	}
	return &RedisReviewCache{rc: rc, ttl: ttl, logger: logger}
}

func (c *RedisReviewCache) key(productID string) string {
	return "reviews:product:" + productID
}

func (c *RedisReviewCache) Get(ctx context.Context, productID string) (ProductReviews, bool) {
	b, err := c.rc.Get(ctx, c.key(productID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("review cache get failed", zap.String("productId", productID), zap.Error(err))
		}
		return ProductReviews{}, false
	}
	var list ProductReviews
	if err := json.Unmarshal(b, &list); err != nil {
		c.logger.Warn("review cache entry corrupt", zap.String("productId", productID), zap.Error(err))
		return ProductReviews{}, false
	}
	return list, true
}

func (c *RedisReviewCache) Set(ctx context.Context, productID string, list ProductReviews) {
	b, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, c.key(productID), b, c.ttl).Err(); err != nil {
		c.logger.Warn("review cache set failed", zap.String("productId", productID), zap.Error(err))
	}
}

func (c *RedisReviewCache) Invalidate(ctx context.Context, productID string) {
	if err := c.rc.Del(ctx, c.key(productID)).Err(); err != nil {
		c.logger.Warn("review cache invalidate failed", zap.String("productId", productID), zap.Error(err))
	}
}

type noopReviewCache struct{}

func (noopReviewCache) Get(context.Context, string) (ProductReviews, bool) {
	return ProductReviews{}, false
}
func (noopReviewCache) Set(context.Context, string, ProductReviews) {}
func (noopReviewCache) Invalidate(context.Context, string)          {}
