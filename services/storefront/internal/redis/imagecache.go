package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/go-redis/redis/v8"

	"github.com/appetiteclub/storefront/services/storefront/internal/rating"
)

const (
	imageKeyPrefix  = "storefront:image:"
	defaultImageTTL = 12 * time.Hour
)

// Client is the part of the go-redis client used by the image cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// ImageCache shares resolved product images between storefront instances.
// Lookups hit an in-process copy first; Redis failures degrade to misses.
type ImageCache struct {
	client Client
	closer func() error
	local  *rating.MemoryImageCache
	ttl    time.Duration
	logger aqm.Logger
	config *aqm.Config
}

// NewImageCache builds a cache that connects on Start using cache.redis.*
// settings.
func NewImageCache(config *aqm.Config, logger aqm.Logger) *ImageCache {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &ImageCache{
		local:  rating.NewMemoryImageCache(),
		ttl:    defaultImageTTL,
		logger: logger,
		config: config,
	}
}

// NewImageCacheWith wraps an existing client.
func NewImageCacheWith(client Client, ttl time.Duration, logger aqm.Logger) *ImageCache {
	c := NewImageCache(nil, logger)
	c.client = client
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

func (c *ImageCache) Start(ctx context.Context) error {
	if c.client == nil {
		addr := c.config.GetStringOrDef("cache.redis.addr", "localhost:6379")
		password, _ := c.config.GetString("cache.redis.password")

		if raw, _ := c.config.GetString("cache.redis.ttl"); raw != "" {
			ttl, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid cache.redis.ttl: %w", err)
			}
			c.ttl = ttl
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		})
		c.client = rdb
		c.closer = rdb.Close
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cannot ping Redis: %w", err)
	}

	c.logger.Info("Connected to Redis image cache", "ttl", c.ttl.String())
	return nil
}

func (c *ImageCache) Stop(ctx context.Context) error {
	if c.closer == nil {
		return nil
	}
	if err := c.closer(); err != nil {
		return fmt.Errorf("cannot close Redis client: %w", err)
	}
	c.logger.Info("Disconnected from Redis")
	return nil
}

func (c *ImageCache) Get(ctx context.Context, key string) (string, bool) {
	if url, ok := c.local.Get(ctx, key); ok {
		return url, true
	}
	if c.client == nil || key == "" {
		return "", false
	}

	url, err := c.client.Get(ctx, imageKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("image cache lookup failed", "key", key, "error", err)
		}
		return "", false
	}
	if rating.IsPlaceholder(url) {
		return "", false
	}

	c.local.Set(ctx, key, url)
	return url, true
}

func (c *ImageCache) Set(ctx context.Context, key, url string) {
	if key == "" || rating.IsPlaceholder(url) {
		return
	}
	c.local.Set(ctx, key, url)
	if c.client == nil {
		return
	}

	if err := c.client.Set(ctx, imageKeyPrefix+key, url, c.ttl).Err(); err != nil {
		c.logger.Debug("image cache write failed", "key", key, "error", err)
	}
}
