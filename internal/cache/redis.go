// Package cache provides a Redis-backed cache for resolved URLs, so a
// popular shortened link costs one network round trip per TTL instead of
// one per sighting.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "resolve:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ResolveCache implements canonical.ResolveCache on top of Redis. All
// operations are best effort: Redis being down degrades to uncached
// resolution, never to an ingestion failure.
type ResolveCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewResolveCache(cfg Config, logger *slog.Logger) (*ResolveCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}

	logger.Info("connected to redis", "addr", cfg.Addr)
	return &ResolveCache{client: client, ttl: cfg.TTL, logger: logger}, nil
}

func (c *ResolveCache) Get(ctx context.Context, rawURL string) (string, bool) {
	resolved, err := c.client.Get(ctx, keyPrefix+rawURL).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("resolve cache get", "error", err)
		}
		return "", false
	}
	return resolved, true
}

func (c *ResolveCache) Set(ctx context.Context, rawURL, resolvedURL string) {
	if err := c.client.Set(ctx, keyPrefix+rawURL, resolvedURL, c.ttl).Err(); err != nil {
		c.logger.Debug("resolve cache set", "error", err)
	}
}

func (c *ResolveCache) Close() error {
	return c.client.Close()
}
