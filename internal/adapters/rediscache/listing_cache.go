package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/domain"
	"rental-system/internal/core/port"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "listing:"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ListingCache implements port.ListingCachePort on redis, one JSON value per listing.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ port.ListingCachePort = (*ListingCache)(nil)

// NewClient connects and pings, so a misconfigured address fails at startup.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewListingCache(client *redis.Client, ttl time.Duration) (*ListingCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis.Client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ListingCache{client: client, ttl: ttl}, nil
}

func cacheKey(id string) string { return keyPrefix + id }

// Get returns (nil, nil) on a miss.
func (c *ListingCache) Get(ctx context.Context, id string) (*domain.Property, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listing %s from cache: %w", id, err)
	}

	var p domain.Property
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		contextkeys.LoggerFromContext(ctx).Warn("Dropping undecodable cache entry", port.Fields{
			"component": "ListingCache",
			"key":       cacheKey(id),
		})
		_ = c.client.Del(ctx, cacheKey(id)).Err()
		return nil, nil
	}
	return &p, nil
}

func (c *ListingCache) Set(ctx context.Context, p domain.Property) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode listing %s: %w", p.ID, err)
	}
	if err := c.client.Set(ctx, cacheKey(p.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache listing %s: %w", p.ID, err)
	}
	return nil
}

func (c *ListingCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing %s: %w", id, err)
	}
	return nil
}
