// Package cache keeps recent orchestration results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/orchestrator"
)

// ErrMiss is returned when no cached result exists.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "pulse:analysis:"

// DefaultTTL applies when New is given a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Cache stores one result per project.
type Cache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func key(projectID string) string { return keyPrefix + projectID }

// Get returns the cached result for projectID or ErrMiss.
func (c *Cache) Get(ctx context.Context, projectID string) (*orchestrator.Result, error) {
	data, err := c.rdb.Get(ctx, key(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", projectID, err)
	}
	var res orchestrator.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("dropping unreadable cache entry",
			zap.String("project", projectID), zap.Error(err))
		_ = c.Invalidate(ctx, projectID)
		return nil, ErrMiss
	}
	return &res, nil
}

// Put stores res for projectID with the cache TTL.
func (c *Cache) Put(ctx context.Context, projectID string, res *orchestrator.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.rdb.Set(ctx, key(projectID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", projectID, err)
	}
	return nil
}

// Invalidate drops the cached result for projectID.
func (c *Cache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.rdb.Del(ctx, key(projectID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", projectID, err)
	}
	return nil
}
