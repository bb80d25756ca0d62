package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/pkg/distlock"
	"github.com/ignite/outreach-timeline/internal/pkg/logger"
)

const (
	cacheKeyPrefix = "outreach:settings:"
	refillLockTTL  = 10 * time.Second
	refillWait     = 100 * time.Millisecond
)

// Cache is a Redis read-through cache over a Source. A Redis outage
// degrades to direct source reads.
type Cache struct {
	client redis.Cmdable
	source Source
	ttl    time.Duration
}

// NewCache wraps source with a Redis copy that expires after ttl.
func NewCache(client redis.Cmdable, source Source, ttl time.Duration) *Cache {
	return &Cache{client: client, source: source, ttl: ttl}
}

// CacheKey returns the Redis key holding orgID's settings.
func CacheKey(orgID string) string {
	return cacheKeyPrefix + orgID
}

// Get returns orgID's settings, loading and caching them on a miss.
func (c *Cache) Get(ctx context.Context, orgID string) (*domain.Settings, error) {
	st, err := c.cached(ctx, orgID)
	if err != nil {
		logger.Warn("settings cache read failed, loading from source", "organization_id", orgID, "error", err)
		return c.source.Load(ctx, orgID)
	}
	if st != nil {
		return st, nil
	}

	// One refill per org at a time; losers wait briefly for the winner.
	lock := distlock.NewRedisLock(c.client, CacheKey(orgID), refillLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Warn("settings refill lock failed", "organization_id", orgID, "error", err)
	}
	if acquired {
		defer lock.Release(context.WithoutCancel(ctx))
	} else if err == nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(refillWait):
		}
		if st, err := c.cached(ctx, orgID); err == nil && st != nil {
			return st, nil
		}
	}

	st, err = c.source.Load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, orgID, st)
	return st, nil
}

// Invalidate drops orgID's cached settings.
func (c *Cache) Invalidate(ctx context.Context, orgID string) error {
	if err := c.client.Del(ctx, CacheKey(orgID)).Err(); err != nil {
		return fmt.Errorf("invalidate settings for %s: %w", orgID, err)
	}
	logger.Info("settings cache invalidated", "organization_id", orgID)
	return nil
}

// cached returns nil, nil on a miss.
func (c *Cache) cached(ctx context.Context, orgID string) (*domain.Settings, error) {
	raw, err := c.client.Get(ctx, CacheKey(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st domain.Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt entry is treated as a miss and overwritten.
		logger.Warn("discarding unreadable settings cache entry", "organization_id", orgID, "error", err)
		return nil, nil
	}
	return &st, nil
}

func (c *Cache) store(ctx context.Context, orgID string, st *domain.Settings) {
	data, err := json.Marshal(st)
	if err != nil {
		logger.Error("encode settings for cache", "organization_id", orgID, "error", err)
		return
	}
	if err := c.client.Set(ctx, CacheKey(orgID), data, c.ttl).Err(); err != nil {
		logger.Warn("settings cache write failed", "organization_id", orgID, "error", err)
	}
}
