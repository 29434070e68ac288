package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	statsKeyPrefix   = "tasks:stats"
	statsLoadTimeout = 10 * time.Second
)

// StatsCache keeps per-user dashboard stats in Redis under versioned keys.
// Bumping a user's version makes every older entry unreachable; entries then
// expire on their own TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewStatsCache instantiates the cache helper. A nil client disables caching.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StatsCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{client: client, ttl: ttl, logger: logger}
}

func versionKey(owner uuid.UUID) string {
	return fmt.Sprintf("%s:version:%s", statsKeyPrefix, owner)
}

// Version returns the current cache version for owner, initialising when missing.
func (c *StatsCache) Version(ctx context.Context, owner uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(owner)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Bump is never overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the stats key for owner with the current version.
func (c *StatsCache) BuildKey(ctx context.Context, owner uuid.UUID) (string, error) {
	ver, err := c.Version(ctx, owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d", statsKeyPrefix, owner, ver), nil
}

// Fetch returns cached stats for owner or computes them with loader.
// Concurrent misses on the same key share one loader call. Redis failures
// are logged and fall back to the loader.
func (c *StatsCache) Fetch(ctx context.Context, owner uuid.UUID, loader func(context.Context) (Stats, error)) (Stats, error) {
	if loader == nil {
		return Stats{}, errors.New("tasks: stats loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key, err := c.BuildKey(ctx, owner)
	if err != nil {
		c.logger.Warn("stats cache version", slog.Any("error", err))
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var stats Stats
		if err := json.Unmarshal(payload, &stats); err == nil {
			return stats, nil
		}
		c.logger.Warn("stats cache decode", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("stats cache read", slog.Any("error", err))
		return loader(ctx)
	}

	return c.load(ctx, key, loader)
}

// load runs loader once per key for every waiting caller. The shared call is
// detached from the first caller's cancellation; each caller still stops
// waiting when its own context ends.
func (c *StatsCache) load(ctx context.Context, key string, loader func(context.Context) (Stats, error)) (Stats, error) {
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsLoadTimeout)
		defer cancel()
		stats, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(stats)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("stats cache write", slog.Any("error", err))
		}
		return stats, nil
	})
	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// Bump invalidates owner's cached stats by incrementing the version.
func (c *StatsCache) Bump(ctx context.Context, owner uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(owner)).Err()
}
