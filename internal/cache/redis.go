package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"metabento/config"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "metabento:leaderboard:top"

// LeaderboardCache keeps the top of the leaderboard in Redis. A nil *LeaderboardCache is valid
// and behaves as an always-empty cache, so callers need no branches when Redis is disabled.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings. It returns nil, nil when no address is configured.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

// Get decodes the cached leaderboard into dst. It reports false on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, dst interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, v interface{}) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardKey, raw, c.ttl).Err()
}

// Invalidate drops the cached leaderboard after a balance change commits.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, leaderboardKey).Err()
}
