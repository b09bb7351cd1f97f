package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/stats"
	"github.com/redis/go-redis/v9"
)

const defaultStatsTTL = 24 * time.Hour

// RedisStatsCache keeps the last statistics snapshot of each user together
// with the calendar day it was computed for.
type RedisStatsCache struct {
	client *redis.Client
	gens   *Generations
	ttl    time.Duration
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &RedisStatsCache{client: client, gens: NewGenerations(client), ttl: ttl}
}

type statsSnapshot struct {
	Day        string                  `json:"day"`
	Statistics []stats.HabitStatistics `json:"statistics"`
}

func (c *RedisStatsCache) key(userID string) string {
	return fmt.Sprintf("stats:%s", userID)
}

func (c *RedisStatsCache) Get(ctx context.Context, userID string) (stats.Day, []stats.HabitStatistics, bool, error) {
	val, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("stats cache get: %w", err)
	}

	var snap statsSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		c.client.Del(ctx, c.key(userID))
		return 0, nil, false, fmt.Errorf("stats cache: corrupted snapshot: %w", err)
	}

	day, err := stats.ParseDay(snap.Day)
	if err != nil {
		c.client.Del(ctx, c.key(userID))
		return 0, nil, false, fmt.Errorf("stats cache: corrupted snapshot: %w", err)
	}

	if snap.Statistics == nil {
		snap.Statistics = []stats.HabitStatistics{}
	}
	return day, snap.Statistics, true, nil
}

func (c *RedisStatsCache) Generation(ctx context.Context, userID string) (int64, error) {
	return c.gens.Current(ctx, c.key(userID))
}

// Set stores the snapshot unless Invalidate ran after gen was read; a stale
// snapshot is dropped silently.
func (c *RedisStatsCache) Set(ctx context.Context, userID string, gen int64, day stats.Day, result []stats.HabitStatistics) error {
	data, err := json.Marshal(statsSnapshot{Day: day.String(), Statistics: result})
	if err != nil {
		return fmt.Errorf("stats cache marshal: %w", err)
	}
	if _, err := c.gens.SetIfCurrent(ctx, c.key(userID), gen, data, c.ttl); err != nil {
		return fmt.Errorf("stats cache set: %w", err)
	}
	return nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.gens.Bump(ctx, c.key(userID)); err != nil {
		return fmt.Errorf("stats cache invalidate: %w", err)
	}
	return nil
}
