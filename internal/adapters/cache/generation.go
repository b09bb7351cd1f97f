package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Generations versions cache entries with a counter stored next to them.
// Readers note the counter before loading from the source of truth and write
// back only if no invalidation bumped it in the meantime.
type Generations struct {
	client *redis.Client
}

func NewGenerations(client *redis.Client) *Generations {
	return &Generations{client: client}
}

func generationKey(key string) string {
	return key + ":gen"
}

// Current returns the generation of key. A missing counter is generation 0.
func (g *Generations) Current(ctx context.Context, key string) (int64, error) {
	n, err := g.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation of %s: %w", key, err)
	}
	return n, nil
}

// Bump advances the generation of key and deletes the cached value in one
// MULTI/EXEC.
func (g *Generations) Bump(ctx context.Context, key string) error {
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("bump generation of %s: %w", key, err)
	}
	return nil
}

// SetIfCurrent stores value under key only while the generation is still gen.
// It reports whether the value was written.
func (g *Generations) SetIfCurrent(ctx context.Context, key string, gen int64, value any, ttl time.Duration) (bool, error) {
	genKey := generationKey(key)
	written := false

	err := g.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		written = true
		return nil
	}, genKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("conditional set of %s: %w", key, err)
	}
	return written, nil
}
