package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/logger"
	"github.com/redis/go-redis/v9"
)

const habitListTTL = 30 * time.Minute

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

// CachedHabitRepository is a read-through redis cache of each user's habit
// list. Every write bumps the owner's generation, and a list loaded under an
// older generation is not written back.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache *redis.Client
	gens  *cache.Generations
}

func NewCachedHabitRepository(next domain.HabitRepository, client *redis.Client) *CachedHabitRepository {
	return &CachedHabitRepository{
		next:  next,
		cache: client,
		gens:  cache.NewGenerations(client),
	}
}

func (r *CachedHabitRepository) cacheKey(userID string) string {
	return fmt.Sprintf("habits:%s", userID)
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	if err := r.gens.Bump(ctx, r.cacheKey(userID)); err != nil {
		logger.Warn("habit cache invalidation failed", "user_id", userID, "error", err)
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Result()
	if err == nil {
		var habits []*domain.Habit
		if err := json.Unmarshal([]byte(val), &habits); err == nil {
			return habits, nil
		}

		logger.Warn("corrupted habit cache entry, cleaning up key", "user_id", userID)
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("habit cache read failed", "error", err)
	}

	gen, genErr := r.gens.Current(ctx, key)

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		logger.Warn("habit cache generation read failed", "error", genErr)
		return habits, nil
	}
	if data, err := json.Marshal(habits); err == nil {
		if _, setErr := r.gens.SetIfCurrent(ctx, key, gen, data, habitListTTL); setErr != nil {
			logger.Warn("habit cache write failed", "error", setErr)
		}
	}

	return habits, nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	return r.next.GetByID(ctx, id, userID)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) AddCompletion(ctx context.Context, id, userID string, date time.Time, loc *time.Location) error {
	if err := r.next.AddCompletion(ctx, id, userID, date, loc); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id, userID string) error {
	if err := r.next.Delete(ctx, id, userID); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}
