package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/stats"
	"github.com/comitanigiacomo/kanso-habit-stats/internal/logger"
)

// StatsCache stores one statistics snapshot per user, tagged with the
// calendar day it was computed for.
//
// Generation changes on every Invalidate. Set must drop a snapshot whose gen
// is no longer current, so a computation that raced with a write never
// overwrites the invalidation.
type StatsCache interface {
	Get(ctx context.Context, userID string) (day stats.Day, result []stats.HabitStatistics, found bool, err error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, gen int64, day stats.Day, result []stats.HabitStatistics) error
	Invalidate(ctx context.Context, userID string) error
}

type StatsService struct {
	habitRepo domain.HabitRepository
	engine    *stats.Engine
	cache     StatsCache
	now       func() time.Time
}

type StatsOption func(*StatsService)

// WithStatsCache enables snapshot caching.
func WithStatsCache(cache StatsCache) StatsOption {
	return func(s *StatsService) {
		s.cache = cache
	}
}

// WithClock overrides the reference clock; tests use it to freeze "now".
func WithClock(now func() time.Time) StatsOption {
	return func(s *StatsService) {
		s.now = now
	}
}

func NewStatsService(habitRepo domain.HabitRepository, engine *stats.Engine, opts ...StatsOption) *StatsService {
	s := &StatsService{
		habitRepo: habitRepo,
		engine:    engine,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetStatistics returns one statistics record per habit of userID, in the
// order the repository lists them.
func (s *StatsService) GetStatistics(ctx context.Context, userID string) ([]stats.HabitStatistics, error) {
	now := s.now()
	today := stats.DayOf(now, s.engine.Location)

	if s.cache != nil {
		day, cached, found, err := s.cache.Get(ctx, userID)
		if err != nil {
			logger.Warn("stats cache read failed", "user_id", userID, "error", err)
		} else if found && day == today {
			return cached, nil
		}
	}

	return s.computeAndStore(ctx, userID, now)
}

func (s *StatsService) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, userID)
}

// Refresh recomputes the snapshot of userID and stores it in the cache.
func (s *StatsService) Refresh(ctx context.Context, userID string) error {
	_, err := s.computeAndStore(ctx, userID, s.now())
	return err
}

func (s *StatsService) computeAndStore(ctx context.Context, userID string, now time.Time) ([]stats.HabitStatistics, error) {
	var gen int64
	store := s.cache != nil
	if store {
		g, err := s.cache.Generation(ctx, userID)
		if err != nil {
			logger.Warn("stats cache generation read failed", "user_id", userID, "error", err)
			store = false
		}
		gen = g
	}

	habits, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats service: failed to list habits: %w", err)
	}

	result, err := s.engine.ComputeContext(ctx, toRecords(habits), now)
	if err != nil {
		return nil, fmt.Errorf("stats service: %w", err)
	}

	if store {
		day := stats.DayOf(now, s.engine.Location)
		if err := s.cache.Set(ctx, userID, gen, day, result); err != nil {
			logger.Warn("stats cache write failed", "user_id", userID, "error", err)
		}
	}

	return result, nil
}

func toRecords(habits []*domain.Habit) []stats.Record {
	records := make([]stats.Record, 0, len(habits))
	for _, h := range habits {
		if h == nil {
			continue
		}
		records = append(records, stats.Record{
			ID:              h.ID,
			Name:            h.Name,
			CompletionDates: h.CompletionDates,
			CreatedAt:       h.CreatedAt,
		})
	}
	return records
}
