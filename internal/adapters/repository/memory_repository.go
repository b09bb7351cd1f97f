package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
)

var _ domain.HabitRepository = (*InMemoryHabitRepository)(nil)

// InMemoryHabitRepository stores copies, so callers never share a habit with
// the store.
type InMemoryHabitRepository struct {
	store map[string]*domain.Habit

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store: make(map[string]*domain.Habit),
	}
}

func cloneHabit(h *domain.Habit) *domain.Habit {
	c := *h
	c.CompletionDates = slices.Clone(h.CompletionDates)
	if c.CompletionDates == nil {
		c.CompletionDates = []time.Time{}
	}
	return &c
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok || habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(habit), nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.Habit{}
	for _, h := range r.store {
		if h.UserID == userID {
			habits = append(habits, cloneHabit(h))
		}
	}

	slices.SortFunc(habits, func(a, b *domain.Habit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[habit.ID]
	if !ok || existing.UserID != habit.UserID {
		return domain.ErrHabitNotFound
	}

	updated := cloneHabit(habit)
	updated.CompletionDates = existing.CompletionDates
	r.store[habit.ID] = updated
	return nil
}

func (r *InMemoryHabitRepository) AddCompletion(ctx context.Context, id, userID string, date time.Time, loc *time.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[id]
	if !ok || existing.UserID != userID {
		return domain.ErrHabitNotFound
	}

	return existing.TrackCompletion(date, loc)
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[id]
	if !ok || existing.UserID != userID {
		return domain.ErrHabitNotFound
	}

	delete(r.store, id)
	return nil
}
