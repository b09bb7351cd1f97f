package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
)

// StatsNotifier is told whenever a user's habits change so that cached
// statistics can be dropped and rebuilt.
type StatsNotifier interface {
	Notify(ctx context.Context, userID string)
}

type HabitService struct {
	repo     domain.HabitRepository
	notifier StatsNotifier
	loc      *time.Location
}

// NewHabitService builds the service. notifier may be nil. loc decides the
// calendar day used for the one-completion-per-day rule.
func NewHabitService(repo domain.HabitRepository, notifier StatsNotifier, loc *time.Location) *HabitService {
	if loc == nil {
		loc = time.Local
	}
	return &HabitService{
		repo:     repo,
		notifier: notifier,
		loc:      loc,
	}
}

type CreateHabitInput struct {
	UserID      string
	Name        string
	Description string
	Frequency   string
}

type UpdateHabitInput struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Frequency   string
}

type TrackCompletionInput struct {
	ID     string
	UserID string
	Date   time.Time
}

func (s *HabitService) notify(ctx context.Context, userID string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID)
	}
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	habit, err := domain.NewHabit(input.UserID, input.Name, input.Description, input.Frequency)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	s.notify(ctx, habit.UserID)
	return habit, nil
}

func (s *HabitService) Get(ctx context.Context, id, userID string) (*domain.Habit, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	habits, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []*domain.Habit{}
	}
	return habits, nil
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := habit.Update(input.Name, input.Description, input.Frequency); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	s.notify(ctx, habit.UserID)
	return habit, nil
}

func (s *HabitService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.notify(ctx, userID)
	return nil
}

// Track records a completion. The same-day check and the append happen in
// the repository as one step, so concurrent tracks never overwrite each other.
func (s *HabitService) Track(ctx context.Context, input TrackCompletionInput) (*domain.Habit, error) {
	if input.Date.IsZero() {
		return nil, domain.ErrCompletionDateRequired
	}

	if err := s.repo.AddCompletion(ctx, input.ID, input.UserID, input.Date.UTC(), s.loc); err != nil {
		return nil, err
	}
	s.notify(ctx, input.UserID)

	return s.repo.GetByID(ctx, input.ID, input.UserID)
}

type HabitHistory struct {
	HabitName         string      `json:"habit"`
	CompletionHistory []time.Time `json:"completionHistory"`
}

func (s *HabitService) History(ctx context.Context, id, userID string) (*HabitHistory, error) {
	habit, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	return &HabitHistory{
		HabitName:         habit.Name,
		CompletionHistory: habit.History(),
	}, nil
}
