package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit owned by userID. A habit that exists but
	// belongs to someone else is reported as ErrHabitNotFound.
	GetByID(ctx context.Context, id, userID string) (*Habit, error)

	// ListByUserID retrieves all habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update writes name, description, frequency and updated_at. Completion
	// dates are left alone; they only change through AddCompletion.
	Update(ctx context.Context, habit *Habit) error

	// AddCompletion appends date to the habit's completions in one atomic
	// step. It fails with ErrAlreadyCompleted when the habit already has a
	// completion on the same calendar day in loc.
	AddCompletion(ctx context.Context, id, userID string, date time.Time, loc *time.Location) error

	// Delete permanently removes a habit owned by userID.
	Delete(ctx context.Context, id, userID string) error
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
