package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitNameEmpty         = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong       = errors.New("habit name is too long (max 100 chars)")
	ErrHabitDescTooLong       = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID     = errors.New("invalid user id")
	ErrInvalidFrequency       = errors.New("invalid frequency (must be daily, weekly, monthly, or custom)")
	ErrAlreadyCompleted       = errors.New("habit already marked as completed for this date")
	ErrCompletionDateRequired = errors.New("completion date is required")
)

const (
	HabitFreqDaily   = "daily"
	HabitFreqWeekly  = "weekly"
	HabitFreqMonthly = "monthly"
	HabitFreqCustom  = "custom"
	MaxNameLen       = 100
	MaxDescLen       = 500
)

type Habit struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	Frequency       string      `json:"frequency"`
	CompletionDates []time.Time `json:"completion_dates"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func validateFrequency(freq string) (string, error) {
	switch freq {
	case "":
		return HabitFreqDaily, nil
	case HabitFreqDaily, HabitFreqWeekly, HabitFreqMonthly, HabitFreqCustom:
		return freq, nil
	default:
		return "", ErrInvalidFrequency
	}
}

func validateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrHabitNameEmpty
	}
	if len([]rune(trimmed)) > MaxNameLen {
		return "", ErrHabitNameTooLong
	}
	return trimmed, nil
}

func validateDescription(desc string) (string, error) {
	trimmed := strings.TrimSpace(desc)
	if len([]rune(trimmed)) > MaxDescLen {
		return "", ErrHabitDescTooLong
	}
	return trimmed, nil
}

func NewHabit(userID, name, description, frequency string) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	cleanName, err := validateName(name)
	if err != nil {
		return nil, err
	}

	cleanDesc, err := validateDescription(description)
	if err != nil {
		return nil, err
	}

	freq, err := validateFrequency(frequency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            cleanName,
		Description:     cleanDesc,
		Frequency:       freq,
		CompletionDates: []time.Time{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Update applies the non-empty fields. Empty strings keep the current value.
func (h *Habit) Update(name, description, frequency string) error {
	newName := h.Name
	if name != "" {
		cleanName, err := validateName(name)
		if err != nil {
			return err
		}
		newName = cleanName
	}

	newDesc := h.Description
	if description != "" {
		cleanDesc, err := validateDescription(description)
		if err != nil {
			return err
		}
		newDesc = cleanDesc
	}

	newFreq := h.Frequency
	if frequency != "" {
		freq, err := validateFrequency(frequency)
		if err != nil {
			return err
		}
		newFreq = freq
	}

	h.Name = newName
	h.Description = newDesc
	h.Frequency = newFreq
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// TrackCompletion records a completion for the calendar day of date in loc.
// At most one completion per calendar day is accepted.
func (h *Habit) TrackCompletion(date time.Time, loc *time.Location) error {
	if date.IsZero() {
		return ErrCompletionDateRequired
	}
	if loc == nil {
		loc = time.Local
	}

	y, m, d := date.In(loc).Date()
	for _, existing := range h.CompletionDates {
		ey, em, ed := existing.In(loc).Date()
		if ey == y && em == m && ed == d {
			return ErrAlreadyCompleted
		}
	}

	dates := make([]time.Time, 0, len(h.CompletionDates)+1)
	dates = append(dates, h.CompletionDates...)
	h.CompletionDates = append(dates, date.UTC())
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// CompletionDayBounds returns the half-open range [start, end) of the calendar
// day in loc that date falls on.
func CompletionDayBounds(date time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// History returns a sorted copy of the completion dates.
func (h *Habit) History() []time.Time {
	history := slices.Clone(h.CompletionDates)
	if history == nil {
		history = []time.Time{}
	}
	slices.SortFunc(history, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return history
}
