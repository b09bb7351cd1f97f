package stats

import (
	"slices"
	"time"
)

// Normalize maps completion timestamps to their calendar days in loc and
// returns them ascending with duplicates removed. dates is left untouched.
func Normalize(dates []time.Time, loc *time.Location) []Day {
	days := make([]Day, 0, len(dates))
	for _, t := range dates {
		days = append(days, DayOf(t, loc))
	}

	slices.Sort(days)
	return slices.Compact(days)
}
