package stats

import (
	"math"
	"time"
)

// DaysSinceCreation returns the number of whole 24h periods between
// createdAt and now. A zero createdAt, or one after now, yields 0.
func DaysSinceCreation(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}

	elapsed := now.Sub(createdAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// CompletionRate returns total completions as a percentage of the habit age,
// rounded to 2 decimals. The result is not capped at 100.
func CompletionRate(totalCompletions, daysSinceCreation int) float64 {
	switch {
	case daysSinceCreation > 0:
		return Round2(float64(totalCompletions) / float64(daysSinceCreation) * 100)
	case daysSinceCreation == 0 && totalCompletions > 0:
		return 100
	default:
		return 0
	}
}

// Round2 rounds half-up to 2 decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
