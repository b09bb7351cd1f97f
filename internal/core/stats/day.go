// Package stats computes per-habit statistics (total completions, current
// streak, completion rate) from a read-only snapshot of habit records.
//
// Every function in this package is pure: results depend only on the
// arguments, nothing is persisted and caller-owned values are never mutated.
package stats

import "time"

const secondsPerDay = 24 * 60 * 60

// Day is a calendar day counted from 1970-01-01. It is a plain value:
// arithmetic always yields a new Day.
type Day int64

// DayOf returns the calendar day of t as seen from loc. A nil loc means
// time.Local.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day(floorDiv(midnight.Unix(), secondsPerDay))
}

func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// Time returns midnight of d in loc.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, dd := time.Unix(int64(d)*secondsPerDay, 0).UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

func (d Day) String() string {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC().Format(time.DateOnly)
}

// ParseDay reads a YYYY-MM-DD string as produced by Day.String.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, err
	}
	return DayOf(t, time.UTC), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
