package stats

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Record is the read-only view of a habit the engine works on.
type Record struct {
	ID              string
	Name            string
	CompletionDates []time.Time
	CreatedAt       time.Time
}

type HabitStatistics struct {
	HabitID          string  `json:"habitId"`
	Name             string  `json:"name"`
	TotalCompletions int     `json:"totalCompletions"`
	CurrentStreak    int     `json:"currentStreak"`
	CompletionRate   float64 `json:"completionRate"`
}

// Engine fixes the timezone used to decide which calendar day a timestamp
// belongs to.
type Engine struct {
	Location *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{Location: loc}
}

// ParallelThreshold is the habit count from which ComputeContext spreads the
// work over several goroutines.
const ParallelThreshold = 64

func (e *Engine) Compute(records []Record, now time.Time) []HabitStatistics {
	return Aggregate(records, now, e.Location)
}

// ComputeContext is Compute that fans out over GOMAXPROCS goroutines once
// there are ParallelThreshold habits or more. The result is the same.
func (e *Engine) ComputeContext(ctx context.Context, records []Record, now time.Time) ([]HabitStatistics, error) {
	if len(records) < ParallelThreshold {
		return e.Compute(records, now), nil
	}
	return AggregateParallel(ctx, records, now, e.Location, runtime.GOMAXPROCS(0))
}

// Aggregate computes one HabitStatistics per record, in input order.
func Aggregate(records []Record, now time.Time, loc *time.Location) []HabitStatistics {
	today := DayOf(now, loc)

	out := make([]HabitStatistics, len(records))
	for i := range records {
		out[i] = compute(&records[i], today, now, loc)
	}
	return out
}

// AggregateParallel is Aggregate with habits spread over at most workers
// goroutines. Each habit writes only its own slot, so ordering is kept.
func AggregateParallel(ctx context.Context, records []Record, now time.Time, loc *time.Location, workers int) ([]HabitStatistics, error) {
	today := DayOf(now, loc)
	out := make([]HabitStatistics, len(records))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := range records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = compute(&records[i], today, now, loc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func compute(r *Record, today Day, now time.Time, loc *time.Location) HabitStatistics {
	days := Normalize(r.CompletionDates, loc)
	total := len(days)

	return HabitStatistics{
		HabitID:          r.ID,
		Name:             r.Name,
		TotalCompletions: total,
		CurrentStreak:    CurrentStreak(days, today),
		CompletionRate:   CompletionRate(total, DaysSinceCreation(r.CreatedAt, now)),
	}
}
