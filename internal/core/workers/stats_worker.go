package workers

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/logger"
)

const defaultQueueSize = 100

type StatsRefresher interface {
	Invalidate(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) error
}

type RefreshJob struct {
	UserID string
}

// StatsWorker rebuilds cached statistics in the background after a user's
// habits change.
type StatsWorker struct {
	refresher  StatsRefresher
	jobs       chan RefreshJob
	jobTimeout time.Duration
}

func NewStatsWorker(refresher StatsRefresher) *StatsWorker {
	return &StatsWorker{
		refresher:  refresher,
		jobs:       make(chan RefreshJob, defaultQueueSize),
		jobTimeout: 5 * time.Second,
	}
}

// Start consumes jobs until ctx is cancelled. done is closed on exit.
func (w *StatsWorker) Start(ctx context.Context) (done <-chan struct{}) {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		logger.Info("stats worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				logger.Info("stats worker shutting down")
				return
			}
		}
	}()
	return finished
}

// Notify drops the cached snapshot right away, so readers never see data
// older than the write, then queues a rebuild.
func (w *StatsWorker) Notify(ctx context.Context, userID string) {
	if err := w.refresher.Invalidate(ctx, userID); err != nil {
		logger.Warn("stats invalidation failed", "user_id", userID, "error", err)
	}
	w.Enqueue(userID)
}

func (w *StatsWorker) Enqueue(userID string) {
	select {
	case w.jobs <- RefreshJob{UserID: userID}:
	default:
		logger.Warn("stats worker queue full, dropping job", "user_id", userID)
	}
}

func (w *StatsWorker) processJob(ctx context.Context, job RefreshJob) {
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := w.refresher.Refresh(ctx, job.UserID); err != nil {
		logger.Error("stats refresh failed", "user_id", job.UserID, "error", err)
		return
	}
	logger.Debug("stats refreshed", "user_id", job.UserID)
}
