package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler invokes a job on a fixed recurring cadence. The timer source is
// injectable so tests can drive ticks without waiting on a real clock.
type Scheduler struct {
	interval time.Duration
	job      func(context.Context)
	after    func(time.Duration) <-chan time.Time
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler firing job every interval.
// If interval is <= 0, it defaults to one week.
func NewScheduler(interval time.Duration, job func(context.Context)) *Scheduler {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	return &Scheduler{
		interval: interval,
		job:      job,
		after:    time.After,
		logger:   slog.Default(),
	}
}

// Run fires the job on every tick until ctx is cancelled. The first tick
// happens one full interval after start. The job runs on the scheduler
// goroutine; a slow job delays the next tick rather than overlapping it.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.after(s.interval):
			s.job(ctx)
		}
	}
}
