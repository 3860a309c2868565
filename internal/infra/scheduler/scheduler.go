package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweepFunc runs one pass of a periodic job and reports what it did.
type SweepFunc func(ctx context.Context) (reclaimed int, failed int, err error)

// Scheduler drives a periodic job on a fixed interval. It runs the job once
// immediately on start so a restart does not postpone overdue work a full
// interval.
type Scheduler struct {
	interval time.Duration
	job      SweepFunc
	logger   *zap.Logger
}

// New constructs a scheduler for the given job.
func New(interval time.Duration, job SweepFunc, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{interval: interval, job: job, logger: logger}
}

// Run executes the job until the context is canceled. It blocks; callers
// start it in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	reclaimed, failed, err := s.job(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", zap.Error(err))
		return
	}

	if reclaimed > 0 || failed > 0 {
		s.logger.Info("scheduled sweep completed",
			zap.Int("reclaimed", reclaimed),
			zap.Int("failed", failed),
			zap.Duration("took", time.Since(started)),
		)
	}
}
