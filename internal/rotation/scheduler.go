package rotation

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler runs a Runner on a fixed interval.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	targets  []Target
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler that runs targets every interval.
func NewScheduler(runner *Runner, interval time.Duration, logger *slog.Logger, targets ...Target) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		targets:  targets,
		logger:   logger,
	}
}

// Start runs one pass immediately and then one per tick until ctx is cancelled.
// Failed passes are logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting rotation scheduler", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping rotation scheduler")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx, s.targets...); err != nil && ctx.Err() == nil {
		s.logger.Error("rotation pass failed", slog.Any("error", err))
	}
}
