package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Starter runs until its context is cancelled.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper shuts a running component down within ctx.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// OpsServer is the health and metrics server run next to the scheduler.
type OpsServer interface {
	Starter
	Stopper
}

// RunWorker runs the rotation scheduler and the ops server until ctx is cancelled
// or either of them fails, then stops the server within shutdownTimeout.
func RunWorker(
	ctx context.Context,
	scheduler Starter,
	server OpsServer,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("rotation scheduler error: %w", err)
			return
		}
		errs <- nil
	}()
	go func() {
		if err := server.Start(ctx); err != nil {
			errs <- fmt.Errorf("ops server error: %w", err)
			return
		}
		errs <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errs:
		if runErr != nil {
			logger.Error("worker error, initiating shutdown", slog.Any("error", runErr))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("ops server shutdown: %w", err)
	}

	return errors.Join(runErr, shutdownErr)
}
