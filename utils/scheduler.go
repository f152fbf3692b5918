package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Retry configuration
const maxRetries = 3
const retryDelay = 30 * time.Second

// SweepFunc is a periodic job. It returns how many items it handled.
type SweepFunc func(ctx context.Context, now time.Time) (int, error)

// RunWithRetries runs job up to maxRetries times, stopping at the first
// success or when ctx ends.
func RunWithRetries(ctx context.Context, name string, job SweepFunc, delay time.Duration, logger *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		logger.Info("running scheduled task", zap.String("task", name), zap.Int("attempt", attempt))
		handled, err := job(ctx, time.Now())
		if err == nil {
			logger.Info("scheduled task finished", zap.String("task", name), zap.Int("handled", handled))
			return nil
		}
		lastErr = err
		logger.Warn("scheduled task failed", zap.String("task", name), zap.Int("attempt", attempt), zap.Error(err))

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	logger.Error("scheduled task failed after retries, please check the system",
		zap.String("task", name),
		zap.Int("retries", maxRetries),
		zap.Error(lastErr))
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxRetries, lastErr)
}

// StartScheduledSweep registers job on the cron schedule and starts the
// scheduler. Stop the returned cron on shutdown.
func StartScheduledSweep(ctx context.Context, schedule, name string, job SweepFunc, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		_ = RunWithRetries(ctx, name, job, retryDelay, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q for %s: %w", schedule, name, err)
	}
	c.Start()
	return c, nil
}
