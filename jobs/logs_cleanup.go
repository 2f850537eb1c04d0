package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	jobmetrics "github.com/fungus-mycelium/fungus-admin/internal/jobs"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
)

// LogCleaner removes old activity log entries.
type LogCleaner interface {
	Cleanup(ctx context.Context, days int) (logs.CleanupResult, error)
}

// LogsCleanupJob handles TaskLogsCleanup by calling the API cleanup endpoint
// with the worker's service credential.
type LogsCleanupJob struct {
	Cleaner     LogCleaner
	DefaultDays int
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewLogsCleanupJob wires dependencies for the cleanup handler.
func NewLogsCleanupJob(cleaner LogCleaner, defaultDays int, logger *slog.Logger, metrics *jobmetrics.Metrics) *LogsCleanupJob {
	return &LogsCleanupJob{Cleaner: cleaner, DefaultDays: defaultDays, Logger: logger, Metrics: metrics}
}

// Handle processes one cleanup task. Bad payloads, a rejected window and a
// refused credential are not retried.
func (j *LogsCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cleaner == nil {
		return errors.New("logs cleanup: handler not configured")
	}
	run := j.Metrics.Begin(TaskLogsCleanup)
	defer func() {
		resultErr = run.Finish(resultErr)
	}()

	payload, err := decodeLogsCleanup(t)
	if err != nil {
		return fmt.Errorf("logs cleanup: %w: %w", err, asynq.SkipRetry)
	}
	days := payload.Days
	if days == 0 {
		days = j.DefaultDays
	}

	logger := j.logger().With(slog.Int("days", days))
	start := time.Now()
	result, err := j.Cleaner.Cleanup(ctx, days)
	if err != nil {
		logger.Error("logs cleanup failed", slog.Any("error", err))
		if errors.Is(err, logs.ErrInvalidDays) || errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden) {
			return fmt.Errorf("logs cleanup: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("logs cleanup: %w", err)
	}
	j.Metrics.ObserveCleanup(days, result.DeletedCount)
	logger.Info("logs cleanup completed", slog.Int("deleted", result.DeletedCount), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *LogsCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
