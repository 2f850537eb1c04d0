package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
	jobmetrics "github.com/fungus-mycelium/fungus-admin/internal/jobs"
	"github.com/fungus-mycelium/fungus-admin/internal/logs"
)

type fakeCleaner struct {
	days    []int
	deleted int
	err     error
}

func (f *fakeCleaner) Cleanup(_ context.Context, days int) (logs.CleanupResult, error) {
	f.days = append(f.days, days)
	if f.err != nil {
		return logs.CleanupResult{}, f.err
	}
	return logs.CleanupResult{DeletedCount: f.deleted}, nil
}

func TestLogsCleanupUsesPayloadWindow(t *testing.T) {
	cleaner := &fakeCleaner{deleted: 42}
	registry := prometheus.NewRegistry()
	job := NewLogsCleanupJob(cleaner, 90, nil, jobmetrics.NewMetrics(registry))

	task, err := NewLogsCleanupTask(30)
	require.NoError(t, err)
	require.NoError(t, job.Handle(t.Context(), task))

	assert.Equal(t, []int{30}, cleaner.days)
	expected := `
# HELP fungus_logs_cleanup_window_days Retention window in days of the last completed cleanup.
# TYPE fungus_logs_cleanup_window_days gauge
fungus_logs_cleanup_window_days 30
# HELP fungus_logs_purged_total Activity log entries removed by scheduled cleanup.
# TYPE fungus_logs_purged_total counter
fungus_logs_purged_total 42
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"fungus_logs_purged_total", "fungus_logs_cleanup_window_days"))
}

func TestLogsCleanupFallsBackToDefaultWindow(t *testing.T) {
	cleaner := &fakeCleaner{}
	job := NewLogsCleanupJob(cleaner, 90, nil, nil)

	task, err := NewLogsCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(t.Context(), task))
	require.NoError(t, job.Handle(t.Context(), asynq.NewTask(TaskLogsCleanup, nil)))

	assert.Equal(t, []int{90, 90}, cleaner.days)
}

func TestLogsCleanupSkipsRetryForPermanentFailures(t *testing.T) {
	tests := map[string]struct {
		task      *asynq.Task
		err       error
		skipRetry bool
	}{
		"malformed payload": {
			task:      asynq.NewTask(TaskLogsCleanup, []byte("{")),
			skipRetry: true,
		},
		"negative window": {
			task:      asynq.NewTask(TaskLogsCleanup, []byte(`{"days":-1}`)),
			skipRetry: true,
		},
		"window rejected": {
			err:       logs.ErrInvalidDays,
			skipRetry: true,
		},
		"token refused": {
			err:       &api.Error{Status: 401, Method: "DELETE", Path: "/logs/cleanup"},
			skipRetry: true,
		},
		"api down": {
			err: &api.Error{Status: 503, Method: "DELETE", Path: "/logs/cleanup"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cleaner := &fakeCleaner{err: tc.err}
			job := NewLogsCleanupJob(cleaner, 30, nil, nil)
			task := tc.task
			if task == nil {
				var err error
				task, err = NewLogsCleanupTask(30)
				require.NoError(t, err)
			}

			err := job.Handle(t.Context(), task)
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestLogsCleanupRecordsRunOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)

	task, err := NewLogsCleanupTask(7)
	require.NoError(t, err)
	require.Error(t, NewLogsCleanupJob(&fakeCleaner{err: api.ErrUnavailable}, 30, nil, metrics).Handle(t.Context(), task))
	require.Error(t, NewLogsCleanupJob(&fakeCleaner{err: api.ErrForbidden}, 30, nil, metrics).Handle(t.Context(), task))
	require.Error(t, NewLogsCleanupJob(&fakeCleaner{}, 30, nil, metrics).Handle(t.Context(), asynq.NewTask(TaskLogsCleanup, []byte("{"))))

	expected := `
# HELP fungus_worker_runs_total Worker task runs by task type and outcome.
# TYPE fungus_worker_runs_total counter
fungus_worker_runs_total{outcome="dropped",task="logs:cleanup"} 2
fungus_worker_runs_total{outcome="retrying",task="logs:cleanup"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "fungus_worker_runs_total"))
}

func TestNewLogsCleanupTaskRejectsNegativeWindow(t *testing.T) {
	_, err := NewLogsCleanupTask(-5)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	task, err := NewLogsCleanupTask(14)
	require.NoError(t, err)
	assert.Equal(t, TaskLogsCleanup, task.Type())
	assert.JSONEq(t, `{"days":14}`, string(task.Payload()))
}
