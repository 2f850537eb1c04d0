// Package jobmetrics instruments the worker's background tasks.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes. A dropped run failed and will not be retried by asynq.
const (
	OutcomeCompleted = "completed"
	OutcomeRetrying  = "retrying"
	OutcomeDropped   = "dropped"
)

// Metrics holds the worker collectors.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	purged      prometheus.Counter
	window      prometheus.Gauge
}

var (
	sharedOnce    sync.Once
	sharedMetrics *Metrics
)

// NewMetrics registers the collectors on reg. A nil reg uses the process-wide
// default registerer, once.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg != nil {
		return register(reg)
	}
	sharedOnce.Do(func() {
		sharedMetrics = register(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// Run measures one task execution.
type Run struct {
	metrics *Metrics
	task    string
	started time.Time
}

// Begin starts measuring a run of task. It is safe on nil Metrics.
func (m *Metrics) Begin(task string) *Run {
	return &Run{metrics: m, task: task, started: time.Now()}
}

// Finish records the outcome of err and hands err back.
func (r *Run) Finish(err error) error {
	if r == nil || r.metrics == nil {
		return err
	}
	outcome := Outcome(err)
	r.metrics.runs.WithLabelValues(r.task, outcome).Inc()
	r.metrics.duration.WithLabelValues(r.task).Observe(time.Since(r.started).Seconds())
	if outcome == OutcomeCompleted {
		r.metrics.lastSuccess.WithLabelValues(r.task).SetToCurrentTime()
	}
	return err
}

// Outcome classifies a handler result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, asynq.SkipRetry):
		return OutcomeDropped
	default:
		return OutcomeRetrying
	}
}

// ObserveCleanup records a finished log cleanup: the window it ran with and
// how many entries the API removed.
func (m *Metrics) ObserveCleanup(days, deleted int) {
	if m == nil {
		return
	}
	m.window.Set(float64(days))
	if deleted > 0 {
		m.purged.Add(float64(deleted))
	}
}

func register(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fungus_worker_runs_total",
			Help: "Worker task runs by task type and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fungus_worker_run_seconds",
			Help:    "Wall time of worker task runs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fungus_worker_last_success_timestamp_seconds",
			Help: "Unix time of the last completed run per task type.",
		}, []string{"task"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fungus_logs_purged_total",
			Help: "Activity log entries removed by scheduled cleanup.",
		}),
		window: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fungus_logs_cleanup_window_days",
			Help: "Retention window in days of the last completed cleanup.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.purged, m.window)
	return m
}
