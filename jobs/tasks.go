package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"
	// TaskLogsCleanup purges activity log entries older than a window.
	TaskLogsCleanup = "logs:cleanup"
)

// ErrInvalidPayload marks a task body that can never be processed.
var ErrInvalidPayload = errors.New("jobs: invalid payload")

// LogsCleanupPayload is the body of TaskLogsCleanup. Days zero falls back to
// the worker's configured window.
type LogsCleanupPayload struct {
	Days int `json:"days,omitempty"`
}

// NewLogsCleanupTask builds a cleanup task for the given retention window.
func NewLogsCleanupTask(days int) (*asynq.Task, error) {
	if days < 0 {
		return nil, ErrInvalidPayload
	}
	data, err := json.Marshal(LogsCleanupPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLogsCleanup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func decodeLogsCleanup(t *asynq.Task) (LogsCleanupPayload, error) {
	var payload LogsCleanupPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Days < 0 {
		return LogsCleanupPayload{}, ErrInvalidPayload
	}
	return payload, nil
}
