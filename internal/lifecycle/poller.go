package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gen3d-backend/internal/provider"
)

// ErrTaskTimeout indicates polling exceeded the configured ceiling before the
// task reached a terminal state.
var ErrTaskTimeout = errors.New("remote task timed out")

// TaskFailedError carries the provider's terminal failure message.
type TaskFailedError struct {
	TaskId  string
	Message string
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("remote task %s failed: %s", e.TaskId, e.Message)
}

type StatusClient interface {
	GetTaskStatus(ctx context.Context, taskId string) (provider.TaskInfo, error)
}

// Poller drives a single remote task to a terminal state. Transient status
// errors never abort the wait, they just burn interval budget: the only ways
// out are SUCCEEDED, FAILED, the timeout ceiling, or caller cancellation.
type Poller struct {
	client   StatusClient
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(client StatusClient, interval, timeout time.Duration) *Poller {
	return &Poller{client: client, interval: interval, timeout: timeout}
}

// Wait polls taskId until it succeeds or fails. Unrecognized statuses are
// treated as still-in-progress so provider API drift does not break waiting
// tasks. On context cancellation it stops immediately and returns ctx.Err().
func (p *Poller) Wait(ctx context.Context, taskId string) (provider.TaskInfo, error) {
	deadline := time.Now().Add(p.timeout)

	for {
		info, err := p.client.GetTaskStatus(ctx, taskId)
		if err != nil {
			if ctx.Err() != nil {
				return provider.TaskInfo{}, ctx.Err()
			}
			slog.Error("error checking task status, will retry", "task_id", taskId, "error", err)
		} else {
			switch info.Status {
			case provider.StatusSucceeded:
				slog.Info("task succeeded", "task_id", taskId)
				return info, nil
			case provider.StatusFailed:
				slog.Error("task failed", "task_id", taskId, "error", info.TaskError.Message)
				return info, &TaskFailedError{TaskId: taskId, Message: info.TaskError.Message}
			case provider.StatusPending, provider.StatusInProgress:
				slog.Info("task still running", "task_id", taskId, "status", info.Status)
			default:
				slog.Warn("unrecognized task status, treating as in progress", "task_id", taskId, "status", info.Status)
			}
		}

		if time.Now().After(deadline) {
			return provider.TaskInfo{}, fmt.Errorf("task %s: %w", taskId, ErrTaskTimeout)
		}

		select {
		case <-ctx.Done():
			return provider.TaskInfo{}, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
