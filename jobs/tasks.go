package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDueSweep is the task type for the daily due-date sweep.
	TaskDueSweep = "loans:due_sweep"
)

// NewDueSweepTask constructs the due-date sweep task. The payload is empty:
// the sweep always scans every active loan past its due date.
func NewDueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskDueSweep, nil)
}
