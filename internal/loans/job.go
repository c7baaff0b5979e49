package loans

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SweepJob adapts the due-date sweeper to the asynq worker.
type SweepJob struct {
	sweeper *Sweeper
	logger  *slog.Logger
}

// NewSweepJob constructs a job handler.
func NewSweepJob(sweeper *Sweeper, logger *slog.Logger) *SweepJob {
	return &SweepJob{sweeper: sweeper, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. A failed run is retried by
// the queue; partial per-loan failures inside a run are already absorbed by
// the sweeper itself.
func (j *SweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	if _, err := j.sweeper.Run(ctx); err != nil {
		if j.logger != nil {
			j.logger.Error("due-date sweep run", slog.Any("error", err))
		}
		return err
	}
	return nil
}
