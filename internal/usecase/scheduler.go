package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/stugorf/hdc-digest/internal/ports"
)

// Scheduler wires the cron driver with the digest pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring digest runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: log}
}

// Start registers the pipeline with the driver. A failed run is logged and
// the next scheduled run proceeds independently.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		digest, err := s.pipeline.Run(ctx, RunOptions{})
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled digest run failed", "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("scheduled digest run done", "run_id", digest.RunID, "kept", digest.CountKept())
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
