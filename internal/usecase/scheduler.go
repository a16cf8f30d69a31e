package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ReviewPublisher/internal/ports"
)

// Scheduler wires the cron driver with the batch runner.
type Scheduler struct {
	driver  ports.Scheduler
	runner  *Runner
	request BatchRequest
	logger  *slog.Logger
}

// NewScheduler returns a helper that starts the configured batch on every trigger.
func NewScheduler(driver ports.Scheduler, runner *Runner, request BatchRequest, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, request: request, logger: logger}
}

// Start registers the batch with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}
	if len(normalizeKeywords(s.request.Keywords)) == 0 {
		return ErrNoKeywords
	}

	job := func(trigger time.Time) {
		snap, err := s.runner.Run(ctx, s.request)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.log().Warn("scheduled batch skipped, previous run still active", "trigger", trigger)
		case err != nil:
			s.log().Error("scheduled batch rejected", "trigger", trigger, "error", err)
		default:
			s.log().Info("scheduled batch finished", "trigger", trigger, "run_id", snap.ID, "status", snap.State.Status)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}
