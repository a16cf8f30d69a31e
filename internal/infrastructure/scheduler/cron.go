package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ReviewPublisher/internal/ports"
)

var errAlreadyStarted = errors.New("cron scheduler already started")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronScheduler fires a job on a cron expression in a fixed location.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for a five-field cron expression or a
// descriptor such as "@daily" or "@every 1h".
func NewCronScheduler(spec string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.Local
	}
	return &CronScheduler{spec: spec, location: location, logger: logger}
}

// Validate reports whether the expression parses.
func (c *CronScheduler) Validate() error {
	if _, err := parser.Parse(c.spec); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	return nil
}

// Next returns the first activation strictly after from.
func (c *CronScheduler) Next(from time.Time) (time.Time, error) {
	schedule, err := parser.Parse(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}
	return schedule.Next(from.In(c.location)), nil
}

// Start registers job and begins firing. The scheduler stops on its own
// when ctx is cancelled.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return errAlreadyStarted
	}

	runner := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(c.location),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("add cron job %q: %w", c.spec, err)
	}
	runner.Start()
	c.cron = runner
	c.debug("cron started", "spec", c.spec, "location", c.location.String())

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the schedule and waits for a running job until ctx ends.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	done := runner.Stop()
	select {
	case <-done.Done():
		c.debug("cron stopped", "spec", c.spec)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

func (c *CronScheduler) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
