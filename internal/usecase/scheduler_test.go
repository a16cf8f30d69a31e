package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsConfiguredBatch(t *testing.T) {
	t.Parallel()

	var ran []string
	runner := NewRunner(RunnerDeps{Executor: executorFunc(func(_ context.Context, req WorkflowRequest) domain.WorkflowResult {
		ran = append(ran, req.Keyword)
		return succeed(req)
	})})

	driver := &manualDriver{}
	s := NewScheduler(driver, runner, BatchRequest{Keywords: []string{"a", "b"}}, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, domain.StatusCompleted, runner.Snapshot().State.Status)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerRequiresKeywords(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerDeps{Executor: executorFunc(func(_ context.Context, req WorkflowRequest) domain.WorkflowResult {
		return succeed(req)
	})})
	s := NewScheduler(&manualDriver{}, runner, BatchRequest{}, nil)
	assert.ErrorIs(t, s.Start(context.Background()), ErrNoKeywords)
}
