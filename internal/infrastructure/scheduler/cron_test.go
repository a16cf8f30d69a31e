package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerNext(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	s := NewCronScheduler("0 9 * * *", seoul, nil)
	require.NoError(t, s.Validate())

	from := time.Date(2026, 3, 2, 10, 0, 0, 0, seoul)
	next, err := s.Next(from)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2026, 3, 3, 9, 0, 0, 0, seoul)), "got %s", next)
}

func TestCronSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every tuesday", time.UTC, nil)
	assert.Error(t, s.Validate())
	assert.Error(t, s.Start(context.Background(), func(time.Time) {}))
}

func TestCronSchedulerFiresAndStops(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewCronScheduler("@every 1s", time.UTC, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx, func(time.Time) { fired.Add(1) }))
	assert.ErrorIs(t, s.Start(ctx, func(time.Time) {}), errAlreadyStarted)

	require.Eventually(t, func() bool { return fired.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
