package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

type ctxKey struct{}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func never(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func TestSchedule_RunsAfterCallerCancels(t *testing.T) {
	e := NewExecutor(logger.NewNop(), WithTimer(immediate))

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "corr-1"))
	cancel()

	var (
		gotValue any
		gotErr   error
	)
	err := e.Schedule(ctx, "quick_reply", time.Second, func(ctx context.Context) error {
		gotValue = ctx.Value(ctxKey{})
		gotErr = ctx.Err()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, e.Wait(context.Background()))

	require.Equal(t, "corr-1", gotValue)
	require.NoError(t, gotErr)
}

func TestSchedule_ZeroDelay(t *testing.T) {
	e := NewExecutor(logger.NewNop(), WithTimer(never))

	var ran atomic.Bool
	require.NoError(t, e.Schedule(context.Background(), "now", 0, func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	require.NoError(t, e.Wait(context.Background()))
	require.True(t, ran.Load())
}

func TestSchedule_ErrorsAndPanicsAreContained(t *testing.T) {
	e := NewExecutor(logger.NewNop(), WithTimer(immediate))

	var after atomic.Int32
	require.NoError(t, e.Schedule(context.Background(), "fails", time.Millisecond, func(context.Context) error {
		return errors.New("gateway down")
	}))
	require.NoError(t, e.Schedule(context.Background(), "panics", time.Millisecond, func(context.Context) error {
		panic("boom")
	}))
	require.NoError(t, e.Schedule(context.Background(), "ok", time.Millisecond, func(context.Context) error {
		after.Add(1)
		return nil
	}))

	require.NoError(t, e.Wait(context.Background()))
	require.Equal(t, int32(1), after.Load())
}

func TestClose(t *testing.T) {
	e := NewExecutor(logger.NewNop(), WithTimer(never))

	var ran atomic.Bool
	require.NoError(t, e.Schedule(context.Background(), "pending", time.Hour, func(context.Context) error {
		ran.Store(true)
		return nil
	}))

	e.Close()
	e.Close()
	require.NoError(t, e.Wait(context.Background()))
	require.False(t, ran.Load())

	err := e.Schedule(context.Background(), "late", 0, func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}

func TestWait_Deadline(t *testing.T) {
	e := NewExecutor(logger.NewNop(), WithTimer(never))
	require.NoError(t, e.Schedule(context.Background(), "stuck", time.Hour, func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)

	e.Close()
	require.NoError(t, e.Wait(context.Background()))
}
