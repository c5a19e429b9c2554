// Package task runs fire-and-forget work after a delay, outliving the
// request that scheduled it.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/metrics"
)

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("executor closed")

// Func is a unit of deferred work.
type Func func(ctx context.Context) error

// Executor schedules deferred functions on their own goroutines.
type Executor struct {
	logger *logger.Logger
	after  func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	stop   chan struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimer replaces time.After, letting tests fire delays immediately.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(e *Executor) { e.after = after }
}

// NewExecutor creates an Executor.
func NewExecutor(log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger: log.Named("task"),
		after:  time.After,
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schedule runs fn after delay. The context handed to fn keeps ctx's values
// but not its cancellation, so a finished request does not abort the task.
// Pending tasks are dropped when Close is called before their delay expires.
func (e *Executor) Schedule(ctx context.Context, name string, delay time.Duration, fn Func) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	detached := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		if delay > 0 {
			select {
			case <-e.after(delay):
			case <-e.stop:
				metrics.DeferredTasks.WithLabelValues(name, "dropped").Inc()
				return
			}
		}
		e.run(detached, name, fn)
	}()
	return nil
}

func (e *Executor) run(ctx context.Context, name string, fn Func) {
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			e.logger.Error("deferred task panicked", zap.String("task", name), zap.Any("panic", r))
		}
		metrics.DeferredTasks.WithLabelValues(name, status).Inc()
	}()

	if err := fn(ctx); err != nil {
		status = "error"
		e.logger.Warn("deferred task failed", zap.String("task", name), zap.Error(err))
	}
}

// Wait blocks until every scheduled task has finished or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for deferred tasks: %w", ctx.Err())
	}
}

// Close rejects further scheduling and drops tasks still waiting on their
// delay. Tasks already running are not interrupted; use Wait to drain them.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.stop)
}
