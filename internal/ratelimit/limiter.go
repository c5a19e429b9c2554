// Package ratelimit enforces per-class outbound send budgets over fixed
// time windows.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
	"github.com/capitalize-ai/dispatch-core/pkg/metrics"
)

// Class is an outbound message class with its own budget.
type Class string

const (
	ClassText        Class = "text"
	ClassInteractive Class = "interactive"
	ClassTemplate    Class = "template"
)

// Budget is the number of sends allowed per window.
type Budget struct {
	Limit  int
	Window time.Duration
}

// DefaultBudgets returns the gateway's documented per-minute budgets.
func DefaultBudgets() map[Class]Budget {
	return map[Class]Budget{
		ClassText:        {Limit: 80, Window: time.Minute},
		ClassInteractive: {Limit: 20, Window: time.Minute},
		ClassTemplate:    {Limit: 10, Window: time.Minute},
	}
}

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.now = c }
}

// WithLogger sets the logger used to report accounting failures.
func WithLogger(log *logger.Logger) Option {
	return func(l *Limiter) { l.logger = log }
}

// WithCounter replaces the window counter for one class.
func WithCounter(class Class, counter httprate.LimitCounter) Option {
	return func(l *Limiter) { l.counters[class] = counter }
}

// Limiter counts sends per class in fixed windows. Counters default to
// httprate's in-memory counter, whose keys resolve windows to whole seconds,
// so windows shorter than a second are not supported. A restart resets every
// budget.
type Limiter struct {
	mu       sync.Mutex
	budgets  map[Class]Budget
	counters map[Class]httprate.LimitCounter
	now      Clock
	logger   *logger.Logger
}

// New creates a Limiter for the given budgets. Classes without a budget are
// never limited.
func New(budgets map[Class]Budget, opts ...Option) *Limiter {
	l := &Limiter{
		budgets:  make(map[Class]Budget, len(budgets)),
		counters: make(map[Class]httprate.LimitCounter, len(budgets)),
		now:      time.Now,
		logger:   logger.Global(),
	}
	for class, b := range budgets {
		if b.Limit <= 0 || b.Window <= 0 {
			continue
		}
		l.budgets[class] = b
	}
	for _, opt := range opts {
		opt(l)
	}
	for class, b := range l.budgets {
		if _, ok := l.counters[class]; !ok {
			l.counters[class] = httprate.NewRateLimiter(b.Limit, b.Window).Counter()
		}
	}
	return l
}

// TryAcquire takes one unit of the class budget for the current window and
// reports whether the send may proceed. A full window is left untouched.
// Accounting failures allow the send.
func (l *Limiter) TryAcquire(class Class) (allowed bool) {
	budget, ok := l.budgets[class]
	if !ok {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("rate limiter panicked, allowing send",
				zap.String("class", string(class)),
				zap.Any("panic", r),
			)
			allowed = true
		}
	}()

	// The window is computed under the lock so concurrent callers never
	// observe counters from a window the clock has already left.
	l.mu.Lock()
	defer l.mu.Unlock()

	window := Bucket(l.now(), budget.Window)
	counter := l.counters[class]
	key := string(class)

	count, _, err := counter.Get(key, window, window.Add(-budget.Window))
	if err != nil {
		l.failOpen(class, fmt.Errorf("read counter: %w", err))
		return true
	}
	if count >= budget.Limit {
		metrics.RateLimitRejections.WithLabelValues(key).Inc()
		return false
	}
	if err := counter.Increment(key, window); err != nil {
		l.failOpen(class, fmt.Errorf("increment counter: %w", err))
		return true
	}
	return true
}

// Remaining returns the unused budget of the current window.
func (l *Limiter) Remaining(class Class) int {
	budget, ok := l.budgets[class]
	if !ok {
		return -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	window := Bucket(l.now(), budget.Window)
	count, _, err := l.counters[class].Get(string(class), window, window.Add(-budget.Window))
	if err != nil {
		return budget.Limit
	}
	if count >= budget.Limit {
		return 0
	}
	return budget.Limit - count
}

func (l *Limiter) failOpen(class Class, err error) {
	l.logger.Warn("rate limiter bookkeeping failed, allowing send",
		zap.String("class", string(class)),
		zap.Error(err),
	)
}

// Bucket returns the start of the window containing t: floor(t / window).
func Bucket(t time.Time, window time.Duration) time.Time {
	w := window.Nanoseconds()
	n := t.UnixNano()
	start := n - n%w
	if n < 0 && n%w != 0 {
		start -= w
	}
	return time.Unix(0, start).UTC()
}
