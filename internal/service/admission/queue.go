// Package admission serializes calls to a rate-sensitive provider.
//
// A Queue runs submitted tasks one at a time in submission order and pauses
// between them: a fixed delay after a normal outcome, a longer cooldown after
// an outcome classified as rate limited. Each task's result goes back to the
// caller that submitted it. A failing task never stops the queue.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/repository"
	"MarketCast/pkg/logger"
)

const (
	DefaultDelay    = 4 * time.Second
	DefaultCooldown = 60 * time.Second
)

var ErrClosed = errors.New("admission queue closed")

// Task is one unit of admitted work. The context it receives is detached from
// the submitter's cancellation: once dequeued, a task runs to completion.
type Task func(ctx context.Context) (any, error)

// Handle resolves once the task has run.
type Handle struct {
	done  chan struct{}
	value any
	err   error
}

func newHandle() *Handle { return &Handle{done: make(chan struct{})} }

func (h *Handle) resolve(v any, err error) {
	h.value, h.err = v, err
	close(h.done)
}

// Done is closed when the outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task outcome is available or ctx ends. Giving up on the
// wait does not withdraw the task.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type entry struct {
	ctx      context.Context
	task     Task
	handle   *Handle
	enqueued time.Time
	retries  int
}

type Queue struct {
	name       string
	delay      time.Duration
	cooldown   time.Duration
	maxRetries int
	sleep      func(time.Duration)
	classify   func(error) models.Class
	metrics    repository.Metrics
	logger     *logger.Logger

	mu       sync.Mutex
	pending  []*entry
	draining bool
	closed   bool
}

type Option func(*Queue)

// WithDelay sets the pause after every non rate-limited outcome.
func WithDelay(d time.Duration) Option { return func(q *Queue) { q.delay = d } }

// WithCooldown sets the pause after a rate-limited outcome.
func WithCooldown(d time.Duration) Option { return func(q *Queue) { q.cooldown = d } }

// WithMaxRateLimitRetries sets how often a rate-limited task is re-run at the head
// of the queue after the cooldown. 0 reports the first 429 to the caller; a
// negative value retries without bound.
func WithMaxRateLimitRetries(n int) Option { return func(q *Queue) { q.maxRetries = n } }

// WithSleep replaces the pause implementation. Tests use it to observe pauses.
func WithSleep(fn func(time.Duration)) Option { return func(q *Queue) { q.sleep = fn } }

// WithClassifier replaces models.Classify.
func WithClassifier(fn func(error) models.Class) Option {
	return func(q *Queue) { q.classify = fn }
}

func WithMetrics(m repository.Metrics) Option { return func(q *Queue) { q.metrics = m } }

func WithLogger(l *logger.Logger) Option { return func(q *Queue) { q.logger = l } }

// New creates a queue. name labels the lane in logs and metrics.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name:     name,
		delay:    DefaultDelay,
		cooldown: DefaultCooldown,
		sleep:    time.Sleep,
		classify: models.Classify,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Name() string { return q.name }

// Len reports the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Submit appends task and returns immediately. If no drain loop is active one
// is started; otherwise the running loop picks the task up in order.
func (q *Queue) Submit(ctx context.Context, task Task) *Handle {
	h := newHandle()
	e := &entry{
		ctx:      context.WithoutCancel(ctx),
		task:     task,
		handle:   h,
		enqueued: time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		h.resolve(nil, ErrClosed)
		return h
	}
	q.pending = append(q.pending, e)
	depth := len(q.pending)
	start := !q.draining
	q.draining = true
	q.mu.Unlock()

	q.recordDepth(depth)
	if start {
		go q.drain()
	}
	return h
}

// Close refuses further submissions. Tasks already queued still run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		e := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		depth := len(q.pending)
		q.mu.Unlock()

		q.recordDepth(depth)
		if q.metrics != nil && e.retries == 0 {
			q.metrics.RecordQueueWait(q.name, time.Since(e.enqueued).Seconds())
		}

		value, err := q.run(e)
		limited := err != nil && q.classify(err) == models.ClassRateLimited

		if limited {
			if q.metrics != nil {
				q.metrics.RecordRateLimited(q.name)
			}
			if q.maxRetries < 0 || e.retries < q.maxRetries {
				e.retries++
				q.logger.Warn("rate limited, retrying after cooldown",
					logger.String("lane", q.name),
					logger.Int("retry", e.retries),
					logger.Duration("cooldown_ms", q.cooldown),
				)
				q.mu.Lock()
				q.pending = append([]*entry{e}, q.pending...)
				q.mu.Unlock()
				q.sleep(q.cooldown)
				continue
			}
			q.logger.Warn("rate limited, cooling down",
				logger.String("lane", q.name),
				logger.Duration("cooldown_ms", q.cooldown),
			)
		}

		e.handle.resolve(value, err)

		if limited {
			q.sleep(q.cooldown)
		} else {
			q.sleep(q.delay)
		}
	}
}

func (q *Queue) run(e *entry) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("admission task panicked: %v", r)
			q.logger.Error("task panic", logger.String("lane", q.name), logger.Error(err))
		}
	}()
	return e.task(e.ctx)
}

func (q *Queue) recordDepth(depth int) {
	if q.metrics != nil {
		q.metrics.RecordQueueDepth(q.name, depth)
	}
}

// Do submits fn and waits for its typed result.
func Do[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	h := q.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	var zero T
	v, err := h.Wait(ctx)
	if v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("admission: unexpected result type %T", v)
	}
	return t, err
}
