package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of queued background work.
type Task struct {
	ID         string
	Kind       string
	Payload    interface{}
	Attempt    int
	EnqueuedAt time.Time
}

// Handler processes a task. A non-nil error triggers a retry until the
// attempt budget is exhausted.
type Handler func(ctx context.Context, task Task) error

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the worker count.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithBuffer sets the queue buffer size.
func WithBuffer(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// WithRetries sets the retry budget and delay between attempts.
func WithRetries(max int, delay time.Duration) Option {
	return func(d *Dispatcher) {
		if max > 0 {
			d.maxRetries = max
		}
		if delay > 0 {
			d.retryDelay = delay
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher is an in-memory task queue backed by a goroutine pool.
// Delivery work that must not block the producer (notification sends,
// export generation) goes through here.
type Dispatcher struct {
	name    string
	handler Handler

	workers    int
	buffer     int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDispatcher builds a dispatcher with the provided handler.
func NewDispatcher(name string, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		name:       name,
		handler:    handler,
		workers:    1,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.buffer <= 0 {
		d.buffer = d.workers * 4
	}
	d.tasks = make(chan Task, d.buffer)
	return d
}

// Start begins worker consumption. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Info("dispatcher started",
		zap.String("dispatcher", d.name),
		zap.Int("workers", d.workers))
}

// Stop cancels workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped", zap.String("dispatcher", d.name))
}

// Enqueue pushes a task onto the queue, blocking while the buffer is full.
func (d *Dispatcher) Enqueue(task Task) error {
	d.mu.Lock()
	ctx := d.ctx
	started := d.started
	d.mu.Unlock()

	if !started {
		return fmt.Errorf("dispatcher %s not started", d.name)
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("dispatcher %s stopped: %w", d.name, ctx.Err())
	case d.tasks <- task:
		return nil
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case task := <-d.tasks:
			if err := d.handler(d.ctx, task); err != nil {
				d.retry(task, err)
			}
		}
	}
}

func (d *Dispatcher) retry(task Task, err error) {
	task.Attempt++
	if task.Attempt > d.maxRetries {
		d.logger.Error("task exceeded retries",
			zap.String("dispatcher", d.name),
			zap.String("task_id", task.ID),
			zap.String("kind", task.Kind),
			zap.Error(err))
		return
	}
	d.logger.Warn("task failed, retrying",
		zap.String("dispatcher", d.name),
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
		zap.Int("attempt", task.Attempt),
		zap.Error(err))

	go func(t Task) {
		timer := time.NewTimer(d.retryDelay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
			return
		case <-timer.C:
			if err := d.Enqueue(t); err != nil {
				d.logger.Error("failed to requeue task",
					zap.String("dispatcher", d.name),
					zap.String("task_id", t.ID),
					zap.Error(err))
			}
		}
	}(task)
}
