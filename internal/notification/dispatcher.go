package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sapliy/status-relay/pkg/observability"
)

var (
	ErrQueueFull         = errors.New("dispatch queue is full")
	ErrDispatcherStopped = errors.New("dispatcher is stopped")
)

// Processor executes one notification task.
type Processor interface {
	Process(ctx context.Context, taskID string, n *StatusNotification) error
}

// Task is one scheduled unit of background work.
type Task struct {
	ID           string
	Notification StatusNotification
	EnqueuedAt   time.Time
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// SendTimeout bounds a single task. Zero means no bound.
	SendTimeout time.Duration
}

// Dispatcher runs notification tasks in the background, detached from the
// request that scheduled them.
type Dispatcher struct {
	processor Processor
	log       *observability.Logger
	cfg       DispatcherConfig

	queue   chan *Task
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(processor Processor, log *observability.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	log.Info("Initializing dispatcher",
		"workers", cfg.Workers,
		"queue_size", cfg.QueueSize,
		"send_timeout", cfg.SendTimeout.String())

	return &Dispatcher{
		processor: processor,
		log:       log,
		cfg:       cfg,
		queue:     make(chan *Task, cfg.QueueSize),
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info("Dispatcher workers started", "workers", d.cfg.Workers)
}

// Dispatch schedules n and returns the task id. It never blocks.
func (d *Dispatcher) Dispatch(n StatusNotification) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return "", ErrDispatcherStopped
	}

	task := &Task{
		ID:           uuid.NewString(),
		Notification: n,
		EnqueuedAt:   time.Now(),
	}

	select {
	case d.queue <- task:
		QueueDepth.Set(float64(len(d.queue)))
		return task.ID, nil
	default:
		TasksDropped.WithLabelValues("queue_full").Inc()
		return "", ErrQueueFull
	}
}

// Len returns the number of tasks waiting to be picked up.
func (d *Dispatcher) Len() int {
	return len(d.queue)
}

// Stop rejects new tasks, lets the workers drain what is already queued and
// waits for them until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.log.Info("Stopping dispatcher", "pending", len(d.queue))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		d.log.Warn("Dispatcher shutdown timeout, some tasks may not have been processed", "pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for task := range d.queue {
		QueueDepth.Set(float64(len(d.queue)))
		d.run(id, task)
	}
}

func (d *Dispatcher) run(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in notification task recovered",
				"task_id", task.ID,
				"worker", workerID,
				"panic", fmt.Sprint(r))
			TasksDropped.WithLabelValues("panic").Inc()
		}
	}()

	ctx := context.Background()
	if d.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
	}

	d.log.Debug("Processing task",
		"task_id", task.ID,
		"worker", workerID,
		"queued_for", time.Since(task.EnqueuedAt).String())

	if err := d.processor.Process(ctx, task.ID, &task.Notification); err != nil {
		d.log.Warn("Notification task failed", "task_id", task.ID, "error", err)
	}
}
