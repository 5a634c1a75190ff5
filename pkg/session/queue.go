package session

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned for tasks submitted after the queue stopped.
var ErrStopped = errors.New("task queue stopped")

// TaskQueue runs tasks one at a time, in submission order, on its own
// goroutine. A task never starts before the previous one has returned.
type TaskQueue struct {
	tasks   chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewTaskQueue starts a queue holding up to size pending tasks.
func NewTaskQueue(size int) *TaskQueue {
	q := &TaskQueue{
		tasks:   make(chan func(), size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *TaskQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			return
		case fn := <-q.tasks:
			fn()
		}
	}
}

// Post queues fn without waiting for it. It reports false once the queue
// has stopped.
func (q *TaskQueue) Post(fn func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.tasks <- fn:
		return true
	case <-q.done:
		return false
	}
}

// Do queues fn and waits for its result. Calling Do from inside a task
// deadlocks.
func (q *TaskQueue) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !q.Post(func() { result <- fn() }) {
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Stop discards pending tasks and waits for the running one to finish.
func (q *TaskQueue) Stop() {
	q.once.Do(func() { close(q.done) })
	<-q.stopped
}
