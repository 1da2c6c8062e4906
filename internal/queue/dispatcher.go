// Package queue serializes event handling per user: one FIFO lane per user
// ID, lanes created on demand and reaped when drained. Different users run
// in parallel; two tasks for the same user never overlap.
package queue

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Task is one unit of work bound to a user lane.
type Task struct {
	ID     string
	UserID string
	Run    func(ctx context.Context)
}

// Dispatcher owns the lanes. Zero value is not usable; use NewDispatcher.
type Dispatcher struct {
	lanes   map[string]*lane
	handler PanicHandler
	logger  *slog.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// lane is a single user's pending task list. A goroutine drains it while
// the lane exists; the lane is removed once empty.
type lane struct {
	pending *list.List
}

// NewDispatcher creates a dispatcher with the given panic handler.
// A nil handler falls back to logging.
func NewDispatcher(handler PanicHandler) *Dispatcher {
	if handler == nil {
		handler = NewLoggingPanicHandler()
	}
	return &Dispatcher{
		lanes:   make(map[string]*lane),
		handler: handler,
		logger:  slog.Default().With(slog.String("component", "queue.dispatcher")),
	}
}

// Enqueue adds a task to the user's lane, starting a drain goroutine if the
// lane is new. The task runs with the provided context.
func (d *Dispatcher) Enqueue(ctx context.Context, userID string, run func(ctx context.Context)) (string, error) {
	if run == nil {
		return "", fmt.Errorf("cannot enqueue nil task")
	}
	if userID == "" {
		return "", fmt.Errorf("cannot enqueue task without user ID")
	}

	task := Task{
		ID:     uuid.NewString(),
		UserID: userID,
		Run:    run,
	}

	d.mu.Lock()
	l, exists := d.lanes[userID]
	if !exists {
		l = &lane{pending: list.New()}
		d.lanes[userID] = l
	}
	l.pending.PushBack(task)
	d.wg.Add(1)
	if !exists {
		go d.drain(ctx, userID, l)
	}
	d.mu.Unlock()

	return task.ID, nil
}

// ActiveLanes returns the number of users with work in flight.
func (d *Dispatcher) ActiveLanes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

// Wait blocks until every enqueued task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// drain runs the lane's tasks in order until the lane is empty, then
// removes it.
func (d *Dispatcher) drain(ctx context.Context, userID string, l *lane) {
	for {
		d.mu.Lock()
		front := l.pending.Front()
		if front == nil {
			delete(d.lanes, userID)
			d.mu.Unlock()
			return
		}
		l.pending.Remove(front)
		d.mu.Unlock()

		task, ok := front.Value.(Task)
		if !ok {
			d.wg.Done()
			continue
		}
		d.runGuarded(ctx, task)
	}
}

// runGuarded executes one task under the panic guard, so a panicking
// handler never takes down the process or blocks the lane.
func (d *Dispatcher) runGuarded(ctx context.Context, task Task) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.handler.HandlePanic(ctx, task, r, stack())
		}
	}()

	d.logger.DebugContext(ctx, "Task starting",
		slog.String("task_id", task.ID),
		slog.String("user_id", task.UserID),
	)
	task.Run(ctx)
}
