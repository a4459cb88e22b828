package router

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/log"
)

// ErrDispatcherClosed indicates work was submitted after Close.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher serializes message handling per session: each session id
// gets one worker goroutine draining a FIFO queue, so a session never
// processes two messages concurrently while different sessions run fully
// in parallel. Workers are created lazily and exit as soon as their
// queue drains.
type Dispatcher struct {
	mu      sync.Mutex
	workers map[uuid.UUID]*worker
	closed  bool
	wg      sync.WaitGroup
	logger  log.Logger
}

type worker struct {
	queue []*task
}

type task struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher(logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{workers: make(map[uuid.UUID]*worker), logger: logger}
}

// Do enqueues fn on sessionID's worker and blocks until it has run,
// returning fn's error. Tasks for one session run strictly in arrival
// order; a task whose context is already cancelled when its turn comes
// is skipped and reports the context error.
func (d *Dispatcher) Do(ctx context.Context, sessionID uuid.UUID, fn func(context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, result: make(chan error, 1)}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	w, ok := d.workers[sessionID]
	if !ok {
		w = &worker{}
		d.workers[sessionID] = w
		d.wg.Add(1)
		go d.run(sessionID, w)
	}
	w.queue = append(w.queue, t)
	d.mu.Unlock()

	return <-t.result
}

// run drains one session's queue and removes the worker once idle.
func (d *Dispatcher) run(sessionID uuid.UUID, w *worker) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(w.queue) == 0 {
			delete(d.workers, sessionID)
			d.mu.Unlock()
			return
		}
		t := w.queue[0]
		w.queue = w.queue[1:]
		d.mu.Unlock()

		if err := t.ctx.Err(); err != nil {
			t.result <- err
			continue
		}
		t.result <- d.runTask(t)
	}
}

// runTask executes one task, converting a panic into an error so a
// misbehaving handler cannot kill the session's worker.
func (d *Dispatcher) runTask(t *task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic in dispatched task", "panic", rec)
			err = errors.New("internal error while handling message")
		}
	}()
	return t.fn(t.ctx)
}

// Close rejects new work and waits for all queued tasks to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
