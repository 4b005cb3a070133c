// Package runtime implements the single-threaded cooperative executor
// described in spec §5: a single logical task queue that serializes the
// Controller's state mutations (event ingress, scanner ticks, bucket
// writes, display/charging callbacks). Threshold reloads from the settings
// file are not queued here: internal/settings swaps them atomically from
// the watcher goroutine. It generalizes the teacher's per-stage
// worker-pool channels (internal/pipeline's urlQueue/extractionQueue)
// collapsed to exactly one worker, since §5 requires serialization rather
// than parallel fan-out.
package runtime

import (
	"errors"
	"sync"
)

// ErrBacklogFull is returned by Submit when the task queue's bounded
// backlog is saturated, matching the teacher's non-blocking
// Acquire/slot-channel backpressure pattern (internal/resources.Manager)
// rather than blocking the submitting goroutine.
var ErrBacklogFull = errors.New("runtime: executor backlog full")

// Executor drains one buffered channel of closures on a single goroutine,
// giving every submitted task the ordering and atomicity guarantees spec §5
// calls for.
type Executor struct {
	tasks chan func()

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewExecutor creates an Executor with the given bounded backlog capacity.
func NewExecutor(backlog int) *Executor {
	if backlog <= 0 {
		backlog = 256
	}
	return &Executor{tasks: make(chan func(), backlog), done: make(chan struct{})}
}

// Start begins draining the task queue on its own goroutine. Idempotent.
func (e *Executor) Start() {
	e.startOnce.Do(func() {
		go e.loop()
	})
}

func (e *Executor) loop() {
	defer close(e.done)
	for fn := range e.tasks {
		fn()
	}
}

// Submit enqueues fn without blocking the caller. Returns ErrBacklogFull if
// the backlog is saturated.
func (e *Executor) Submit(fn func()) error {
	select {
	case e.tasks <- fn:
		return nil
	default:
		return ErrBacklogFull
	}
}

// SubmitSync enqueues fn and blocks the caller until it has run, for
// queries that must return a value computed on the executor's thread
// (spec §5: "external observers obtain snapshots by posting a query to the
// queue").
func (e *Executor) SubmitSync(fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case e.tasks <- wrapped:
	default:
		return ErrBacklogFull
	}
	<-done
	return nil
}

// Stop closes the task queue and waits for the drain goroutine to exit. Any
// tasks still queued at the time of Stop are run before it returns.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		close(e.tasks)
	})
	<-e.done
}
