// Package executor provides the single-owner command queue that serializes
// every operation against the audio engine.
//
// Two implementations share the Executor contract: CommandThread runs tasks on
// one goroutine locked to an OS thread with raised scheduling priority, and
// Manual runs them synchronously against a virtual clock for tests.
package executor

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jmylchreest/tapclick/internal/metrics"
)

var (
	// ErrStopped is returned by Stop when the executor was already stopped.
	ErrStopped = errors.New("executor stopped")

	// ErrDrainTimeout is returned by Stop when queued work did not finish in time.
	ErrDrainTimeout = errors.New("executor drain timed out")
)

// Task is a unit of work run on the executor.
type Task func()

// Executor runs named tasks one at a time, in order.
//
// Immediate tasks run FIFO. Delayed tasks run no earlier than their delay,
// ordered by due time with ties broken by submission order.
type Executor interface {
	// Submit enqueues a task. Returns false once the executor is stopping.
	Submit(name string, task Task) bool

	// SubmitDelayed enqueues a task to run after delay.
	SubmitDelayed(name string, task Task, delay time.Duration) bool

	// Stop refuses new tasks, drains what is already due and waits up to
	// drainTimeout for the queue to finish.
	Stop(drainTimeout time.Duration) error
}

// Clock abstracts wall time for code that runs on an executor.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// runTask invokes task, recovering and logging a panic.
func runTask(logger *slog.Logger, name string, task Task) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			metrics.TaskPanicsTotal.WithLabelValues(name).Inc()
			logger.Error("task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
	return false
}
