package executor

import (
	"log/slog"
	"sync"
	"time"
)

// Manual is a synchronous Executor and Clock driven by virtual time.
//
// Nothing runs until the test calls RunPending or Advance. Sleep moves the
// clock forward without running anything, the way a blocked thread would.
type Manual struct {
	mu     sync.Mutex
	logger *slog.Logger

	now   time.Time
	queue taskQueue
	seq   uint64

	stopped bool
}

// NewManual creates a Manual executor whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		logger: slog.Default(),
		now:    start,
	}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances the virtual clock by d.
func (m *Manual) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Submit enqueues task at the current virtual time.
func (m *Manual) Submit(name string, task Task) bool {
	return m.enqueue(name, task, 0)
}

// SubmitDelayed enqueues task to run delay after the current virtual time.
func (m *Manual) SubmitDelayed(name string, task Task, delay time.Duration) bool {
	if delay < 0 {
		delay = 0
	}
	return m.enqueue(name, task, delay)
}

func (m *Manual) enqueue(name string, task Task, delay time.Duration) bool {
	if task == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.seq++
	m.queue.push(&entry{name: name, task: task, due: m.now.Add(delay), seq: m.seq})
	return true
}

// RunPending runs every task due at the current virtual time, including tasks
// those tasks submit, and returns how many ran.
func (m *Manual) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		head := m.queue.peek()
		if head == nil || head.due.After(m.now) {
			m.mu.Unlock()
			return ran
		}
		e := m.queue.pop()
		m.mu.Unlock()

		runTask(m.logger, e.name, e.task)
		ran++
	}
}

// Advance moves the clock forward by d, running tasks in due order and
// setting the clock to each task's due time before it runs.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	ran := 0
	for {
		m.mu.Lock()
		limit := target
		if m.now.After(limit) {
			limit = m.now
		}
		head := m.queue.peek()
		if head == nil || head.due.After(limit) {
			m.now = limit
			m.mu.Unlock()
			return ran
		}
		e := m.queue.pop()
		if e.due.After(m.now) {
			m.now = e.due
		}
		m.mu.Unlock()

		runTask(m.logger, e.name, e.task)
		ran++
	}
}

// Stop refuses new tasks, runs the tasks already due and discards the rest.
func (m *Manual) Stop(time.Duration) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	m.stopped = true
	m.queue.dropAfter(m.now)
	m.mu.Unlock()

	m.RunPending()
	return nil
}

// Pending returns the number of queued tasks, delayed ones included.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Stopped reports whether Stop has been called.
func (m *Manual) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
