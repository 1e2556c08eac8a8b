package executor

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jmylchreest/tapclick/internal/metrics"
)

// ThreadConfig configures a CommandThread.
type ThreadConfig struct {
	// Name identifies the thread in logs.
	Name string

	// Realtime requests SCHED_FIFO at RTPriority, falling back to Nice.
	Realtime   bool
	RTPriority int
	Nice       int
}

// DefaultThreadConfig returns the settings used by the daemon.
func DefaultThreadConfig() ThreadConfig {
	return ThreadConfig{
		Name:       "audio-command",
		Realtime:   true,
		RTPriority: 10,
		Nice:       -19,
	}
}

// CommandThread is an Executor backed by a single goroutine locked to its
// own OS thread.
type CommandThread struct {
	mu     sync.Mutex
	cfg    ThreadConfig
	logger *slog.Logger

	queue taskQueue
	seq   uint64

	running  bool
	stopping bool
	cutoff   time.Time

	wake   chan struct{}
	doneCh chan struct{}
}

// NewCommandThread creates a command thread. Tasks may be submitted before
// Start; they run once the thread is started.
func NewCommandThread(cfg ThreadConfig, logger *slog.Logger) *CommandThread {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = DefaultThreadConfig().Name
	}
	return &CommandThread{
		cfg:    cfg,
		logger: logger.With("thread", cfg.Name),
		wake:   make(chan struct{}, 1),
		doneCh: make(chan struct{}),
	}
}

// Start launches the thread and returns once it is ready to run tasks.
func (t *CommandThread) Start() {
	t.mu.Lock()
	if t.running || t.stopping {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	ready := make(chan struct{})
	go t.loop(ready)
	<-ready
}

// Submit enqueues task to run after every task already due.
func (t *CommandThread) Submit(name string, task Task) bool {
	return t.enqueue(name, task, 0)
}

// SubmitDelayed enqueues task to run no earlier than delay from now.
func (t *CommandThread) SubmitDelayed(name string, task Task, delay time.Duration) bool {
	if delay < 0 {
		delay = 0
	}
	return t.enqueue(name, task, delay)
}

func (t *CommandThread) enqueue(name string, task Task, delay time.Duration) bool {
	if task == nil {
		return false
	}

	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		t.logger.Debug("task refused, thread stopping", "task", name)
		return false
	}
	t.seq++
	t.queue.push(&entry{
		name: name,
		task: task,
		due:  time.Now().Add(delay),
		seq:  t.seq,
	})
	metrics.QueueDepth.Set(float64(t.queue.Len()))
	t.mu.Unlock()

	t.signal()
	return true
}

func (t *CommandThread) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Stop refuses new tasks and lets the thread finish the in-flight task, every
// queued task and every delayed task already due. Delayed tasks not yet due are
// discarded. A drainTimeout <= 0 waits without bound. On timeout the thread is
// abandoned and ErrDrainTimeout is returned.
func (t *CommandThread) Stop(drainTimeout time.Duration) error {
	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		return ErrStopped
	}
	t.stopping = true
	t.cutoff = time.Now()
	dropped := t.queue.dropAfter(t.cutoff)
	pending := t.queue.Len()
	running := t.running
	if !running {
		t.queue = nil
	}
	metrics.QueueDepth.Set(float64(t.queue.Len()))
	t.mu.Unlock()

	t.logger.Debug("command thread stopping", "pending", pending, "discarded", dropped)
	if !running {
		return nil
	}
	t.signal()

	if drainTimeout <= 0 {
		<-t.doneCh
		return nil
	}

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-t.doneCh:
		t.logger.Debug("command thread stopped")
		return nil
	case <-timer.C:
		metrics.DrainTimeoutsTotal.Inc()
		t.logger.Warn("command thread did not drain in time", "timeout", drainTimeout)
		return ErrDrainTimeout
	}
}

// Done is closed when the thread loop has exited.
func (t *CommandThread) Done() <-chan struct{} {
	return t.doneCh
}

func (t *CommandThread) loop(ready chan<- struct{}) {
	runtime.LockOSThread()
	defer close(t.doneCh)

	if t.cfg.Realtime {
		raisePriority(t.logger, t.cfg.RTPriority, t.cfg.Nice)
	}
	close(ready)

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		e, wait, done := t.next()
		if done {
			return
		}
		if e != nil {
			runTask(t.logger, e.name, e.task)
			continue
		}

		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-t.wake:
			case <-timer.C:
			}
			timer.Stop()
		} else {
			<-t.wake
		}
	}
}

// next pops the next runnable entry. When nothing is runnable it returns how
// long to wait (0 meaning until woken), or done once a stopping queue is empty.
func (t *CommandThread) next() (e *entry, wait time.Duration, done bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	head := t.queue.peek()
	if head == nil {
		return nil, 0, t.stopping
	}
	if t.stopping && head.due.After(t.cutoff) {
		return nil, 0, true
	}

	now := time.Now()
	if head.due.After(now) {
		return nil, head.due.Sub(now), false
	}

	e = t.queue.pop()
	metrics.QueueDepth.Set(float64(t.queue.Len()))
	return e, 0, false
}
