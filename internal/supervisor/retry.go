package supervisor

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/tapclick/internal/executor"
	"github.com/jmylchreest/tapclick/internal/metrics"
)

// RetryPolicy controls the initial start attempts.
type RetryPolicy struct {
	// Interval is the wait after a failed attempt.
	Interval time.Duration

	// MaxAttempts caps the attempts. 0 retries until success or shutdown.
	MaxAttempts int
}

// DefaultRetryPolicy retries every five seconds without limit.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 5 * time.Second}
}

// RetryController keeps attempting the first engine start on the executor
// until one succeeds or it is deactivated.
type RetryController struct {
	exec   executor.Executor
	policy RetryPolicy
	logger *slog.Logger

	start   func() bool
	running func() bool

	active   atomic.Bool
	attempts atomic.Uint64
}

// NewRetryController creates a controller. start runs one attempt; running
// reports whether the stream is already up, in which case an attempt is
// skipped. Both run on the executor.
func NewRetryController(exec executor.Executor, policy RetryPolicy, start func() bool, running func() bool, logger *slog.Logger) *RetryController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryController{
		exec:    exec,
		policy:  policy,
		logger:  logger,
		start:   start,
		running: running,
	}
}

// Begin activates the controller and enqueues the first attempt.
func (r *RetryController) Begin() {
	r.active.Store(true)
	r.exec.Submit("attempt-start", r.attemptStart)
}

// Deactivate stops further attempts. An attempt already running completes.
func (r *RetryController) Deactivate() {
	r.active.Store(false)
}

// Active reports whether attempts are still scheduled.
func (r *RetryController) Active() bool {
	return r.active.Load()
}

// Attempts returns how many start attempts were made.
func (r *RetryController) Attempts() uint64 {
	return r.attempts.Load()
}

func (r *RetryController) attemptStart() {
	if !r.active.Load() {
		return
	}
	if r.running != nil && r.running() {
		r.logger.Debug("output stream already running, start attempt skipped")
		r.active.Store(false)
		return
	}

	n := r.attempts.Add(1)
	ok := r.start()
	metrics.StartAttemptsTotal.WithLabelValues(metrics.Outcome(ok)).Inc()
	if ok {
		r.logger.Info("output stream started", "attempt", n)
		r.active.Store(false)
		return
	}

	if r.policy.MaxAttempts > 0 && n >= uint64(r.policy.MaxAttempts) {
		r.logger.Error("giving up starting output stream", "attempts", n)
		r.active.Store(false)
		return
	}

	if !r.active.Load() {
		return
	}
	r.logger.Warn("failed to start output stream, retrying", "attempt", n, "retry_in", r.policy.Interval)
	r.exec.SubmitDelayed("attempt-start", r.attemptStart, r.policy.Interval)
}
