package supervisor

import (
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/tapclick/internal/engine"
	"github.com/jmylchreest/tapclick/internal/executor"
	"github.com/jmylchreest/tapclick/internal/metrics"
)

// Restart origins.
const (
	originWatchdog = "watchdog"
	originRecovery = "recovery"
)

// recovery owns the restart sequence shared by the watchdog and the
// on-demand path. Restarts only run on the executor, so at most one is in
// flight.
type recovery struct {
	engine     engine.Handle
	exec       executor.Executor
	clock      executor.Clock
	quiescence time.Duration
	logger     *slog.Logger

	probe   func() bool
	start   func() bool
	stopped func()
	failed  func()
	live    func() bool

	queued   atomic.Bool
	restarts atomic.Uint64
}

// restart stops the stream, waits for the quiescence delay and starts it
// again. Runs on the executor.
func (r *recovery) restart(origin string) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("restart failed", "origin", origin, "panic", p, "stack", string(debug.Stack()))
			r.failed()
			ok = false
		}
		r.restarts.Add(1)
		metrics.RestartsTotal.WithLabelValues(origin, metrics.Outcome(ok)).Inc()
	}()

	r.logger.Info("restarting output stream", "origin", origin)
	r.engine.Stop()
	r.stopped()
	r.clock.Sleep(r.quiescence)
	ok = r.start()
	if !ok {
		r.logger.Warn("output stream restart failed", "origin", origin)
	}
	return ok
}

// ensureHealthy queues one health check and, if needed, a restart. Calls
// made while one is already queued are coalesced. Safe from any goroutine.
func (r *recovery) ensureHealthy() {
	if !r.queued.CompareAndSwap(false, true) {
		return
	}
	if !r.exec.Submit("ensure-healthy", r.reconcile) {
		r.queued.Store(false)
	}
}

func (r *recovery) reconcile() {
	r.queued.Store(false)
	if !r.live() {
		return
	}
	if r.probe() {
		return
	}
	r.restart(originRecovery)
}
