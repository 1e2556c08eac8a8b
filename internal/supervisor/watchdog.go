package supervisor

import (
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/tapclick/internal/executor"
)

// Watchdog periodically checks stream health on the executor and restarts
// the stream when it is unhealthy. It reschedules itself until cancelled.
type Watchdog struct {
	exec     executor.Executor
	interval time.Duration
	logger   *slog.Logger

	probe   func() bool
	restart func(origin string) bool

	cancelled atomic.Bool
	state     atomic.Int32
	ticks     atomic.Uint64
}

// NewWatchdog creates a watchdog. probe reports health; restart runs the
// stop, quiescence, start sequence. Both run on the executor.
func NewWatchdog(exec executor.Executor, interval time.Duration, probe func() bool, restart func(origin string) bool, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		exec:     exec,
		interval: interval,
		logger:   logger,
		probe:    probe,
		restart:  restart,
	}
}

// Begin schedules the first tick one interval from now.
func (w *Watchdog) Begin() {
	w.exec.SubmitDelayed("watchdog-tick", w.tick, w.interval)
}

// Cancel stops future ticks. A tick already running completes.
func (w *Watchdog) Cancel() {
	w.cancelled.Store(true)
}

// State returns the watchdog state. Safe from any goroutine.
func (w *Watchdog) State() WatchdogState {
	return WatchdogState(w.state.Load())
}

// Ticks returns how many ticks ran a health check.
func (w *Watchdog) Ticks() uint64 {
	return w.ticks.Load()
}

func (w *Watchdog) tick() {
	if w.cancelled.Load() {
		return
	}
	w.check()

	if w.cancelled.Load() {
		return
	}
	w.exec.SubmitDelayed("watchdog-tick", w.tick, w.interval)
}

func (w *Watchdog) check() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("health check failed", "panic", r, "stack", string(debug.Stack()))
		}
		w.state.Store(int32(WatchdogIdle))
	}()

	w.ticks.Add(1)
	w.state.Store(int32(WatchdogChecking))
	if w.probe() {
		return
	}

	w.logger.Warn("output stream unhealthy")
	w.state.Store(int32(WatchdogRestarting))
	w.restart(originWatchdog)
}
