// Package supervisor keeps one low-latency audio output stream alive and
// guards the trigger path against focus changes, stream failures and
// concurrent callers.
//
// Every engine call and every state transition runs on a single executor.
// Other goroutines only submit work or read published snapshots; the debounce
// gate is the one piece of state they modify.
package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/tapclick/internal/config"
	"github.com/jmylchreest/tapclick/internal/engine"
	"github.com/jmylchreest/tapclick/internal/executor"
	"github.com/jmylchreest/tapclick/internal/metrics"
)

var (
	// ErrAlreadyStarted is returned by Start on a second call.
	ErrAlreadyStarted = errors.New("supervisor already started")

	// ErrNotRunning is delivered by Shutdown when the supervisor was already
	// shut down, and returned by Start after shutdown.
	ErrNotRunning = errors.New("supervisor not running")
)

// Rejection reasons reported in Status.LastRejection.
const (
	RejectFocus     = "focus"
	RejectUnhealthy = "unhealthy"
	RejectDebounced = "debounced"
	RejectStopped   = "stopped"
)

// Config holds the supervisor timing and behaviour.
type Config struct {
	Debounce            time.Duration
	HealthCheckInterval time.Duration
	Quiescence          time.Duration
	DrainTimeout        time.Duration
	Retry               RetryPolicy

	// BackgroundAudio enables the background track while focus is held.
	BackgroundAudio bool
}

// DefaultConfig returns the default supervisor settings.
func DefaultConfig() Config {
	return Config{
		Debounce:            50 * time.Millisecond,
		HealthCheckInterval: 500 * time.Millisecond,
		Quiescence:          100 * time.Millisecond,
		DrainTimeout:        500 * time.Millisecond,
		Retry:               DefaultRetryPolicy(),
		BackgroundAudio:     true,
	}
}

// FromConfig maps the daemon configuration onto supervisor settings.
func FromConfig(c *config.Config) Config {
	return Config{
		Debounce:            c.Timing.Debounce.Duration(),
		HealthCheckInterval: c.Timing.HealthCheckInterval.Duration(),
		Quiescence:          c.Timing.Quiescence.Duration(),
		DrainTimeout:        c.Timing.DrainTimeout.Duration(),
		Retry: RetryPolicy{
			Interval:    c.Timing.RetryInterval.Duration(),
			MaxAttempts: c.Timing.RetryMaxAttempts,
		},
		BackgroundAudio: c.Audio.BackgroundEnabled,
	}
}

// Dependencies are the collaborators a Supervisor drives.
type Dependencies struct {
	Engine engine.Handle
	Focus  FocusProvider

	// Executor runs every engine call. Nil creates a CommandThread with the
	// default thread settings. If it has a Start method, Start calls it.
	Executor executor.Executor

	// Clock supplies trigger times for TriggerNow and the quiescence sleep.
	// Nil means the system clock.
	Clock executor.Clock

	Logger *slog.Logger
}

// TriggerEvent describes an accepted trigger.
type TriggerEvent struct {
	ID ulid.ULID
	At time.Time
}

// FeedbackHook is called on the triggering goroutine after a trigger is
// accepted. It must not block.
type FeedbackHook func(TriggerEvent)

// Supervisor is the lifecycle controller.
type Supervisor struct {
	cfg    Config
	engine engine.Handle
	focus  FocusProvider
	exec   executor.Executor
	clock  executor.Clock
	logger *slog.Logger

	gate     *DebounceGate
	arbiter  *FocusArbiter
	watchdog *Watchdog
	retry    *RetryController
	recovery *recovery

	mu      sync.Mutex
	started bool
	torn    atomic.Bool

	// Written only on the executor.
	engineState atomic.Int32
	healthy     atomic.Bool

	hook atomic.Pointer[FeedbackHook]

	accepted      atomic.Uint64
	rejected      atomic.Uint64
	lastTrigger   atomic.Int64
	lastRejection atomic.Pointer[string]
}

// New creates a supervisor. Nothing runs until Start.
func New(cfg Config, deps Dependencies) (*Supervisor, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Focus == nil {
		return nil, fmt.Errorf("focus provider is required")
	}
	if cfg.HealthCheckInterval <= 0 {
		return nil, fmt.Errorf("health check interval must be positive, got %s", cfg.HealthCheckInterval)
	}
	if cfg.Retry.Interval <= 0 {
		return nil, fmt.Errorf("retry interval must be positive, got %s", cfg.Retry.Interval)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = executor.SystemClock{}
	}
	exec := deps.Executor
	if exec == nil {
		exec = executor.NewCommandThread(executor.DefaultThreadConfig(), logger)
	}

	s := &Supervisor{
		cfg:    cfg,
		engine: deps.Engine,
		focus:  deps.Focus,
		exec:   exec,
		clock:  clock,
		logger: logger,
		gate:   NewDebounceGate(cfg.Debounce, clock.Now()),
	}
	s.engineState.Store(int32(EngineStopped))

	s.arbiter = NewFocusArbiter(exec, s.onFocusApplied, logger.With("component", "focus"))
	s.recovery = &recovery{
		engine:     deps.Engine,
		exec:       exec,
		clock:      clock,
		quiescence: cfg.Quiescence,
		logger:     logger.With("component", "recovery"),
		probe:      s.probe,
		start:      s.startEngine,
		stopped:    s.engineStopped,
		failed:     s.engineFailed,
		live:       func() bool { return !s.torn.Load() },
	}
	s.watchdog = NewWatchdog(exec, cfg.HealthCheckInterval, s.probe, s.recovery.restart, logger.With("component", "watchdog"))
	s.retry = NewRetryController(exec, cfg.Retry, s.startEngine, s.engineRunning, logger.With("component", "retry"))

	return s, nil
}

// Start requests focus, then enqueues the first start attempt and the first
// watchdog tick.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.torn.Load() {
		return ErrNotRunning
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	if starter, ok := s.exec.(interface{ Start() }); ok {
		starter.Start()
	}

	granted, err := s.focus.Request(s.arbiter.Notify)
	if err != nil {
		s.logger.Warn("audio focus request failed", "error", err)
		granted = false
	}
	s.arbiter.Begin(granted)
	s.logger.Info("supervisor starting", "focus", s.arbiter.State())

	s.retry.Begin()
	s.watchdog.Begin()
	return nil
}

// Trigger asks to play a click at now. It returns true only if the click was
// accepted; it never blocks on the engine. A trigger the executor refuses
// does not consume the debounce window.
func (s *Supervisor) Trigger(now time.Time) bool {
	if s.torn.Load() {
		s.reject(RejectStopped, metrics.ResultStopped)
		return false
	}

	if !s.arbiter.Ready() || !s.healthy.Load() {
		reason := RejectUnhealthy
		if !s.arbiter.Ready() {
			reason = RejectFocus
		}
		s.reject(reason, metrics.ResultNotReady)
		s.logger.Debug("trigger refused", "reason", reason)
		s.recovery.ensureHealthy()
		return false
	}

	prev, ok := s.gate.acquire(now)
	if !ok {
		s.reject(RejectDebounced, metrics.ResultDebounced)
		return false
	}

	if !s.exec.Submit("play-trigger", s.engine.PlayTrigger) {
		// Never played, so it must not hold the window.
		s.gate.release(now, prev)
		s.reject(RejectStopped, metrics.ResultStopped)
		return false
	}

	s.accepted.Add(1)
	s.lastTrigger.Store(now.UnixNano())
	metrics.TriggersTotal.WithLabelValues(metrics.ResultAccepted).Inc()

	if hook := s.hook.Load(); hook != nil {
		(*hook)(TriggerEvent{ID: ulid.Make(), At: now})
	}
	return true
}

// TriggerNow is Trigger at the supervisor clock's current time.
func (s *Supervisor) TriggerNow() bool {
	return s.Trigger(s.clock.Now())
}

func (s *Supervisor) reject(reason, result string) {
	s.rejected.Add(1)
	s.lastRejection.Store(&reason)
	metrics.TriggersTotal.WithLabelValues(result).Inc()
}

// EnsureHealthy queues an immediate health check and restart if needed.
// Safe from any goroutine.
func (s *Supervisor) EnsureHealthy() {
	if s.torn.Load() {
		return
	}
	s.recovery.ensureHealthy()
}

// SetFeedbackHook sets the hook called for accepted triggers. Nil clears it.
func (s *Supervisor) SetFeedbackHook(hook FeedbackHook) {
	if hook == nil {
		s.hook.Store(nil)
		return
	}
	s.hook.Store(&hook)
}

// SetDebounceInterval changes the debounce window for later triggers.
func (s *Supervisor) SetDebounceInterval(d time.Duration) {
	s.gate.SetInterval(d)
	s.logger.Info("debounce interval changed", "interval", d)
}

// Shutdown tears the supervisor down without blocking the caller. The
// returned channel receives the executor drain result, which is
// executor.ErrDrainTimeout if the final stop did not finish in time.
func (s *Supervisor) Shutdown() <-chan error {
	result := make(chan error, 1)

	s.mu.Lock()
	if s.torn.Load() {
		s.mu.Unlock()
		result <- ErrNotRunning
		return result
	}
	s.torn.Store(true)
	started := s.started
	s.mu.Unlock()

	s.watchdog.Cancel()
	s.retry.Deactivate()

	s.hook.Store(nil)
	s.arbiter.Detach()

	if started {
		if err := s.focus.Abandon(); err != nil {
			s.logger.Warn("failed to abandon audio focus", "error", err)
		}
	}

	s.exec.Submit("final-stop", func() {
		s.engine.Stop()
		s.engineStopped()
	})

	go func() {
		err := s.exec.Stop(s.cfg.DrainTimeout)
		if err != nil {
			s.logger.Warn("shutdown did not drain cleanly", "timeout", s.cfg.DrainTimeout, "error", err)
		} else {
			s.logger.Info("supervisor stopped")
		}
		result <- err
	}()
	return result
}

// probe checks health on the executor and publishes the result.
func (s *Supervisor) probe() bool {
	ok := s.engine.IsHealthy()
	s.healthy.Store(ok)
	metrics.SetHealthy(ok)
	if ok {
		s.engineState.Store(int32(EngineRunning))
	} else if EngineState(s.engineState.Load()) == EngineRunning {
		s.engineState.Store(int32(EngineUnhealthy))
	}
	return ok
}

// startEngine runs on the executor.
func (s *Supervisor) startEngine() bool {
	s.engineState.Store(int32(EngineStarting))
	ok := s.engine.Start()

	s.healthy.Store(ok)
	metrics.SetHealthy(ok)
	if !ok {
		s.engineState.Store(int32(EngineUnhealthy))
		return false
	}
	s.engineState.Store(int32(EngineRunning))

	if s.cfg.BackgroundAudio && s.arbiter.State() == FocusGranted {
		s.engine.SetBackgroundAudioEnabled(true)
	}
	return true
}

func (s *Supervisor) engineRunning() bool {
	return EngineState(s.engineState.Load()) == EngineRunning && s.engine.IsHealthy()
}

func (s *Supervisor) engineStopped() {
	s.engineState.Store(int32(EngineStopped))
	s.healthy.Store(false)
	metrics.SetHealthy(false)
}

func (s *Supervisor) engineFailed() {
	s.engineState.Store(int32(EngineUnhealthy))
	s.healthy.Store(false)
	metrics.SetHealthy(false)
}

// onFocusApplied runs on the executor after each focus change.
func (s *Supervisor) onFocusApplied(_, next FocusState) {
	if next != FocusGranted {
		s.engine.SetBackgroundAudioEnabled(false)
		return
	}
	if s.cfg.BackgroundAudio {
		s.engine.SetBackgroundAudioEnabled(true)
	}
	s.recovery.ensureHealthy()
}
