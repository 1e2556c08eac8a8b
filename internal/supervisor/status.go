package supervisor

import "time"

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	Engine           EngineState   `json:"engine" yaml:"engine"`
	Focus            FocusState    `json:"focus" yaml:"focus"`
	Watchdog         WatchdogState `json:"watchdog" yaml:"watchdog"`
	Healthy          bool          `json:"healthy" yaml:"healthy"`
	Running          bool          `json:"running" yaml:"running"`
	Retrying         bool          `json:"retrying" yaml:"retrying"`
	TriggersAccepted uint64        `json:"triggers_accepted" yaml:"triggers_accepted"`
	TriggersRejected uint64        `json:"triggers_rejected" yaml:"triggers_rejected"`
	Restarts         uint64        `json:"restarts" yaml:"restarts"`
	StartAttempts    uint64        `json:"start_attempts" yaml:"start_attempts"`
	HealthChecks     uint64        `json:"health_checks" yaml:"health_checks"`
	DebounceMillis   int64         `json:"debounce_ms" yaml:"debounce_ms"`
	LastTrigger      *time.Time    `json:"last_trigger,omitempty" yaml:"last_trigger,omitempty"`
	LastRejection    string        `json:"last_rejection,omitempty" yaml:"last_rejection,omitempty"`
}

// Status returns a snapshot built from published values. Safe from any
// goroutine.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	st := Status{
		Engine:           EngineState(s.engineState.Load()),
		Focus:            s.arbiter.State(),
		Watchdog:         s.watchdog.State(),
		Healthy:          s.healthy.Load(),
		Running:          started && !s.torn.Load(),
		Retrying:         s.retry.Active(),
		TriggersAccepted: s.accepted.Load(),
		TriggersRejected: s.rejected.Load(),
		Restarts:         s.recovery.restarts.Load(),
		StartAttempts:    s.retry.Attempts(),
		HealthChecks:     s.watchdog.Ticks(),
		DebounceMillis:   s.gate.Interval().Milliseconds(),
	}
	if ns := s.lastTrigger.Load(); ns != 0 {
		t := time.Unix(0, ns)
		st.LastTrigger = &t
	}
	if r := s.lastRejection.Load(); r != nil {
		st.LastRejection = *r
	}
	return st
}

// Ready reports whether a trigger would currently pass the focus and health
// checks.
func (s *Supervisor) Ready() bool {
	return !s.torn.Load() && s.arbiter.Ready() && s.healthy.Load()
}
