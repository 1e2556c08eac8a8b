// Package enginetest provides an in-memory engine.Handle for tests.
package enginetest

import (
	"sync"
	"sync/atomic"
	"time"
)

// Operation names recorded by Fake.
const (
	OpStart         = "start"
	OpStop          = "stop"
	OpPlay          = "play"
	OpBackgroundOn  = "background:on"
	OpBackgroundOff = "background:off"
)

// Op is one recorded engine call.
type Op struct {
	Name string
	At   time.Time
}

// Fake records engine calls and lets tests script Start results and health.
// It also detects overlapping calls, which would mean two goroutines drove
// the engine at once.
type Fake struct {
	mu  sync.Mutex
	now func() time.Time

	ops          []Op
	startResults []bool
	defaultStart bool

	running    bool
	healthy    bool
	background bool

	healthChecks atomic.Int64
	inFlight     atomic.Int32
	overlaps     atomic.Int32

	// StartHook, when set, runs inside Start before the result is applied.
	StartHook func()

	// BackgroundHook, when set, runs inside SetBackgroundAudioEnabled.
	BackgroundHook func(enabled bool)
}

// New creates a fake whose Start succeeds by default. now stamps recorded
// operations; nil means time.Now.
func New(now func() time.Time) *Fake {
	if now == nil {
		now = time.Now
	}
	return &Fake{now: now, defaultStart: true}
}

func (f *Fake) enter() {
	if f.inFlight.Add(1) > 1 {
		f.overlaps.Add(1)
	}
}

func (f *Fake) exit() { f.inFlight.Add(-1) }

func (f *Fake) record(name string) {
	f.mu.Lock()
	f.ops = append(f.ops, Op{Name: name, At: f.now()})
	f.mu.Unlock()
}

// Start pops the next scripted result, or the default.
func (f *Fake) Start() bool {
	f.enter()
	defer f.exit()
	f.record(OpStart)

	if hook := f.StartHook; hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.defaultStart
	if len(f.startResults) > 0 {
		ok = f.startResults[0]
		f.startResults = f.startResults[1:]
	}
	f.running = ok
	f.healthy = ok
	return ok
}

// Stop marks the engine stopped and unhealthy.
func (f *Fake) Stop() {
	f.enter()
	defer f.exit()
	f.record(OpStop)

	f.mu.Lock()
	f.running = false
	f.healthy = false
	f.mu.Unlock()
}

// PlayTrigger records a click.
func (f *Fake) PlayTrigger() {
	f.enter()
	defer f.exit()
	f.record(OpPlay)
}

// SetBackgroundAudioEnabled records the toggle.
func (f *Fake) SetBackgroundAudioEnabled(enabled bool) {
	f.enter()
	defer f.exit()
	if enabled {
		f.record(OpBackgroundOn)
	} else {
		f.record(OpBackgroundOff)
	}
	f.mu.Lock()
	f.background = enabled
	f.mu.Unlock()

	if hook := f.BackgroundHook; hook != nil {
		hook(enabled)
	}
}

// IsHealthy returns the scripted health. Not recorded as an operation.
func (f *Fake) IsHealthy() bool {
	f.healthChecks.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

// QueueStartResults scripts the results of the next Start calls.
func (f *Fake) QueueStartResults(results ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startResults = append(f.startResults, results...)
}

// SetDefaultStartResult sets the result once scripted results run out.
func (f *Fake) SetDefaultStartResult(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultStart = ok
}

// SetHealthy overrides the reported health, simulating a stream failure.
func (f *Fake) SetHealthy(healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = healthy
}

// Ops returns a copy of the recorded operations.
func (f *Fake) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Op(nil), f.ops...)
}

// OpNames returns the recorded operation names in order.
func (f *Fake) OpNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.ops))
	for i, op := range f.ops {
		names[i] = op.Name
	}
	return names
}

// Count returns how many times name was recorded.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// ResetOps clears the recorded operations.
func (f *Fake) ResetOps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

// Running reports whether the last Start succeeded and no Stop followed.
func (f *Fake) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Background reports the last background toggle.
func (f *Fake) Background() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.background
}

// HealthChecks returns how many times IsHealthy was called.
func (f *Fake) HealthChecks() int {
	return int(f.healthChecks.Load())
}

// Overlaps returns how many engine calls started while another was running.
func (f *Fake) Overlaps() int {
	return int(f.overlaps.Load())
}
