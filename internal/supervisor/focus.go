package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/tapclick/internal/executor"
	"github.com/jmylchreest/tapclick/internal/metrics"
)

// FocusChange is an audio focus notification from the OS.
type FocusChange int

const (
	FocusGain FocusChange = iota
	FocusLoss
	FocusLossTransient
	FocusLossTransientCanDuck
)

func (c FocusChange) String() string {
	switch c {
	case FocusGain:
		return "gain"
	case FocusLoss:
		return "loss"
	case FocusLossTransient:
		return "loss-transient"
	case FocusLossTransientCanDuck:
		return "loss-transient-can-duck"
	default:
		return fmt.Sprintf("FocusChange(%d)", int(c))
	}
}

// target returns the state a change moves the arbiter to.
func (c FocusChange) target() FocusState {
	switch c {
	case FocusGain:
		return FocusGranted
	case FocusLossTransient, FocusLossTransientCanDuck:
		return FocusLostTransient
	default:
		return FocusLostPermanent
	}
}

// FocusProvider requests and abandons OS audio focus.
type FocusProvider interface {
	// Request asks for focus and registers onChange for later notifications,
	// which may arrive on any goroutine, even before Request returns.
	Request(onChange func(FocusChange)) (granted bool, err error)

	// Abandon gives focus up and stops notifications.
	Abandon() error
}

// FocusArbiter owns the focus state. Notifications are re-dispatched onto
// the executor and applied there, in arrival order.
type FocusArbiter struct {
	exec   executor.Executor
	logger *slog.Logger

	mu       sync.Mutex
	begun    bool
	detached bool
	backlog  []queuedChange

	// seq numbers notifications; readiness is restored only by the latest.
	seq uint64

	// state is confined to the executor after Begin.
	state FocusState

	published atomic.Int32
	ready     atomic.Bool

	onApply func(prev, next FocusState)
}

// NewFocusArbiter creates an arbiter. onApply runs on the executor after each
// applied change.
func NewFocusArbiter(exec executor.Executor, onApply func(prev, next FocusState), logger *slog.Logger) *FocusArbiter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &FocusArbiter{
		exec:    exec,
		logger:  logger,
		state:   FocusLostPermanent,
		onApply: onApply,
	}
	a.published.Store(int32(FocusLostPermanent))
	return a
}

type queuedChange struct {
	change FocusChange
	seq    uint64
}

// Notify receives a focus change on any goroutine. Changes that arrive
// before Begin are held and replayed after the initial state is set. A loss
// withdraws readiness immediately, and readiness stays withdrawn until the
// newest notification has been applied, so an older gain still in the
// queue cannot restore it.
func (a *FocusArbiter) Notify(change FocusChange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detached {
		return
	}
	a.seq++
	qc := queuedChange{change: change, seq: a.seq}
	if change != FocusGain {
		a.ready.Store(false)
	}
	if !a.begun {
		a.backlog = append(a.backlog, qc)
		return
	}
	if !a.exec.Submit("focus-change", func() { a.apply(qc) }) {
		a.logger.Debug("focus change dropped, executor stopping", "change", change)
	}
}

// Begin sets the initial state from the result of the focus request and
// replays any early notifications on the executor.
func (a *FocusArbiter) Begin(granted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.begun {
		return
	}
	a.begun = true

	initial := FocusLostPermanent
	if granted {
		initial = FocusGranted
	}
	a.state = initial
	a.published.Store(int32(initial))
	a.ready.Store(granted && len(a.backlog) == 0)

	backlog := a.backlog
	a.backlog = nil
	if len(backlog) == 0 {
		return
	}
	a.exec.Submit("focus-replay", func() {
		for _, qc := range backlog {
			a.apply(qc)
		}
	})
}

// apply runs on the executor.
func (a *FocusArbiter) apply(qc queuedChange) {
	change := qc.change

	a.mu.Lock()
	if a.detached {
		a.mu.Unlock()
		return
	}
	prev := a.state
	next := change.target()
	a.state = next
	a.published.Store(int32(next))
	a.ready.Store(next == FocusGranted && qc.seq == a.seq)
	a.mu.Unlock()

	metrics.FocusTransitionsTotal.WithLabelValues(next.String()).Inc()

	a.logger.Debug("focus changed", "change", change, "from", prev, "to", next)
	if a.onApply != nil {
		a.onApply(prev, next)
	}
}

// Ready reports whether triggers may play. Safe from any goroutine.
func (a *FocusArbiter) Ready() bool {
	return a.ready.Load()
}

// State returns the last published focus state. Safe from any goroutine.
func (a *FocusArbiter) State() FocusState {
	return FocusState(a.published.Load())
}

// Detach stops processing notifications, including ones already queued.
func (a *FocusArbiter) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detached = true
	a.backlog = nil
	a.ready.Store(false)
}

// StaticFocus is a FocusProvider with a fixed answer. Emit simulates OS
// notifications.
type StaticFocus struct {
	mu        sync.Mutex
	granted   bool
	err       error
	onChange  func(FocusChange)
	requests  int
	abandoned bool
}

// NewStaticFocus creates a provider that grants focus iff granted.
func NewStaticFocus(granted bool) *StaticFocus {
	return &StaticFocus{granted: granted}
}

// FailRequests makes Request return err.
func (f *StaticFocus) FailRequests(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Request implements FocusProvider.
func (f *StaticFocus) Request(onChange func(FocusChange)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.err != nil {
		return false, f.err
	}
	f.onChange = onChange
	f.abandoned = false
	return f.granted, nil
}

// Abandon implements FocusProvider.
func (f *StaticFocus) Abandon() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = nil
	f.abandoned = true
	return nil
}

// Emit delivers change to the registered callback, if any.
func (f *StaticFocus) Emit(change FocusChange) {
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb(change)
	}
}

// Abandoned reports whether Abandon was called after the last Request.
func (f *StaticFocus) Abandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandoned
}

// Requests returns how many times Request was called.
func (f *StaticFocus) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}
