package supervisor

import (
	"math"
	"sync/atomic"
	"time"
)

const never = math.MinInt64

// DebounceGate accepts a trigger only when more than Interval has passed
// since the last accepted one. Safe for concurrent use without locks.
type DebounceGate struct {
	epoch    time.Time
	interval atomic.Int64
	last     atomic.Int64 // nanoseconds since epoch, or never
}

// NewDebounceGate creates a gate. Times passed to Accept are measured from
// epoch, which should come from the same clock.
func NewDebounceGate(interval time.Duration, epoch time.Time) *DebounceGate {
	g := &DebounceGate{epoch: epoch}
	g.interval.Store(int64(max(interval, 0)))
	g.last.Store(never)
	return g
}

// Accept returns true and records now iff now - last > interval. A rejected
// call changes nothing. The recorded time never decreases.
func (g *DebounceGate) Accept(now time.Time) bool {
	_, ok := g.acquire(now)
	return ok
}

// acquire is Accept that also returns the record it replaced, for release.
func (g *DebounceGate) acquire(now time.Time) (int64, bool) {
	at := int64(now.Sub(g.epoch))
	interval := g.interval.Load()

	for {
		last := g.last.Load()
		if last != never && at-last <= interval {
			return 0, false
		}
		if g.last.CompareAndSwap(last, at) {
			return last, true
		}
	}
}

// release undoes an acquire at now whose trigger was never dispatched. It is
// a no-op once a later trigger has been accepted.
func (g *DebounceGate) release(now time.Time, prev int64) {
	g.last.CompareAndSwap(int64(now.Sub(g.epoch)), prev)
}

// SetInterval changes the window for subsequent calls.
func (g *DebounceGate) SetInterval(interval time.Duration) {
	g.interval.Store(int64(max(interval, 0)))
}

// Interval returns the current window.
func (g *DebounceGate) Interval() time.Duration {
	return time.Duration(g.interval.Load())
}

// LastAccepted returns the last accepted time, if any.
func (g *DebounceGate) LastAccepted() (time.Time, bool) {
	last := g.last.Load()
	if last == never {
		return time.Time{}, false
	}
	return g.epoch.Add(time.Duration(last)), true
}
