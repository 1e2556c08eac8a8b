package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/tapclick/internal/executor"
)

func TestWatchdog_HealthyTicksOnly(t *testing.T) {
	m := executor.NewManual(epoch)
	restarts := 0
	w := NewWatchdog(m, 500*time.Millisecond,
		func() bool { return true },
		func(string) bool { restarts++; return true }, nil)

	w.Begin()
	m.Advance(2 * time.Second)

	assert.Equal(t, uint64(4), w.Ticks())
	assert.Equal(t, 0, restarts)
	assert.Equal(t, WatchdogIdle, w.State())
}

func TestWatchdog_RestartsWhenUnhealthyAndKeepsGoing(t *testing.T) {
	m := executor.NewManual(epoch)
	var states []WatchdogState
	var w *Watchdog
	w = NewWatchdog(m, 500*time.Millisecond,
		func() bool { return false },
		func(origin string) bool {
			assert.Equal(t, originWatchdog, origin)
			states = append(states, w.State())
			return false
		}, nil)

	w.Begin()
	m.Advance(1500 * time.Millisecond)

	// Failed restarts never stop the watchdog.
	assert.Len(t, states, 3)
	for _, s := range states {
		assert.Equal(t, WatchdogRestarting, s)
	}
	assert.Equal(t, WatchdogIdle, w.State())
	assert.Equal(t, 1, m.Pending())
}

func TestWatchdog_PanicReturnsToIdle(t *testing.T) {
	m := executor.NewManual(epoch)
	calls := 0
	w := NewWatchdog(m, 500*time.Millisecond,
		func() bool {
			calls++
			if calls == 1 {
				panic("driver exploded")
			}
			return true
		},
		func(string) bool { return true }, nil)

	w.Begin()
	m.Advance(time.Second)

	assert.Equal(t, 2, calls)
	assert.Equal(t, WatchdogIdle, w.State())
}

func TestWatchdog_CancelStopsRescheduling(t *testing.T) {
	m := executor.NewManual(epoch)
	w := NewWatchdog(m, 500*time.Millisecond,
		func() bool { return true },
		func(string) bool { return true }, nil)

	w.Begin()
	m.Advance(time.Second)
	w.Cancel()
	m.Advance(10 * time.Second)

	assert.Equal(t, uint64(2), w.Ticks())
	assert.Equal(t, 0, m.Pending())
}
