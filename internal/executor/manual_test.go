package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_NothingRunsUntilDriven(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	m.Submit("task", func() { ran = true })

	assert.False(t, ran)
	assert.Equal(t, 1, m.Pending())
	assert.Equal(t, 1, m.RunPending())
	assert.True(t, ran)
}

func TestManual_AdvanceRunsInDueOrder(t *testing.T) {
	m := NewManual(epoch)

	var got []string
	var at []time.Duration
	rec := func(s string) Task {
		return func() {
			got = append(got, s)
			at = append(at, m.Now().Sub(epoch))
		}
	}

	m.SubmitDelayed("b", rec("b"), 200*time.Millisecond)
	m.SubmitDelayed("a", rec("a"), 100*time.Millisecond)
	m.SubmitDelayed("a2", rec("a2"), 100*time.Millisecond)
	m.Submit("now", rec("now"))

	assert.Equal(t, 3, m.Advance(150*time.Millisecond))
	assert.Equal(t, []string{"now", "a", "a2"}, got)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 100 * time.Millisecond}, at)
	assert.Equal(t, 150*time.Millisecond, m.Now().Sub(epoch))

	assert.Equal(t, 1, m.Advance(time.Second))
	assert.Equal(t, "b", got[3])
}

func TestManual_SleepAdvancesClockOnly(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.Submit("sleeper", func() {
		order = append(order, "sleep-start")
		m.Sleep(100 * time.Millisecond)
		order = append(order, "sleep-end")
	})
	m.SubmitDelayed("delayed", func() { order = append(order, "delayed") }, 50*time.Millisecond)

	// The clock moved past the delayed task while the sleeper held the thread,
	// so it runs right after the sleeper finishes.
	assert.Equal(t, 2, m.RunPending())
	assert.Equal(t, []string{"sleep-start", "sleep-end", "delayed"}, order)
	assert.Equal(t, 100*time.Millisecond, m.Now().Sub(epoch))
}

func TestManual_NestedSubmissionRuns(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var resubmit Task
	resubmit = func() {
		count++
		if count < 3 {
			m.Submit("again", resubmit)
		}
	}
	m.Submit("first", resubmit)

	assert.Equal(t, 3, m.RunPending())
	assert.Equal(t, 3, count)
}

func TestManual_SelfReschedulingTicks(t *testing.T) {
	m := NewManual(epoch)
	ticks := 0
	var tick Task
	tick = func() {
		ticks++
		m.SubmitDelayed("tick", tick, 500*time.Millisecond)
	}
	m.Submit("tick", tick)

	m.Advance(2 * time.Second)
	assert.Equal(t, 5, ticks)
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(epoch)
	var ranDue, ranFuture bool
	m.Submit("due", func() { ranDue = true })
	m.SubmitDelayed("future", func() { ranFuture = true }, time.Second)

	require.NoError(t, m.Stop(0))
	assert.True(t, ranDue)
	assert.False(t, ranFuture)
	assert.Equal(t, 0, m.Pending())
	assert.True(t, m.Stopped())

	assert.False(t, m.Submit("late", func() {}))
	assert.ErrorIs(t, m.Stop(0), ErrStopped)
}

func TestManual_PanicRecovered(t *testing.T) {
	m := NewManual(epoch)
	after := false
	m.Submit("boom", func() { panic("boom") })
	m.Submit("after", func() { after = true })

	assert.Equal(t, 2, m.RunPending())
	assert.True(t, after)
}
