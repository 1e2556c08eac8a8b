package engine

import (
	"sync/atomic"
	"time"
)

// heartbeat is a silent, endless streamer that records when the speaker last
// pulled samples from it. A stalled output device stops pulling.
type heartbeat struct {
	now  func() time.Time
	last atomic.Int64
}

func newHeartbeat(now func() time.Time) *heartbeat {
	h := &heartbeat{now: now}
	h.last.Store(now().UnixNano())
	return h
}

// Stream implements beep.Streamer.
func (h *heartbeat) Stream(samples [][2]float64) (int, bool) {
	h.last.Store(h.now().UnixNano())
	clear(samples)
	return len(samples), true
}

// Err implements beep.Streamer.
func (h *heartbeat) Err() error { return nil }

// lastPull returns when the stream was last read.
func (h *heartbeat) lastPull() time.Time {
	return time.Unix(0, h.last.Load())
}

// alive reports whether the stream was read within threshold of now.
func (h *heartbeat) alive(threshold time.Duration) bool {
	return h.now().Sub(h.lastPull()) <= threshold
}
