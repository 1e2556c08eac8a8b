//go:build linux

package executor

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// raisePriority moves the calling OS thread to SCHED_FIFO, or failing that
// lowers its nice value. The caller must hold runtime.LockOSThread.
func raisePriority(logger *slog.Logger, rtPriority, nice int) {
	tid := unix.Gettid()

	attr := &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(rtPriority),
	}
	rtErr := unix.SchedSetAttr(tid, attr, 0)
	if rtErr == nil {
		logger.Debug("thread priority set", "tid", tid, "policy", "fifo", "priority", rtPriority)
		return
	}

	niceErr := unix.Setpriority(unix.PRIO_PROCESS, tid, nice)
	if niceErr == nil {
		logger.Debug("real-time priority unavailable, using nice", "tid", tid, "nice", nice, "error", rtErr)
		return
	}

	logger.Warn("failed to raise thread priority", "tid", tid, "fifo_error", rtErr, "nice_error", niceErr)
}
