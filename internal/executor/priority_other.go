//go:build !linux

package executor

import "log/slog"

func raisePriority(logger *slog.Logger, _, _ int) {
	logger.Debug("thread priority not supported on this platform")
}
