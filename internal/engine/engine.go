// Package engine defines the audio engine contract driven by the supervisor
// and a beep-backed implementation of it.
package engine

// Handle is the audio engine as seen by the supervisor. Every method is
// called from the command thread only, except IsHealthy which must also be
// safe and non-blocking from any goroutine.
type Handle interface {
	// Start opens the output stream and preloads sounds. It returns false on
	// any failure and may be retried.
	Start() bool

	// Stop closes the output stream. Safe to call when already stopped.
	Stop()

	// PlayTrigger starts one click. Returns immediately.
	PlayTrigger()

	// SetBackgroundAudioEnabled toggles the background track.
	SetBackgroundAudioEnabled(enabled bool)

	// IsHealthy reports whether the stream is open and being pulled.
	IsHealthy() bool
}
