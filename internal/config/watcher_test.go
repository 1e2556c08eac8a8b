package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tapclickd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timing]\ndebounce = \"50ms\"\n"), 0644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	got := make(chan *Config, 4)
	w.SetChangeCallback(func(c *Config) { got <- c })
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("[timing]\ndebounce = \"90ms\"\n"), 0644))

	select {
	case cfg := <-got:
		assert.Equal(t, 90*time.Millisecond, cfg.Timing.Debounce.Duration())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcher_IgnoresInvalidAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tapclickd.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	got := make(chan *Config, 4)
	w.SetChangeCallback(func(c *Config) { got <- c })
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("[timing]\ndebounce = \"-5ms\"\n"), 0644))

	select {
	case <-got:
		t.Fatal("callback fired for invalid or unrelated file")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "tapclickd.toml"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_StartFailureReleasesWatcher(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "tapclickd.toml"), nil)
	require.NoError(t, err)

	assert.Error(t, w.Start())
	// The failed start leaves nothing running to stop.
	assert.NoError(t, w.Stop())
	assert.Error(t, w.Start(), "a failed watcher does not report a silent success")
}

func TestWatcher_NoRestartAfterStop(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "tapclickd.toml"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	assert.Error(t, w.Start())
}
