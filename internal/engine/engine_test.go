package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tapclick/internal/config"
)

func writeWAV(t *testing.T, path string, sr beep.SampleRate, d time.Duration) {
	t.Helper()
	tone, err := generators.SineTone(sr, 440)
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(sr.N(d), tone), format))
}

func TestDecodeSound_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "click.wav")
	writeWAV(t, path, 48000, 20*time.Millisecond)

	buf, err := decodeSound(path, 48000)
	require.NoError(t, err)
	assert.Equal(t, 960, buf.Len())
	assert.Equal(t, beep.SampleRate(48000), buf.Format().SampleRate)
}

func TestDecodeSound_Resamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "click.wav")
	writeWAV(t, path, 22050, 100*time.Millisecond)

	buf, err := decodeSound(path, 44100)
	require.NoError(t, err)
	assert.InDelta(t, 4410, buf.Len(), 50)
}

func TestDecodeSound_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := decodeSound(filepath.Join(dir, "missing.wav"), 48000)
	assert.Error(t, err)

	flac := filepath.Join(dir, "click.flac")
	require.NoError(t, os.WriteFile(flac, []byte("fLaC"), 0644))
	_, err = decodeSound(flac, 48000)
	assert.ErrorContains(t, err, "unsupported audio format")

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a wav file"), 0644))
	_, err = decodeSound(garbage, 48000)
	assert.Error(t, err)
}

func TestSynthesizeClick(t *testing.T) {
	buf, err := synthesizeClick(48000, 1000, 15*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 720, buf.Len())

	// The envelope fades to near silence by the last sample.
	s := buf.Streamer(buf.Len()-1, buf.Len())
	samples := make([][2]float64, 1)
	n, _ := s.Stream(samples)
	require.Equal(t, 1, n)
	assert.InDelta(t, 0, samples[0][0], 0.001)

	_, err = synthesizeClick(48000, 1000, 0)
	assert.Error(t, err)
}

func TestVolumeToExponent(t *testing.T) {
	assert.InDelta(t, 0, volumeToExponent(100), 1e-9)
	assert.InDelta(t, -1, volumeToExponent(50), 1e-9)
	assert.InDelta(t, -2, volumeToExponent(25), 1e-9)
	assert.Less(t, volumeToExponent(0), -5.0)
}

func TestHeartbeat(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	hb := newHeartbeat(clock)
	assert.True(t, hb.alive(100*time.Millisecond))

	now = now.Add(150 * time.Millisecond)
	assert.False(t, hb.alive(100*time.Millisecond))

	samples := [][2]float64{{1, 1}, {1, 1}}
	n, ok := hb.Stream(samples)
	assert.Equal(t, 2, n)
	assert.True(t, ok)
	assert.Equal(t, [][2]float64{{0, 0}, {0, 0}}, samples)
	assert.True(t, hb.alive(100*time.Millisecond))
	assert.True(t, now.Equal(hb.lastPull()))
}

func TestMixer_NotStarted(t *testing.T) {
	m := NewMixer(config.DefaultConfig().Audio, nil)

	assert.False(t, m.IsHealthy())
	assert.True(t, m.LastPull().IsZero())

	// Safe without an output stream.
	m.Stop()
	m.PlayTrigger()
	m.SetBackgroundAudioEnabled(true)
}

func TestMixer_SetClickVolumeClamps(t *testing.T) {
	m := NewMixer(config.DefaultConfig().Audio, nil)
	m.SetClickVolume(150)
	assert.Equal(t, int32(100), m.clickVolume.Load())
	m.SetClickVolume(-3)
	assert.Equal(t, int32(0), m.clickVolume.Load())
}

func TestMixer_StartFailsOnBadClickSound(t *testing.T) {
	cfg := config.DefaultConfig().Audio
	cfg.ClickSound = filepath.Join(t.TempDir(), "missing.wav")

	m := NewMixer(cfg, nil)
	assert.False(t, m.Start())
	assert.False(t, m.IsHealthy())
}
