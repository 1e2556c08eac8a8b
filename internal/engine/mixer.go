package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/jmylchreest/tapclick/internal/config"
)

// The speaker output context can only be created once per process.
var speakerState struct {
	sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
}

func initSpeaker(sampleRate beep.SampleRate, bufferSize int) error {
	speakerState.Lock()
	defer speakerState.Unlock()

	if speakerState.initialized {
		if speakerState.sampleRate != sampleRate {
			return fmt.Errorf("speaker already running at %d Hz, cannot switch to %d Hz", speakerState.sampleRate, sampleRate)
		}
		if err := speaker.Resume(); err != nil {
			return fmt.Errorf("failed to resume speaker: %w", err)
		}
		return nil
	}

	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	speakerState.initialized = true
	speakerState.sampleRate = sampleRate
	return nil
}

// Mixer is a Handle that plays clicks and a background tone through the
// system speaker.
type Mixer struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	sampleRate     beep.SampleRate
	bufferSize     int
	clickPath      string
	clickFreq      float64
	clickLength    time.Duration
	bgFreq         float64
	bgVolume       int
	stallThreshold time.Duration

	clickVolume atomic.Int32

	click      *beep.Buffer
	background *beep.Ctrl
	started    bool

	hb atomic.Pointer[heartbeat]
}

// NewMixer creates a mixer from the audio configuration.
func NewMixer(cfg config.AudioConfig, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = slog.Default()
	}
	sr := beep.SampleRate(cfg.SampleRate)
	m := &Mixer{
		logger:         logger,
		now:            time.Now,
		sampleRate:     sr,
		bufferSize:     sr.N(cfg.Buffer.Duration()),
		clickPath:      cfg.ClickSoundPath(),
		clickFreq:      cfg.ClickFrequency,
		clickLength:    cfg.ClickLength.Duration(),
		bgFreq:         cfg.BackgroundFrequency,
		bgVolume:       cfg.BackgroundVolume,
		stallThreshold: cfg.StallThreshold.Duration(),
	}
	m.clickVolume.Store(int32(cfg.ClickVolume))
	return m
}

// SetClickVolume sets the click volume (0-100). Applies to the next click.
func (m *Mixer) SetClickVolume(volume int) {
	volume = max(0, min(100, volume))
	m.clickVolume.Store(int32(volume))
	m.logger.Debug("click volume set", "volume", volume)
}

// Start implements Handle.
func (m *Mixer) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return true
	}

	click, err := m.loadClick()
	if err != nil {
		m.logger.Warn("failed to prepare click sound", "path", m.clickPath, "error", err)
		return false
	}

	tone, err := generators.SineTone(m.sampleRate, m.bgFreq)
	if err != nil {
		m.logger.Warn("failed to create background tone", "frequency", m.bgFreq, "error", err)
		return false
	}

	if err := initSpeaker(m.sampleRate, m.bufferSize); err != nil {
		m.logger.Warn("failed to open output stream", "error", err)
		return false
	}

	hb := newHeartbeat(m.now)
	bg := &beep.Ctrl{Streamer: withVolume(tone, m.bgVolume), Paused: true}
	speaker.Play(hb, bg)

	m.click = click
	m.background = bg
	m.started = true
	m.hb.Store(hb)

	m.logger.Debug("output stream started", "sample_rate", m.sampleRate, "buffer_size", m.bufferSize)
	return true
}

func (m *Mixer) loadClick() (*beep.Buffer, error) {
	if m.click != nil {
		return m.click, nil
	}
	if m.clickPath != "" {
		return decodeSound(m.clickPath, m.sampleRate)
	}
	return synthesizeClick(m.sampleRate, m.clickFreq, m.clickLength)
}

// Stop implements Handle.
func (m *Mixer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.started = false
	m.hb.Store(nil)
	m.background = nil

	speaker.Clear()
	if err := speaker.Suspend(); err != nil {
		m.logger.Warn("failed to suspend output stream", "error", err)
	}
	m.logger.Debug("output stream stopped")
}

// PlayTrigger implements Handle.
func (m *Mixer) PlayTrigger() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.click == nil {
		m.logger.Debug("click dropped, stream not started")
		return
	}
	s := m.click.Streamer(0, m.click.Len())
	speaker.Play(withVolume(s, int(m.clickVolume.Load())))
}

// SetBackgroundAudioEnabled implements Handle.
func (m *Mixer) SetBackgroundAudioEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.background == nil {
		return
	}
	speaker.Lock()
	m.background.Paused = !enabled
	speaker.Unlock()
	m.logger.Debug("background audio toggled", "enabled", enabled)
}

// IsHealthy implements Handle. It never blocks.
func (m *Mixer) IsHealthy() bool {
	hb := m.hb.Load()
	if hb == nil {
		return false
	}
	return hb.alive(m.stallThreshold)
}

// LastPull returns when the output stream last read samples, or the zero
// time when stopped.
func (m *Mixer) LastPull() time.Time {
	hb := m.hb.Load()
	if hb == nil {
		return time.Time{}
	}
	return hb.lastPull()
}
