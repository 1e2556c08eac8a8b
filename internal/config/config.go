// Package config handles tapclickd configuration loading, validation and
// hot reload.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the configuration for tapclickd.
// Loaded from ~/.config/tapclick/tapclickd.toml
type Config struct {
	Timing  TimingConfig  `toml:"timing"`
	Audio   AudioConfig   `toml:"audio"`
	Focus   FocusConfig   `toml:"focus"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

// TimingConfig contains the supervisor timing settings.
// Durations can be specified as "50ms", "5s", etc. or as integer milliseconds.
type TimingConfig struct {
	Debounce            Duration `toml:"debounce" envconfig:"debounce"`
	HealthCheckInterval Duration `toml:"health_check_interval" envconfig:"health_check_interval"`
	Quiescence          Duration `toml:"quiescence" envconfig:"quiescence"`
	RetryInterval       Duration `toml:"retry_interval" envconfig:"retry_interval"`
	RetryMaxAttempts    int      `toml:"retry_max_attempts" envconfig:"retry_max_attempts"` // 0 = unbounded
	DrainTimeout        Duration `toml:"drain_timeout" envconfig:"drain_timeout"`
}

// AudioConfig contains output stream and sound settings.
type AudioConfig struct {
	SampleRate          int      `toml:"sample_rate"`
	Buffer              Duration `toml:"buffer"`               // Speaker buffer length
	ClickSound          string   `toml:"click_sound"`          // WAV/OGG/MP3; empty = synthesized
	ClickFrequency      float64  `toml:"click_frequency"`      // Hz, synthesized click
	ClickLength         Duration `toml:"click_length"`         // Synthesized click length
	ClickVolume         int      `toml:"click_volume"`         // 0-100
	BackgroundEnabled   bool     `toml:"background_enabled"`   // Play background tone while focused
	BackgroundFrequency float64  `toml:"background_frequency"` // Hz
	BackgroundVolume    int      `toml:"background_volume"`    // 0-100
	StallThreshold      Duration `toml:"stall_threshold"`      // Unhealthy when the stream is not pulled for this long
}

// FocusConfig contains audio focus settings.
type FocusConfig struct {
	Provider   string `toml:"provider"`    // "dbus" or "static"
	WatchSleep bool   `toml:"watch_sleep"` // Treat logind sleep as transient focus loss
}

// MetricsConfig contains the metrics endpoint settings.
type MetricsConfig struct {
	Listen string `toml:"listen" envconfig:"listen"` // Empty disables the endpoint
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" envconfig:"level"` // debug, info, warn, error
}

// FocusProvider names a focus backend.
type FocusProvider string

const (
	FocusProviderDBus   FocusProvider = "dbus"
	FocusProviderStatic FocusProvider = "static"
)

// ValidFocusProviders returns all valid focus provider values.
func ValidFocusProviders() []FocusProvider {
	return []FocusProvider{FocusProviderDBus, FocusProviderStatic}
}

// ValidLogLevels returns all valid log level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timing: TimingConfig{
			Debounce:            Duration(50 * time.Millisecond),
			HealthCheckInterval: Duration(500 * time.Millisecond),
			Quiescence:          Duration(100 * time.Millisecond),
			RetryInterval:       Duration(5 * time.Second),
			RetryMaxAttempts:    0,
			DrainTimeout:        Duration(500 * time.Millisecond),
		},
		Audio: AudioConfig{
			SampleRate:          48000,
			Buffer:              Duration(10 * time.Millisecond),
			ClickFrequency:      1000,
			ClickLength:         Duration(15 * time.Millisecond),
			ClickVolume:         80,
			BackgroundEnabled:   true,
			BackgroundFrequency: 220,
			BackgroundVolume:    10,
			StallThreshold:      Duration(250 * time.Millisecond),
		},
		Focus: FocusConfig{
			Provider:   string(FocusProviderDBus),
			WatchSleep: true,
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the path to the daemon config file.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tapclick", "tapclickd.toml"), nil
}

// Load reads the configuration at path over the defaults, applies environment
// overrides and validates the result. An empty path means DefaultPath. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	t := c.Timing
	if t.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", t.Debounce.Duration())
	}
	if t.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive, got %s", t.HealthCheckInterval.Duration())
	}
	if t.Quiescence < 0 {
		return fmt.Errorf("quiescence must not be negative, got %s", t.Quiescence.Duration())
	}
	if t.RetryInterval <= 0 {
		return fmt.Errorf("retry_interval must be positive, got %s", t.RetryInterval.Duration())
	}
	if t.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry_max_attempts must not be negative, got %d", t.RetryMaxAttempts)
	}
	if t.DrainTimeout <= 0 {
		return fmt.Errorf("drain_timeout must be positive, got %s", t.DrainTimeout.Duration())
	}

	a := c.Audio
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", a.SampleRate)
	}
	if a.Buffer <= 0 {
		return fmt.Errorf("buffer must be positive, got %s", a.Buffer.Duration())
	}
	if a.ClickFrequency <= 0 || a.ClickFrequency >= float64(a.SampleRate)/2 {
		return fmt.Errorf("click_frequency must be between 0 and %d, got %g", a.SampleRate/2, a.ClickFrequency)
	}
	if a.ClickLength <= 0 {
		return fmt.Errorf("click_length must be positive, got %s", a.ClickLength.Duration())
	}
	if a.ClickVolume < 0 || a.ClickVolume > 100 {
		return fmt.Errorf("click_volume must be between 0 and 100, got %d", a.ClickVolume)
	}
	if a.BackgroundFrequency <= 0 || a.BackgroundFrequency >= float64(a.SampleRate)/2 {
		return fmt.Errorf("background_frequency must be between 0 and %d, got %g", a.SampleRate/2, a.BackgroundFrequency)
	}
	if a.BackgroundVolume < 0 || a.BackgroundVolume > 100 {
		return fmt.Errorf("background_volume must be between 0 and 100, got %d", a.BackgroundVolume)
	}
	if a.StallThreshold <= a.Buffer {
		return fmt.Errorf("stall_threshold must exceed buffer (%s), got %s", a.Buffer.Duration(), a.StallThreshold.Duration())
	}

	if !slices.Contains(ValidFocusProviders(), FocusProvider(c.Focus.Provider)) {
		return fmt.Errorf("invalid focus provider %q, must be one of: %v", c.Focus.Provider, ValidFocusProviders())
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level %q, must be one of: %v", c.Log.Level, ValidLogLevels())
	}

	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ClickSoundPath returns the click sound path with ~ expanded, or "" for
// the synthesized click.
func (a AudioConfig) ClickSoundPath() string {
	return ExpandPath(a.ClickSound)
}

// RestartRequired lists the settings that differ between c and next and only
// take effect after a daemon restart. Debounce, click volume and log level
// apply live and are not reported.
func (c *Config) RestartRequired(next *Config) []string {
	var changed []string

	ct, nt := c.Timing, next.Timing
	ct.Debounce, nt.Debounce = 0, 0
	if ct != nt {
		changed = append(changed, "timing")
	}

	ca, na := c.Audio, next.Audio
	ca.ClickVolume, na.ClickVolume = 0, 0
	if ca != na {
		changed = append(changed, "audio")
	}

	if c.Focus != next.Focus {
		changed = append(changed, "focus")
	}
	if c.Metrics != next.Metrics {
		changed = append(changed, "metrics")
	}

	return changed
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
