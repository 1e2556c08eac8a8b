package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "TAPCLICK"

// ApplyEnv overlays TAPCLICK_TIMING_*, TAPCLICK_METRICS_* and TAPCLICK_LOG_*
// environment variables onto c. Unset variables leave values unchanged.
func (c *Config) ApplyEnv() error {
	sections := []struct {
		prefix string
		target any
	}{
		{EnvPrefix + "_TIMING", &c.Timing},
		{EnvPrefix + "_METRICS", &c.Metrics},
		{EnvPrefix + "_LOG", &c.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			return fmt.Errorf("failed to apply environment overrides: %w", err)
		}
	}
	return nil
}
