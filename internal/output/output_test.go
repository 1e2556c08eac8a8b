package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

func testStatus() supervisor.Status {
	last := time.Now().Add(-5 * time.Minute)
	return supervisor.Status{
		Engine:           supervisor.EngineRunning,
		Focus:            supervisor.FocusGranted,
		Watchdog:         supervisor.WatchdogIdle,
		Healthy:          true,
		Running:          true,
		TriggersAccepted: 1234,
		TriggersRejected: 5,
		Restarts:         2,
		HealthChecks:     90,
		DebounceMillis:   50,
		LastTrigger:      &last,
	}
}

func TestTextFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	err := NewTextFormatter(DefaultFormatterOptions()).Format(&buf, testStatus())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "engine:")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "granted")
	assert.Contains(t, out, "1,234 accepted, 5 rejected")
	assert.Contains(t, out, "50ms")
	assert.Contains(t, out, "5 minutes ago")
	assert.NotContains(t, out, "retrying")
	assert.NotContains(t, out, "last rejection")
}

func TestTextFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.Template = "{{.Engine}}/{{.Focus}} {{comma .TriggersAccepted}} {{upper .Watchdog.String}}"
	err := NewTextFormatter(opts).Format(&buf, testStatus())
	require.NoError(t, err)

	assert.Equal(t, "running/granted 1,234 IDLE", buf.String())
}

func TestTextFormatter_BadTemplate(t *testing.T) {
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Engine"

	err := NewTextFormatter(opts).Format(&bytes.Buffer{}, testStatus())
	assert.Error(t, err)
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	err := NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, testStatus())
	require.NoError(t, err)

	var result supervisor.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, supervisor.EngineRunning, result.Engine)
	assert.Equal(t, uint64(1234), result.TriggersAccepted)
	assert.Contains(t, buf.String(), "\n  \"engine\"")
}

func TestJSONFormatter_Compact(t *testing.T) {
	var buf bytes.Buffer

	err := NewJSONFormatter(FormatterOptions{Compact: true}).Format(&buf, testStatus())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	err := NewYAMLFormatter(DefaultFormatterOptions()).Format(&buf, testStatus())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "engine: running")
	assert.Contains(t, out, "focus: granted")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1234, decoded["triggers_accepted"])
}

func TestWaybarFromStatus(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*supervisor.Status)
		expected string
	}{
		{"ok", func(*supervisor.Status) {}, "ok"},
		{"stopped", func(s *supervisor.Status) { s.Running = false; s.Healthy = false }, "stopped"},
		{"unhealthy", func(s *supervisor.Status) { s.Healthy = false }, "unhealthy"},
		{"no focus", func(s *supervisor.Status) { s.Focus = supervisor.FocusLostTransient }, "no-focus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := testStatus()
			tt.mutate(&st)

			ws := WaybarFromStatus(st)
			assert.Equal(t, tt.expected, ws.Class)
			assert.Equal(t, tt.expected, ws.Alt)
			assert.Equal(t, "1,234", ws.Text)
			assert.Contains(t, ws.Tooltip, "restarts: 2")
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected FormatType
		wantErr  bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"waybar", FormatWaybar, false},
		{"dmenu", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	t.Run("text", func(t *testing.T) {
		_, ok := NewFormatter(FormatText, opts).(*TextFormatter)
		assert.True(t, ok)
	})

	t.Run("json", func(t *testing.T) {
		_, ok := NewFormatter(FormatJSON, opts).(*JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("yaml", func(t *testing.T) {
		_, ok := NewFormatter(FormatYAML, opts).(*YAMLFormatter)
		assert.True(t, ok)
	})

	t.Run("waybar", func(t *testing.T) {
		_, ok := NewFormatter(FormatWaybar, opts).(*WaybarFormatter)
		assert.True(t, ok)
	})

	t.Run("default", func(t *testing.T) {
		_, ok := NewFormatter("unknown", opts).(*TextFormatter)
		assert.True(t, ok)
	})
}
