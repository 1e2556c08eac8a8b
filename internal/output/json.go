package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// JSONFormatter formats status as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes the status as a JSON object.
func (f *JSONFormatter) Format(w io.Writer, st supervisor.Status) error {
	encoder := json.NewEncoder(w)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(st)
}
