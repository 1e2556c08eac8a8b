package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// YAMLFormatter formats status as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes the status as a YAML document.
func (f *YAMLFormatter) Format(w io.Writer, st supervisor.Status) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(st); err != nil {
		return err
	}
	return encoder.Close()
}
