// Package output provides output formatters for supervisor status.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// Formatter formats a status snapshot for output.
type Formatter interface {
	// Format writes the formatted status to the writer.
	Format(w io.Writer, st supervisor.Status) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatText   FormatType = "text"
	FormatJSON   FormatType = "json"
	FormatYAML   FormatType = "yaml"
	FormatWaybar FormatType = "waybar"
)

// ValidFormats lists the accepted format names.
var ValidFormats = []FormatType{FormatText, FormatJSON, FormatYAML, FormatWaybar}

// ParseFormat resolves a user supplied format name.
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidFormats {
		if f == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: text, json, yaml, waybar)", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatWaybar:
		return NewWaybarFormatter(opts)
	case FormatText:
		fallthrough
	default:
		return NewTextFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string // Custom template for text format
	Compact  bool   // Single-line JSON
}

// DefaultFormatterOptions returns the defaults used by the CLI.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{}
}
