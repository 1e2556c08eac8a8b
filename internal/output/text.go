package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// TextFormatter formats status as human readable text.
type TextFormatter struct {
	opts     FormatterOptions
	template *template.Template
	err      error
}

// NewTextFormatter creates a new text formatter. A template that fails to
// parse is reported by Format.
func NewTextFormatter(opts FormatterOptions) *TextFormatter {
	f := &TextFormatter{opts: opts}
	if opts.Template != "" {
		f.template, f.err = template.New("status").Funcs(templateFuncs()).Parse(opts.Template)
	}
	return f
}

// Format writes the status as text.
func (f *TextFormatter) Format(w io.Writer, st supervisor.Status) error {
	if f.err != nil {
		return fmt.Errorf("invalid template: %w", f.err)
	}
	if f.template != nil {
		return f.template.Execute(w, st)
	}

	var sb strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&sb, "%-16s %s\n", label+":", value)
	}

	field("engine", st.Engine.String())
	field("focus", st.Focus.String())
	field("watchdog", st.Watchdog.String())
	field("healthy", yesNo(st.Healthy))
	field("running", yesNo(st.Running))
	if st.Retrying {
		field("retrying", fmt.Sprintf("yes (%s attempts)", humanize.Comma(int64(st.StartAttempts))))
	}
	field("triggers", fmt.Sprintf("%s accepted, %s rejected",
		humanize.Comma(int64(st.TriggersAccepted)), humanize.Comma(int64(st.TriggersRejected))))
	field("restarts", humanize.Comma(int64(st.Restarts)))
	field("health checks", humanize.Comma(int64(st.HealthChecks)))
	field("debounce", (time.Duration(st.DebounceMillis) * time.Millisecond).String())
	if st.LastTrigger != nil {
		field("last trigger", humanize.Time(*st.LastTrigger))
	}
	if st.LastRejection != "" {
		field("last rejection", st.LastRejection)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// templateFuncs returns the functions available to custom templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"ago": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return humanize.Time(*t)
		},
		"comma": func(n uint64) string {
			return humanize.Comma(int64(n))
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}
}
