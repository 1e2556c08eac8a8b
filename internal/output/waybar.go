package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// WaybarFormatter formats status for a Waybar custom module.
type WaybarFormatter struct {
	opts FormatterOptions
}

// NewWaybarFormatter creates a new Waybar formatter.
func NewWaybarFormatter(opts FormatterOptions) *WaybarFormatter {
	return &WaybarFormatter{opts: opts}
}

// Format writes a single Waybar JSON line.
func (f *WaybarFormatter) Format(w io.Writer, st supervisor.Status) error {
	return json.NewEncoder(w).Encode(WaybarFromStatus(st))
}

// WaybarFromStatus maps a status onto the Waybar fields. The class is the
// most pressing condition: stopped, unhealthy, no focus, then ok.
func WaybarFromStatus(st supervisor.Status) WaybarStatus {
	class := "ok"
	switch {
	case !st.Running:
		class = "stopped"
	case !st.Healthy:
		class = "unhealthy"
	case st.Focus != supervisor.FocusGranted:
		class = "no-focus"
	}

	tooltip := fmt.Sprintf("engine: %s\nfocus: %s\nclicks: %s\nrestarts: %s",
		st.Engine, st.Focus,
		humanize.Comma(int64(st.TriggersAccepted)),
		humanize.Comma(int64(st.Restarts)))
	if st.LastTrigger != nil {
		tooltip += "\nlast: " + humanize.Time(*st.LastTrigger)
	}

	return WaybarStatus{
		Text:    humanize.Comma(int64(st.TriggersAccepted)),
		Alt:     class,
		Tooltip: tooltip,
		Class:   class,
	}
}
