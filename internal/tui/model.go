// Package tui provides the BubbleTea-based trigger pad.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

const (
	// DefaultFlash is how long the pad stays lit after an accepted click.
	DefaultFlash = 80 * time.Millisecond

	refreshInterval = 250 * time.Millisecond
)

// Source is what the pad drives. The in-process supervisor satisfies it.
type Source interface {
	TriggerNow() bool
	Status() supervisor.Status
	EnsureHealthy()
}

// Model is the main TUI model.
type Model struct {
	src   Source
	flash time.Duration
	keys  KeyMap
	help  help.Model

	// flashOnAccept lights the pad from the key handler when no feedback
	// hook delivers TriggeredMsg.
	flashOnAccept bool

	status   supervisor.Status
	lit      bool
	flashID  int
	lastID   string
	result   string
	rejected bool
	width    int
	ready    bool
}

// TriggeredMsg reports an accepted trigger from the feedback hook.
type TriggeredMsg struct {
	Event supervisor.TriggerEvent
}

type flashDoneMsg struct{ id int }

type refreshMsg struct{}

// New creates a new TUI model. A flash of zero uses DefaultFlash.
func New(src Source, flash time.Duration) Model {
	if flash <= 0 {
		flash = DefaultFlash
	}
	return Model{
		src:           src,
		flash:         flash,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		flashOnAccept: true,
		status:        src.Status(),
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return refreshAfter()
}

func refreshAfter() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case TriggeredMsg:
		m.lastID = msg.Event.ID.String()
		return m.light()

	case flashDoneMsg:
		if msg.id == m.flashID {
			m.lit = false
		}
		return m, nil

	case refreshMsg:
		m.status = m.src.Status()
		return m, refreshAfter()
	}

	return m, nil
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Recover):
		m.src.EnsureHealthy()
		m.result = "stream check requested"
		m.rejected = false
		return m, nil

	case key.Matches(msg, m.keys.Trigger):
		accepted := m.src.TriggerNow()
		m.status = m.src.Status()
		if !accepted {
			m.rejected = true
			m.result = "rejected"
			if m.status.LastRejection != "" {
				m.result += ": " + m.status.LastRejection
			}
			return m, nil
		}
		m.rejected = false
		m.result = "accepted"
		if m.flashOnAccept {
			return m.light()
		}
		return m, nil
	}
	return m, nil
}

// light turns the pad on and schedules it off. A newer flash supersedes any
// pending one.
func (m Model) light() (tea.Model, tea.Cmd) {
	m.lit = true
	m.flashID++
	id := m.flashID
	return m, tea.Tick(m.flash, func(time.Time) tea.Msg {
		return flashDoneMsg{id: id}
	})
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	padStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(1, 4).
			Align(lipgloss.Center)

	litPadStyle = padStyle.
			BorderForeground(lipgloss.Color("11")).
			Background(lipgloss.Color("11")).
			Foreground(lipgloss.Color("0"))

	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	pad := padStyle
	if m.lit {
		pad = litPadStyle
	}

	s := titleStyle.Render("tapclick") + "\n\n"
	s += pad.Render("CLICK") + "\n\n"
	s += m.statusLine() + "\n"

	if m.result != "" {
		style := resultStyle
		if m.rejected {
			style = badStyle
		}
		s += style.Render(m.result) + "\n"
	}
	if m.lastID != "" {
		s += labelStyle.Render("event "+m.lastID) + "\n"
	}

	return s + "\n" + m.help.View(m.keys)
}

// statusLine renders the engine summary on one line.
func (m Model) statusLine() string {
	st := m.status

	health := goodStyle.Render("healthy")
	if !st.Healthy {
		health = badStyle.Render("unhealthy")
	}

	line := fmt.Sprintf("%s %s  %s %s  %s  %s %s",
		labelStyle.Render("engine"), st.Engine,
		labelStyle.Render("focus"), st.Focus,
		health,
		labelStyle.Render("clicks"), humanize.Comma(int64(st.TriggersAccepted)),
	)
	if st.LastTrigger != nil {
		line += "  " + labelStyle.Render("last") + " " + humanize.Time(*st.LastTrigger)
	}
	return line
}

// RunOptions configures the TUI.
type RunOptions struct {
	Source Source
	Flash  time.Duration
	// Subscribe, when set, installs a feedback hook for accepted triggers.
	// The pad then flashes from the hook instead of the key handler. It is
	// called with nil on exit.
	Subscribe func(supervisor.FeedbackHook)
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	m := New(opts.Source, opts.Flash)
	m.flashOnAccept = opts.Subscribe == nil

	p := tea.NewProgram(m, tea.WithAltScreen())

	if opts.Subscribe != nil {
		opts.Subscribe(func(ev supervisor.TriggerEvent) {
			go p.Send(TriggeredMsg{Event: ev})
		})
		defer opts.Subscribe(nil)
	}

	_, err := p.Run()
	return err
}
