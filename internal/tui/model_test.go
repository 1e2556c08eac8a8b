package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

var (
	_ Source = (*supervisor.Supervisor)(nil)
	_ Source = (*fakeSource)(nil)
)

type fakeSource struct {
	accept   bool
	triggers int
	ensures  int
	status   supervisor.Status
}

func (f *fakeSource) TriggerNow() bool {
	f.triggers++
	if f.accept {
		f.status.TriggersAccepted++
	} else {
		f.status.LastRejection = supervisor.RejectFocus
	}
	return f.accept
}

func (f *fakeSource) Status() supervisor.Status { return f.status }

func (f *fakeSource) EnsureHealthy() { f.ensures++ }

var spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func ready(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestModel_TriggerAccepted(t *testing.T) {
	src := &fakeSource{accept: true, status: supervisor.Status{Healthy: true}}
	m := ready(t, New(src, 0))

	next, cmd := m.Update(spaceKey)
	m = next.(Model)

	assert.Equal(t, 1, src.triggers)
	assert.True(t, m.lit)
	assert.NotNil(t, cmd)
	assert.Equal(t, "accepted", m.result)
	assert.Equal(t, uint64(1), m.status.TriggersAccepted)
}

func TestModel_TriggerRejected(t *testing.T) {
	src := &fakeSource{accept: false}
	m := ready(t, New(src, 0))

	next, cmd := m.Update(spaceKey)
	m = next.(Model)

	assert.False(t, m.lit)
	assert.Nil(t, cmd)
	assert.True(t, m.rejected)
	assert.Equal(t, "rejected: "+supervisor.RejectFocus, m.result)
	assert.Contains(t, m.View(), "rejected")
}

func TestModel_HookDrivesFlash(t *testing.T) {
	src := &fakeSource{accept: true}
	m := ready(t, New(src, 0))
	m.flashOnAccept = false

	next, cmd := m.Update(spaceKey)
	m = next.(Model)
	assert.False(t, m.lit, "key handler must not flash when a hook is installed")
	assert.Nil(t, cmd)

	id := ulid.Make()
	next, cmd = m.Update(TriggeredMsg{Event: supervisor.TriggerEvent{ID: id, At: time.Now()}})
	m = next.(Model)
	assert.True(t, m.lit)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), id.String())
}

func TestModel_FlashEndsOnlyForLatest(t *testing.T) {
	src := &fakeSource{accept: true}
	m := ready(t, New(src, 0))

	next, _ := m.Update(spaceKey)
	m = next.(Model)
	first := m.flashID
	next, _ = m.Update(spaceKey)
	m = next.(Model)

	next, _ = m.Update(flashDoneMsg{id: first})
	m = next.(Model)
	assert.True(t, m.lit, "stale flash timer must not turn the pad off")

	next, _ = m.Update(flashDoneMsg{id: m.flashID})
	m = next.(Model)
	assert.False(t, m.lit)
}

func TestModel_Keys(t *testing.T) {
	src := &fakeSource{}
	m := ready(t, New(src, 0))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = next.(Model)
	assert.Equal(t, 1, src.ensures)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	m = next.(Model)
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_Refresh(t *testing.T) {
	src := &fakeSource{}
	m := ready(t, New(src, 0))

	src.status.Engine = supervisor.EngineUnhealthy
	next, cmd := m.Update(refreshMsg{})
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.Equal(t, supervisor.EngineUnhealthy, m.status.Engine)
	assert.Contains(t, m.View(), "unhealthy")
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(&fakeSource{}, 0)
	assert.Equal(t, "Initializing...", m.View())
	assert.Equal(t, DefaultFlash, m.flash)
}
