package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// newTrackingBroker returns a broker that behaves as if Request succeeded
// with the name owned, recording every delivered change.
func newTrackingBroker(t *testing.T) (*FocusBroker, *[]supervisor.FocusChange) {
	t.Helper()
	var got []supervisor.FocusChange
	b := NewFocusBroker(nil, nil)
	b.owned = true
	b.last = supervisor.FocusGain
	b.onChange = func(c supervisor.FocusChange) { got = append(got, c) }
	return b, &got
}

func nameSignal(member, name string) *dbus.Signal {
	return &dbus.Signal{Name: busInterface + "." + member, Body: []interface{}{name}}
}

func TestFocusBroker_NameLostAndAcquired(t *testing.T) {
	b, got := newTrackingBroker(t)

	b.handleSignal(nameSignal("NameLost", BusName))
	b.handleSignal(nameSignal("NameAcquired", BusName))

	assert.Equal(t, []supervisor.FocusChange{supervisor.FocusLoss, supervisor.FocusGain}, *got)
}

func TestFocusBroker_IgnoresOtherNames(t *testing.T) {
	b, got := newTrackingBroker(t)

	b.handleSignal(nameSignal("NameLost", "org.example.Other"))
	b.handleSignal(&dbus.Signal{Name: signalNameLost})
	b.handleSignal(nil)

	assert.Empty(t, *got)
	assert.Equal(t, supervisor.FocusGain, b.Current())
}

func TestFocusBroker_DuckRestore(t *testing.T) {
	b, got := newTrackingBroker(t)

	b.Duck()
	b.Duck()
	b.Restore()

	assert.Equal(t, []supervisor.FocusChange{
		supervisor.FocusLossTransientCanDuck,
		supervisor.FocusGain,
	}, *got)
}

func TestFocusBroker_Sleep(t *testing.T) {
	b, got := newTrackingBroker(t)

	b.handleSignal(&dbus.Signal{Name: signalPrepareForSleep, Body: []interface{}{true}})
	assert.Equal(t, supervisor.FocusLossTransient, b.Current())

	b.handleSignal(&dbus.Signal{Name: signalPrepareForSleep, Body: []interface{}{false}})
	b.handleSignal(&dbus.Signal{Name: signalPrepareForSleep, Body: []interface{}{"bogus"}})

	assert.Equal(t, []supervisor.FocusChange{
		supervisor.FocusLossTransient,
		supervisor.FocusGain,
	}, *got)
}

func TestFocusBroker_DuckWhileNameLost(t *testing.T) {
	b, got := newTrackingBroker(t)

	b.handleSignal(nameSignal("NameLost", BusName))
	b.Duck()
	b.handleSignal(nameSignal("NameAcquired", BusName))

	require.Len(t, *got, 2)
	assert.Equal(t, supervisor.FocusLoss, (*got)[0])
	assert.Equal(t, supervisor.FocusLossTransientCanDuck, (*got)[1])
}

func TestFocusBroker_WithoutConnection(t *testing.T) {
	b := NewFocusBroker(nil, nil)

	granted, err := b.Request(func(supervisor.FocusChange) {})
	assert.Error(t, err)
	assert.False(t, granted)
	assert.NoError(t, b.Abandon())
}

func TestFocusObject(t *testing.T) {
	b, got := newTrackingBroker(t)
	obj := focusObject{b}

	assert.Nil(t, obj.Duck())
	state, derr := obj.State()
	assert.Nil(t, derr)
	assert.Equal(t, "loss-transient-can-duck", state)

	assert.Nil(t, obj.Restore())
	assert.Len(t, *got, 2)
}
