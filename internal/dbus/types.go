package dbus

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

const (
	// BusName is the well-known name tapclickd claims.
	BusName = "io.github.jmylchreest.Tapclick"
	// ObjectPath is the control object path.
	ObjectPath = dbus.ObjectPath("/io/github/jmylchreest/Tapclick")
	// Interface is the control interface name.
	Interface = "io.github.jmylchreest.Tapclick1"

	// FocusPath is the focus object path.
	FocusPath = dbus.ObjectPath("/io/github/jmylchreest/Tapclick/Focus")
	// FocusInterface is the focus interface name.
	FocusInterface = "io.github.jmylchreest.Tapclick1.Focus"
)

const (
	busInterface       = "org.freedesktop.DBus"
	introspectableName = "org.freedesktop.DBus.Introspectable"

	signalNameLost     = busInterface + ".NameLost"
	signalNameAcquired = busInterface + ".NameAcquired"

	logindInterface       = "org.freedesktop.login1.Manager"
	logindPath            = dbus.ObjectPath("/org/freedesktop/login1")
	signalPrepareForSleep = logindInterface + ".PrepareForSleep"
)

// focusFor collapses the conditions the broker tracks into the change the
// supervisor should see. Losing the bus name wins over everything else.
func focusFor(owned, ducked, asleep bool) supervisor.FocusChange {
	switch {
	case !owned:
		return supervisor.FocusLoss
	case asleep:
		return supervisor.FocusLossTransient
	case ducked:
		return supervisor.FocusLossTransientCanDuck
	default:
		return supervisor.FocusGain
	}
}

func exportIntrospection(conn *dbus.Conn, path dbus.ObjectPath, iface introspect.Interface) error {
	node := &introspect.Node{
		Name:       string(path),
		Interfaces: []introspect.Interface{introspect.IntrospectData, iface},
	}
	return conn.Export(introspect.NewIntrospectable(node), path, introspectableName)
}

// controlInterface returns the introspection data for the control interface.
func controlInterface() introspect.Interface {
	return introspect.Interface{
		Name: Interface,
		Methods: []introspect.Method{
			{
				Name: "Trigger",
				Args: []introspect.Arg{
					{Name: "accepted", Type: "b", Direction: "out"},
				},
			},
			{
				Name: "Status",
				Args: []introspect.Arg{
					{Name: "status", Type: "s", Direction: "out"},
				},
			},
			{Name: "EnsureHealthy"},
		},
		Signals: []introspect.Signal{
			{
				Name: "Triggered",
				Args: []introspect.Arg{
					{Name: "id", Type: "s"},
					{Name: "at_unix_ms", Type: "x"},
				},
			},
		},
	}
}

// focusInterface returns the introspection data for the focus interface.
func focusInterface() introspect.Interface {
	return introspect.Interface{
		Name: FocusInterface,
		Methods: []introspect.Method{
			{Name: "Duck"},
			{Name: "Restore"},
			{
				Name: "State",
				Args: []introspect.Arg{
					{Name: "state", Type: "s", Direction: "out"},
				},
			},
		},
	}
}
