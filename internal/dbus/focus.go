package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// FocusBroker provides audio focus from the session bus. Focus is held while
// tapclickd is the primary owner of BusName; another instance replacing the
// name takes it away until the name comes back. Clients can duck the click
// stream through the Focus interface and, when a system bus is attached,
// logind's PrepareForSleep suspends focus across sleep.
type FocusBroker struct {
	conn   *dbus.Conn
	system *dbus.Conn
	logger *slog.Logger

	mu       sync.Mutex
	onChange func(supervisor.FocusChange)
	owned    bool
	ducked   bool
	asleep   bool
	last     supervisor.FocusChange
	running  bool
	signals  chan *dbus.Signal
	sleeps   chan *dbus.Signal
	done     chan struct{}
}

var _ supervisor.FocusProvider = (*FocusBroker)(nil)

// NewFocusBroker creates a broker on the given session bus connection.
func NewFocusBroker(conn *dbus.Conn, logger *slog.Logger) *FocusBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusBroker{conn: conn, logger: logger}
}

// WatchSleep makes the broker follow logind sleep on the given system bus.
// Call before Request.
func (b *FocusBroker) WatchSleep(system *dbus.Conn) {
	b.mu.Lock()
	b.system = system
	b.mu.Unlock()
}

// Request claims the bus name and starts following focus changes.
func (b *FocusBroker) Request(onChange func(supervisor.FocusChange)) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return false, fmt.Errorf("focus already requested")
	}
	if b.conn == nil {
		return false, fmt.Errorf("not connected to D-Bus")
	}

	if err := b.conn.Export(focusObject{b}, FocusPath, FocusInterface); err != nil {
		return false, fmt.Errorf("failed to export focus object: %w", err)
	}
	if err := exportIntrospection(b.conn, FocusPath, focusInterface()); err != nil {
		return false, fmt.Errorf("failed to export introspectable: %w", err)
	}

	for _, member := range []string{"NameLost", "NameAcquired"} {
		if err := b.conn.AddMatchSignal(
			dbus.WithMatchInterface(busInterface),
			dbus.WithMatchMember(member),
			dbus.WithMatchArg(0, BusName),
		); err != nil {
			return false, fmt.Errorf("failed to match %s: %w", member, err)
		}
	}
	b.signals = make(chan *dbus.Signal, 16)
	b.conn.Signal(b.signals)

	if b.system != nil {
		if err := b.system.AddMatchSignal(
			dbus.WithMatchObjectPath(logindPath),
			dbus.WithMatchInterface(logindInterface),
			dbus.WithMatchMember("PrepareForSleep"),
		); err != nil {
			b.logger.Warn("failed to watch logind sleep", "error", err)
		} else {
			b.sleeps = make(chan *dbus.Signal, 4)
			b.system.Signal(b.sleeps)
		}
	}

	reply, err := b.conn.RequestName(BusName, dbus.NameFlagAllowReplacement|dbus.NameFlagReplaceExisting)
	if err != nil {
		b.unsubscribe()
		return false, fmt.Errorf("failed to request bus name: %w", err)
	}

	b.owned = reply == dbus.RequestNameReplyPrimaryOwner || reply == dbus.RequestNameReplyAlreadyOwner
	b.last = focusFor(b.owned, b.ducked, b.asleep)
	b.onChange = onChange
	b.running = true
	b.done = make(chan struct{})
	go b.loop(b.signals, b.sleeps, b.done)

	if !b.owned {
		b.logger.Info("bus name held elsewhere, waiting in queue", "name", BusName)
	}
	b.logger.Info("audio focus requested", "name", BusName, "focus", b.last.String())
	return b.last == supervisor.FocusGain, nil
}

// Abandon stops following focus and releases the bus name.
func (b *FocusBroker) Abandon() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}
	b.running = false
	b.onChange = nil
	close(b.done)
	b.unsubscribe()

	if _, err := b.conn.ReleaseName(BusName); err != nil {
		return fmt.Errorf("failed to release bus name: %w", err)
	}
	b.logger.Info("audio focus abandoned", "name", BusName)
	return nil
}

// unsubscribe undoes the exports and matches made by Request. Callers hold mu.
func (b *FocusBroker) unsubscribe() {
	var errs []error
	if b.signals != nil {
		b.conn.RemoveSignal(b.signals)
		for _, member := range []string{"NameLost", "NameAcquired"} {
			errs = append(errs, b.conn.RemoveMatchSignal(
				dbus.WithMatchInterface(busInterface),
				dbus.WithMatchMember(member),
				dbus.WithMatchArg(0, BusName),
			))
		}
		b.signals = nil
	}
	if b.sleeps != nil && b.system != nil {
		b.system.RemoveSignal(b.sleeps)
		errs = append(errs, b.system.RemoveMatchSignal(
			dbus.WithMatchObjectPath(logindPath),
			dbus.WithMatchInterface(logindInterface),
			dbus.WithMatchMember("PrepareForSleep"),
		))
		b.sleeps = nil
	}
	errs = append(errs,
		b.conn.Export(nil, FocusPath, FocusInterface),
		b.conn.Export(nil, FocusPath, introspectableName),
	)
	if err := errors.Join(errs...); err != nil {
		b.logger.Debug("focus cleanup incomplete", "error", err)
	}
}

func (b *FocusBroker) loop(signals, sleeps <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			b.handleSignal(sig)
		case sig, ok := <-sleeps:
			if !ok {
				sleeps = nil
				continue
			}
			b.handleSignal(sig)
		}
	}
}

// handleSignal folds one bus signal into the tracked conditions.
func (b *FocusBroker) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) == 0 {
		return
	}
	switch sig.Name {
	case signalNameLost, signalNameAcquired:
		name, _ := sig.Body[0].(string)
		if name != BusName {
			return
		}
		acquired := sig.Name == signalNameAcquired
		b.logger.Info("bus name ownership changed", "name", name, "owned", acquired)
		b.update(func() { b.owned = acquired })
	case signalPrepareForSleep:
		sleeping, ok := sig.Body[0].(bool)
		if !ok {
			return
		}
		b.logger.Info("system sleep", "entering", sleeping)
		b.update(func() { b.asleep = sleeping })
	}
}

// Duck marks the stream as ducked by a client.
func (b *FocusBroker) Duck() {
	b.update(func() { b.ducked = true })
}

// Restore clears a previous Duck.
func (b *FocusBroker) Restore() {
	b.update(func() { b.ducked = false })
}

// Current returns the change matching the tracked conditions.
func (b *FocusBroker) Current() supervisor.FocusChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	return focusFor(b.owned, b.ducked, b.asleep)
}

// update applies mutate and notifies when the effective change differs from
// the last one delivered. Notifications are delivered under mu so they reach
// the callback in order.
func (b *FocusBroker) update(mutate func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mutate()
	next := focusFor(b.owned, b.ducked, b.asleep)
	if next == b.last {
		return
	}
	b.last = next
	if b.onChange != nil {
		b.logger.Debug("focus change", "change", next.String())
		b.onChange(next)
	}
}

// focusObject is the exported Focus interface. It keeps the broker's own
// methods off the bus.
type focusObject struct {
	b *FocusBroker
}

// Duck implements Focus.Duck() -> nothing
func (o focusObject) Duck() *dbus.Error {
	o.b.logger.Debug("Duck called")
	o.b.Duck()
	return nil
}

// Restore implements Focus.Restore() -> nothing
func (o focusObject) Restore() *dbus.Error {
	o.b.logger.Debug("Restore called")
	o.b.Restore()
	return nil
}

// State implements Focus.State() -> s
func (o focusObject) State() (string, *dbus.Error) {
	return o.b.Current().String(), nil
}
