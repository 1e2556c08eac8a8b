package dbus

import (
	"fmt"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// EmitTriggered emits the Triggered signal for an accepted trigger.
func (s *ControlServer) EmitTriggered(ev supervisor.TriggerEvent) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(ObjectPath, Interface+".Triggered", ev.ID.String(), ev.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to emit Triggered signal: %w", err)
	}

	s.logger.Debug("emitted Triggered signal", "id", ev.ID.String())
	return nil
}
