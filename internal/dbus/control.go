package dbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// Controller is the part of the supervisor the control interface drives.
type Controller interface {
	TriggerNow() bool
	Status() supervisor.Status
	EnsureHealthy()
}

// ControlServer implements the io.github.jmylchreest.Tapclick1 interface.
type ControlServer struct {
	conn   *dbus.Conn
	ctrl   Controller
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	ownedName bool
}

// NewControlServer creates a control server for ctrl on conn.
func NewControlServer(conn *dbus.Conn, ctrl Controller, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{conn: conn, ctrl: ctrl, logger: logger}
}

// Start exports the control object. The bus name is claimed here unless the
// connection already owns it through the focus broker.
func (s *ControlServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Export(s, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}
	if err := exportIntrospection(s.conn, ObjectPath, controlInterface()); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := s.conn.RequestName(BusName, dbus.NameFlagAllowReplacement|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	switch reply {
	case dbus.RequestNameReplyPrimaryOwner:
		s.ownedName = true
	case dbus.RequestNameReplyInQueue, dbus.RequestNameReplyExists:
		s.logger.Warn("bus name held by another instance", "name", BusName)
	}

	s.running = true
	s.logger.Info("D-Bus control server started", "interface", Interface, "path", ObjectPath)
	return nil
}

// Stop unexports the control object and releases the name if Start took it.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if err := s.conn.Export(nil, ObjectPath, Interface); err != nil {
		s.logger.Warn("failed to unexport control object", "error", err)
	}
	if err := s.conn.Export(nil, ObjectPath, introspectableName); err != nil {
		s.logger.Warn("failed to unexport introspectable", "error", err)
	}
	if s.ownedName {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		s.ownedName = false
	}
	// The connection is shared with the focus broker and closed by its owner.

	s.logger.Info("D-Bus control server stopped")
	return nil
}

// Trigger requests a click.
// D-Bus method: Trigger() -> b
func (s *ControlServer) Trigger() (bool, *dbus.Error) {
	accepted := s.ctrl.TriggerNow()
	s.logger.Debug("Trigger called", "accepted", accepted)
	return accepted, nil
}

// Status returns the supervisor status as JSON.
// D-Bus method: Status() -> s
func (s *ControlServer) Status() (string, *dbus.Error) {
	data, err := json.Marshal(s.ctrl.Status())
	if err != nil {
		return "", dbus.MakeFailedError(fmt.Errorf("failed to encode status: %w", err))
	}
	return string(data), nil
}

// EnsureHealthy asks the supervisor to restart the stream if it is unhealthy.
// D-Bus method: EnsureHealthy() -> nothing
func (s *ControlServer) EnsureHealthy() *dbus.Error {
	s.logger.Debug("EnsureHealthy called")
	s.ctrl.EnsureHealthy()
	return nil
}
