package dbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tapclick/internal/supervisor"
)

// Client calls a running tapclickd over the session bus.
type Client struct {
	conn    *dbus.Conn
	control dbus.BusObject
	focus   dbus.BusObject
}

// Connect opens a private session bus connection for a client.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient creates a client on an existing connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{
		conn:    conn,
		control: conn.Object(BusName, ObjectPath),
		focus:   conn.Object(BusName, FocusPath),
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Trigger asks the daemon for a click and reports whether it was accepted.
func (c *Client) Trigger(ctx context.Context) (bool, error) {
	var accepted bool
	if err := c.control.CallWithContext(ctx, Interface+".Trigger", 0).Store(&accepted); err != nil {
		return false, fmt.Errorf("trigger: %w", err)
	}
	return accepted, nil
}

// Status fetches the daemon's supervisor status.
func (c *Client) Status(ctx context.Context) (supervisor.Status, error) {
	var raw string
	if err := c.control.CallWithContext(ctx, Interface+".Status", 0).Store(&raw); err != nil {
		return supervisor.Status{}, fmt.Errorf("status: %w", err)
	}
	var st supervisor.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return supervisor.Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}

// EnsureHealthy asks the daemon to check the stream now.
func (c *Client) EnsureHealthy(ctx context.Context) error {
	if err := c.control.CallWithContext(ctx, Interface+".EnsureHealthy", 0).Err; err != nil {
		return fmt.Errorf("ensure healthy: %w", err)
	}
	return nil
}

// Duck tells the daemon another stream wants the foreground.
func (c *Client) Duck(ctx context.Context) error {
	if err := c.focus.CallWithContext(ctx, FocusInterface+".Duck", 0).Err; err != nil {
		return fmt.Errorf("duck: %w", err)
	}
	return nil
}

// Restore clears a previous Duck.
func (c *Client) Restore(ctx context.Context) error {
	if err := c.focus.CallWithContext(ctx, FocusInterface+".Restore", 0).Err; err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// FocusState reports the focus the daemon's broker currently derives.
func (c *Client) FocusState(ctx context.Context) (string, error) {
	var state string
	if err := c.focus.CallWithContext(ctx, FocusInterface+".State", 0).Store(&state); err != nil {
		return "", fmt.Errorf("focus state: %w", err)
	}
	return state, nil
}
