package dbus

import (
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/ledge-desktop/ledge/internal/display"
)

// Client is a typed wrapper around the io.github.ledgedesktop.Ledge
// service, used by the CLI and the monitor TUI.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus and binds the ledge service.
// The connection is private, so Close really closes it.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, dbus.ObjectPath(DBusPath)),
	}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call invokes a method on the ledge interface.
func (c *Client) call(method string, args ...interface{}) *dbus.Call {
	return c.obj.Call(DBusInterface+"."+method, 0, args...)
}

// Status fetches the daemon snapshot.
func (c *Client) Status() (*StatusReport, error) {
	var raw string
	if err := c.call("Status").Store(&raw); err != nil {
		return nil, fmt.Errorf("status call failed: %w", err)
	}

	var report StatusReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &report, nil
}

// ListDisplays fetches per-display snapshots.
func (c *Client) ListDisplays() ([]display.ContextInfo, error) {
	var raw string
	if err := c.call("ListDisplays").Store(&raw); err != nil {
		return nil, fmt.Errorf("list displays call failed: %w", err)
	}

	var contexts []display.ContextInfo
	if err := json.Unmarshal([]byte(raw), &contexts); err != nil {
		return nil, fmt.Errorf("failed to decode displays: %w", err)
	}
	return contexts, nil
}

// Peek requests a sneak-peek transient.
func (c *Client) Peek(kind string, value float64, icon string) error {
	return c.call("Peek", kind, value, icon).Err
}

// Notice requests an expanding-view transient.
func (c *Client) Notice(kind string, value float64, icon string) error {
	return c.call("Notice", kind, value, icon).Err
}

// Open requests the expanded surface on a display. Empty view keeps the
// display's last view.
func (c *Client) Open(displayID, view string) error {
	return c.call("Open", displayID, view).Err
}

// CloseDisplay requests the compact surface on a display.
func (c *Client) CloseDisplay(displayID string) error {
	return c.call("Close", displayID).Err
}

// SetShelf toggles shelf mode.
func (c *Client) SetShelf(active bool) error {
	return c.call("SetShelf", active).Err
}

// AddInhibitor registers a named close inhibitor.
func (c *Client) AddInhibitor(name string) error {
	return c.call("AddInhibitor", name).Err
}

// RemoveInhibitor clears a named close inhibitor.
func (c *Client) RemoveInhibitor(name string) error {
	return c.call("RemoveInhibitor", name).Err
}

// HoverHint forwards a raw pointer hint. Empty display means all displays.
func (c *Client) HoverHint(displayID string) error {
	return c.call("HoverHint", displayID).Err
}

// Version fetches the daemon version.
func (c *Client) Version() (string, error) {
	var version string
	if err := c.call("Version").Store(&version); err != nil {
		return "", fmt.Errorf("version call failed: %w", err)
	}
	return version, nil
}

// Subscribe registers for ledge signals and returns the delivery channel.
// Use ParseStateChanged and ParseSurfacePhase on received signals.
func (c *Client) Subscribe() (chan *dbus.Signal, error) {
	err := c.conn.AddMatchSignal(
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchObjectPath(dbus.ObjectPath(DBusPath)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	ch := make(chan *dbus.Signal, 32)
	c.conn.Signal(ch)
	return ch, nil
}

// Unsubscribe removes a signal channel registered with Subscribe.
func (c *Client) Unsubscribe(ch chan *dbus.Signal) {
	c.conn.RemoveSignal(ch)
}
