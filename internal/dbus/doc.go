// Package dbus exposes the ledge daemon on the session bus.
// It provides the io.github.ledgedesktop.Ledge service with methods for
// status introspection, transient events, open/close requests, shelf and
// inhibitor control, plus the StateChanged signal renderers consume. The
// same package carries the typed client used by the CLI and monitor TUI.
package dbus
