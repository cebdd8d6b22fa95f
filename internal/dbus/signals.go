package dbus

import (
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitStateChanged emits the StateChanged signal carrying the renderer
// payload for one display. This is the renderer contract: renderers paint
// exactly what the payload says, nothing else.
func (s *Server) EmitStateChanged(displayID string, payload StatePayload) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode state payload: %w", err)
	}

	err = s.conn.Emit(DBusPath, DBusInterface+".StateChanged", displayID, string(data))
	if err != nil {
		return fmt.Errorf("failed to emit StateChanged signal: %w", err)
	}

	s.logger.Debug("emitted StateChanged signal", "display", displayID, "state", payload.State.String())
	return nil
}

// EmitSurfacePhase emits the SurfacePhase signal for one display's
// surface lifecycle step.
func (s *Server) EmitSurfacePhase(displayID, phase string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".SurfacePhase", displayID, phase)
	if err != nil {
		return fmt.Errorf("failed to emit SurfacePhase signal: %w", err)
	}

	s.logger.Debug("emitted SurfacePhase signal", "display", displayID, "phase", phase)
	return nil
}

// Connection returns the underlying D-Bus connection.
// This can be used for advanced operations like calling methods on other services.
func (s *Server) Connection() *dbus.Conn {
	return s.conn
}
