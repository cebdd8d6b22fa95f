package dbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/state"
)

const (
	// DBusInterface is the ledge control interface name.
	DBusInterface = "io.github.ledgedesktop.Ledge"
	// DBusPath is the ledge object path.
	DBusPath = "/io/github/ledgedesktop/Ledge"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.ledgedesktop.Ledge"
)

// StatusHandler produces the daemon snapshot for the Status method.
type StatusHandler func() StatusReport

// DisplaysHandler produces per-display snapshots for ListDisplays.
type DisplaysHandler func() []display.ContextInfo

// TransientHandler is called for Peek and Notice requests.
type TransientHandler func(event state.EventKind, value float64, icon string) error

// OpenHandler is called when a client requests the expanded surface.
type OpenHandler func(displayID, view string) error

// CloseHandler is called when a client requests the compact surface.
type CloseHandler func(displayID string) error

// ShelfHandler is called when shelf mode is toggled.
type ShelfHandler func(active bool)

// InhibitorHandler is called when a close inhibitor is added or removed.
type InhibitorHandler func(name string)

// HintHandler is called on raw hover hints. Empty displayID means all.
type HintHandler func(displayID string)

// Server exposes the daemon control surface on the session bus.
type Server struct {
	conn   *dbus.Conn
	logger *slog.Logger

	version string

	// Handlers
	statusHandler   StatusHandler
	displaysHandler DisplaysHandler
	peekHandler     TransientHandler
	noticeHandler   TransientHandler
	openHandler     OpenHandler
	closeHandler    CloseHandler
	shelfHandler    ShelfHandler
	addInhibitor    InhibitorHandler
	removeInhibitor InhibitorHandler
	hintHandler     HintHandler

	mu      sync.Mutex
	running bool
}

// NewServer creates a new Server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		version: "dev",
	}
}

// SetVersion sets the daemon version reported by the Version method.
func (s *Server) SetVersion(version string) {
	s.version = version
}

// SetStatusHandler sets the handler for the Status method.
func (s *Server) SetStatusHandler(handler StatusHandler) {
	s.statusHandler = handler
}

// SetDisplaysHandler sets the handler for the ListDisplays method.
func (s *Server) SetDisplaysHandler(handler DisplaysHandler) {
	s.displaysHandler = handler
}

// SetPeekHandler sets the handler for sneak-peek requests.
func (s *Server) SetPeekHandler(handler TransientHandler) {
	s.peekHandler = handler
}

// SetNoticeHandler sets the handler for expanding-view requests.
func (s *Server) SetNoticeHandler(handler TransientHandler) {
	s.noticeHandler = handler
}

// SetOpenHandler sets the handler for Open requests.
func (s *Server) SetOpenHandler(handler OpenHandler) {
	s.openHandler = handler
}

// SetCloseHandler sets the handler for Close requests.
func (s *Server) SetCloseHandler(handler CloseHandler) {
	s.closeHandler = handler
}

// SetShelfHandler sets the handler for SetShelf requests.
func (s *Server) SetShelfHandler(handler ShelfHandler) {
	s.shelfHandler = handler
}

// SetInhibitorHandlers sets the handlers for inhibitor add/remove requests.
func (s *Server) SetInhibitorHandlers(add, remove InhibitorHandler) {
	s.addInhibitor = add
	s.removeInhibitor = remove
}

// SetHintHandler sets the handler for raw hover hints.
func (s *Server) SetHintHandler(handler HintHandler) {
	s.hintHandler = handler
}

// Start connects to the session bus and exports the ledge service.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	// Export the control object
	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: ledgeMethods(),
				Signals: ledgeSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		_, err := s.conn.ReleaseName(DBusBusName)
		if err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus server stopped")
	return nil
}

// Status returns the daemon snapshot as JSON.
// D-Bus method: Status() -> s
func (s *Server) Status() (string, *dbus.Error) {
	s.logger.Debug("Status called")
	if s.statusHandler == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("status handler not configured"))
	}

	data, err := json.Marshal(s.statusHandler())
	if err != nil {
		return "", dbus.MakeFailedError(fmt.Errorf("failed to encode status: %w", err))
	}
	return string(data), nil
}

// ListDisplays returns per-display snapshots as JSON.
// D-Bus method: ListDisplays() -> s
func (s *Server) ListDisplays() (string, *dbus.Error) {
	s.logger.Debug("ListDisplays called")
	if s.displaysHandler == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("displays handler not configured"))
	}

	data, err := json.Marshal(s.displaysHandler())
	if err != nil {
		return "", dbus.MakeFailedError(fmt.Errorf("failed to encode displays: %w", err))
	}
	return string(data), nil
}

// Peek requests a sneak-peek transient.
// D-Bus method: Peek(sds) -> nothing
func (s *Server) Peek(kind string, value float64, icon string) *dbus.Error {
	s.logger.Debug("Peek called", "kind", kind, "value", value)

	event, err := ParseEventKind(kind)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	if s.peekHandler == nil {
		return nil
	}
	if err := s.peekHandler(event, value, icon); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Notice requests an expanding-view transient.
// D-Bus method: Notice(sds) -> nothing
func (s *Server) Notice(kind string, value float64, icon string) *dbus.Error {
	s.logger.Debug("Notice called", "kind", kind, "value", value)

	event, err := ParseEventKind(kind)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	if s.noticeHandler == nil {
		return nil
	}
	if err := s.noticeHandler(event, value, icon); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Open requests the expanded surface on a display.
// D-Bus method: Open(ss) -> nothing
func (s *Server) Open(displayID, view string) *dbus.Error {
	s.logger.Debug("Open called", "display", displayID, "view", view)

	if s.openHandler == nil {
		return nil
	}
	if err := s.openHandler(displayID, view); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Close requests the compact surface on a display.
// D-Bus method: Close(s) -> nothing
func (s *Server) Close(displayID string) *dbus.Error {
	s.logger.Debug("Close called", "display", displayID)

	if s.closeHandler == nil {
		return nil
	}
	if err := s.closeHandler(displayID); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// SetShelf toggles shelf mode.
// D-Bus method: SetShelf(b) -> nothing
func (s *Server) SetShelf(active bool) *dbus.Error {
	s.logger.Debug("SetShelf called", "active", active)

	if s.shelfHandler != nil {
		s.shelfHandler(active)
	}
	return nil
}

// AddInhibitor registers a named close inhibitor.
// D-Bus method: AddInhibitor(s) -> nothing
func (s *Server) AddInhibitor(name string) *dbus.Error {
	s.logger.Debug("AddInhibitor called", "name", name)

	if strings.TrimSpace(name) == "" {
		return dbus.MakeFailedError(fmt.Errorf("inhibitor name must not be empty"))
	}
	if s.addInhibitor != nil {
		s.addInhibitor(name)
	}
	return nil
}

// RemoveInhibitor clears a named close inhibitor.
// D-Bus method: RemoveInhibitor(s) -> nothing
func (s *Server) RemoveInhibitor(name string) *dbus.Error {
	s.logger.Debug("RemoveInhibitor called", "name", name)

	if strings.TrimSpace(name) == "" {
		return dbus.MakeFailedError(fmt.Errorf("inhibitor name must not be empty"))
	}
	if s.removeInhibitor != nil {
		s.removeInhibitor(name)
	}
	return nil
}

// HoverHint forwards a raw pointer hint. Empty display means all displays.
// D-Bus method: HoverHint(s) -> nothing
func (s *Server) HoverHint(displayID string) *dbus.Error {
	s.logger.Debug("HoverHint called", "display", displayID)

	if s.hintHandler != nil {
		s.hintHandler(displayID)
	}
	return nil
}

// Version returns the daemon version.
// D-Bus method: Version() -> s
func (s *Server) Version() (string, *dbus.Error) {
	return s.version, nil
}

// ledgeMethods returns the D-Bus method introspection data.
func ledgeMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "status_json", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "ListDisplays",
			Args: []introspect.Arg{
				{Name: "displays_json", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Peek",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "value", Type: "d", Direction: "in"},
				{Name: "icon", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Notice",
			Args: []introspect.Arg{
				{Name: "kind", Type: "s", Direction: "in"},
				{Name: "value", Type: "d", Direction: "in"},
				{Name: "icon", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Open",
			Args: []introspect.Arg{
				{Name: "display", Type: "s", Direction: "in"},
				{Name: "view", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Close",
			Args: []introspect.Arg{
				{Name: "display", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "SetShelf",
			Args: []introspect.Arg{
				{Name: "active", Type: "b", Direction: "in"},
			},
		},
		{
			Name: "AddInhibitor",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "RemoveInhibitor",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "HoverHint",
			Args: []introspect.Arg{
				{Name: "display", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Version",
			Args: []introspect.Arg{
				{Name: "version", Type: "s", Direction: "out"},
			},
		},
	}
}

// ledgeSignals returns the D-Bus signal introspection data.
func ledgeSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "StateChanged",
			Args: []introspect.Arg{
				{Name: "display", Type: "s"},
				{Name: "state_json", Type: "s"},
			},
		},
		{
			Name: "SurfacePhase",
			Args: []introspect.Arg{
				{Name: "display", Type: "s"},
				{Name: "phase", Type: "s"},
			},
		},
	}
}
