package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/display"
)

// HyprClient talks to Hyprland's request socket. Each query is one
// short-lived unix connection, mirroring hyprctl.
type HyprClient struct {
	logger     *slog.Logger
	socketPath string
	eventPath  string
}

// NewHyprClient locates the Hyprland IPC sockets from the environment.
// Returns an error when no Hyprland instance is running; callers degrade
// to a configured fallback display in that case.
func NewHyprClient(logger *slog.Logger) (*HyprClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if signature == "" {
		return nil, &AdapterError{
			Source:  "hyprland",
			Message: "HYPRLAND_INSTANCE_SIGNATURE not set",
		}
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/run/user/1000"
	}

	base := filepath.Join(runtimeDir, "hypr", signature)
	return &HyprClient{
		logger:     logger,
		socketPath: filepath.Join(base, ".socket.sock"),
		eventPath:  filepath.Join(base, ".socket2.sock"),
	}, nil
}

// query sends one command on the request socket and returns the reply.
func (c *HyprClient) query(ctx context.Context, command string) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, &AdapterError{
			Source:  "hyprland",
			Message: "failed to connect to request socket",
			Err:     err,
		}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("j/" + command)); err != nil {
		return nil, &AdapterError{
			Source:  "hyprland",
			Message: "failed to send " + command,
			Err:     err,
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, &AdapterError{
			Source:  "hyprland",
			Message: "failed to read " + command + " reply",
			Err:     err,
		}
	}
	return data, nil
}

// Monitors fetches the current display topology.
func (c *HyprClient) Monitors(ctx context.Context) ([]display.Display, error) {
	data, err := c.query(ctx, "monitors")
	if err != nil {
		return nil, err
	}
	return ParseMonitors(data)
}

// CursorPos fetches the global pointer position.
func (c *HyprClient) CursorPos(ctx context.Context) (display.Point, error) {
	data, err := c.query(ctx, "cursorpos")
	if err != nil {
		return display.Point{}, err
	}
	return ParseCursorPos(data)
}

// hyprMonitor is the subset of hyprctl monitor JSON the daemon reads.
type hyprMonitor struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Serial      string  `json:"serial"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Scale       float64 `json:"scale"`
	Focused     bool    `json:"focused"`
	Disabled    bool    `json:"disabled"`
}

// stableID derives the topology key for a monitor. Connector names like
// DP-1 shuffle across replugs, so identity comes from the hardware
// description instead.
func stableID(m hyprMonitor) string {
	if m.Description != "" {
		return m.Description
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Make, m.Model, m.Serial} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ParseMonitors parses hyprctl -j monitors output into displays.
// Disabled monitors are dropped.
func ParseMonitors(data []byte) ([]display.Display, error) {
	var monitors []hyprMonitor
	if err := json.Unmarshal(data, &monitors); err != nil {
		return nil, &AdapterError{
			Source:  "hyprland",
			Message: "failed to parse monitors JSON",
			Err:     err,
		}
	}

	displays := make([]display.Display, 0, len(monitors))
	for _, m := range monitors {
		if m.Disabled {
			continue
		}

		// Hyprland reports physical pixels; layout coordinates are logical
		w, h := float64(m.Width), float64(m.Height)
		if m.Scale > 0 {
			w /= m.Scale
			h /= m.Scale
		}

		displays = append(displays, display.Display{
			ID:      stableID(m),
			Name:    m.Name,
			Bounds:  display.Rect{X: float64(m.X), Y: float64(m.Y), W: w, H: h},
			Scale:   m.Scale,
			Focused: m.Focused,
		})
	}
	return displays, nil
}

// ParseCursorPos parses hyprctl -j cursorpos output.
func ParseCursorPos(data []byte) (display.Point, error) {
	var pos struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &pos); err != nil {
		return display.Point{}, &AdapterError{
			Source:  "hyprland",
			Message: "failed to parse cursorpos JSON",
			Err:     err,
		}
	}
	return display.Point{X: pos.X, Y: pos.Y}, nil
}

// HyprEvent is one line from the Hyprland event socket.
type HyprEvent struct {
	Name string
	Data string
}

// ParseEvent splits an event stream line. Lines look like
// "monitoradded>>DP-3".
func ParseEvent(line string) (HyprEvent, bool) {
	name, data, found := strings.Cut(strings.TrimSpace(line), ">>")
	if !found || name == "" {
		return HyprEvent{}, false
	}
	return HyprEvent{Name: name, Data: data}, true
}

// IsMonitorEvent reports whether an event changes display topology.
// Covers the v2 variants as well.
func IsMonitorEvent(name string) bool {
	return strings.HasPrefix(name, "monitoradded") || strings.HasPrefix(name, "monitorremoved")
}

// HyprEventHandler receives events from the event socket.
type HyprEventHandler func(ev HyprEvent)

// HyprEventWatcher streams the Hyprland event socket.
type HyprEventWatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	client  *HyprClient
	handler HyprEventHandler
	conn    net.Conn
	doneCh  chan struct{}
	running bool
}

// NewHyprEventWatcher creates a watcher on the client's event socket.
func NewHyprEventWatcher(client *HyprClient, logger *slog.Logger) *HyprEventWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HyprEventWatcher{
		logger: logger,
		client: client,
	}
}

// SetEventHandler sets the callback for received events.
func (w *HyprEventWatcher) SetEventHandler(handler HyprEventHandler) {
	w.handler = handler
}

// Start connects to the event socket and begins streaming.
func (w *HyprEventWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn, err := net.DialTimeout("unix", w.client.eventPath, 5*time.Second)
	if err != nil {
		return &AdapterError{
			Source:  "hyprland",
			Message: "failed to connect to event socket",
			Err:     err,
		}
	}
	w.conn = conn
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watch()

	w.logger.Debug("started Hyprland event watcher", "socket", w.client.eventPath)
	return nil
}

// watch reads event lines until the connection closes.
func (w *HyprEventWatcher) watch() {
	defer close(w.doneCh)

	scanner := bufio.NewScanner(w.conn)
	for scanner.Scan() {
		ev, ok := ParseEvent(scanner.Text())
		if !ok {
			continue
		}
		if w.handler != nil {
			w.handler(ev)
		}
	}

	w.mu.Lock()
	stopped := !w.running
	w.mu.Unlock()
	if !stopped {
		w.logger.Warn("Hyprland event stream closed", "error", scanner.Err())
	}
}

// Stop closes the event socket and waits for the stream goroutine.
func (w *HyprEventWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	conn := w.conn
	doneCh := w.doneCh
	w.mu.Unlock()

	conn.Close()

	// Wait for goroutine to finish
	<-doneCh
	w.logger.Debug("stopped Hyprland event watcher")
}

// CursorSource adapts the query socket to the coordinator's pointer
// sampling interface. Failed or slow queries read as pointer-absent, so
// hover logic fails closed.
type CursorSource struct {
	client  *HyprClient
	timeout time.Duration
}

// NewCursorSource creates a pointer source backed by a client.
func NewCursorSource(client *HyprClient) *CursorSource {
	return &CursorSource{
		client:  client,
		timeout: 50 * time.Millisecond,
	}
}

// Pointer returns the current global pointer position.
func (s *CursorSource) Pointer() (display.Point, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pt, err := s.client.CursorPos(ctx)
	if err != nil {
		return display.Point{}, false
	}
	return pt, true
}

var _ display.PointerSource = (*CursorSource)(nil)

// FallbackDisplay builds the single synthetic display used when Hyprland
// is unavailable. The daemon still serves D-Bus open/close against it.
func FallbackDisplay(width, height float64) display.Display {
	return display.Display{
		ID:      "fallback",
		Name:    "fallback",
		Bounds:  display.Rect{X: 0, Y: 0, W: width, H: height},
		Scale:   1,
		Focused: true,
	}
}

// String implements fmt.Stringer for event logging.
func (e HyprEvent) String() string {
	return fmt.Sprintf("%s>>%s", e.Name, e.Data)
}
