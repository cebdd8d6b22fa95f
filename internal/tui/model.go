// Package tui provides the BubbleTea-based monitor dashboard.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	godbus "github.com/godbus/dbus/v5"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/registry"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeDisplays Mode = iota
	ModeDetail
	ModeEvents
	ModeHelp
)

// refreshInterval is how often the daemon snapshot is re-polled.
const refreshInterval = time.Second

// maxEvents caps the in-memory event log.
const maxEvents = 500

// eventEntry is one received signal, rendered in the event log.
type eventEntry struct {
	at      time.Time
	display string
	kind    string // "state" or "phase"
	detail  string
}

// Model is the main monitor model.
type Model struct {
	client *dbus.Client

	// Current mode
	mode Mode

	// Components
	viewport viewport.Model
	help     help.Model

	// State
	report    *dbus.StatusReport
	reportErr error
	selected  int
	events    []eventEntry
	follow    bool
	width     int
	height    int
	ready     bool

	// Key bindings
	keys KeyMap

	// Status message
	statusText string
	statusErr  bool

	// Signal subscription
	sigCh <-chan *godbus.Signal
}

// New creates a new monitor model.
func New(client *dbus.Client, sigCh <-chan *godbus.Signal) Model {
	h := help.New()

	return Model{
		client: client,
		mode:   ModeDisplays,
		help:   h,
		keys:   DefaultKeyMap(),
		follow: true,
		sigCh:  sigCh,
	}
}

// Init initializes the monitor.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchReport,
		m.tick(),
		m.waitForSignal,
	)
}

// fetchReport polls the daemon snapshot.
func (m Model) fetchReport() tea.Msg {
	report, err := m.client.Status()
	return reportMsg{report: report, err: err}
}

type reportMsg struct {
	report *dbus.StatusReport
	err    error
}

// tick schedules the next snapshot poll.
func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type tickMsg time.Time

// waitForSignal blocks on the next daemon signal.
func (m Model) waitForSignal() tea.Msg {
	if m.sigCh == nil {
		return nil
	}
	sig, ok := <-m.sigCh
	if !ok {
		return signalClosedMsg{}
	}
	return signalMsg{sig: sig}
}

type signalMsg struct {
	sig *godbus.Signal
}

type signalClosedMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.viewport = viewport.New(msg.Width, m.bodyHeight())
		m.viewport.YPosition = 2
		m.syncViewport()
		return m, nil

	case reportMsg:
		m.report = msg.report
		m.reportErr = msg.err
		if m.report != nil && m.selected >= len(m.report.Displays) {
			m.selected = len(m.report.Displays) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		if m.mode == ModeDetail {
			m.syncViewport()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchReport, m.tick())

	case signalMsg:
		if entry, ok := parseSignal(msg.sig); ok {
			m.events = append(m.events, entry)
			if len(m.events) > maxEvents {
				m.events = m.events[len(m.events)-maxEvents:]
			}
			if m.mode == ModeEvents {
				m.syncViewport()
			}
		}
		return m, m.waitForSignal

	case signalClosedMsg:
		return m, func() tea.Msg {
			return statusMsg{text: "Signal stream closed", isErr: true}
		}

	case statusMsg:
		m.statusText = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusText = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusMsg{text: "Copied to clipboard", isErr: false}
		}
	}

	// Update the viewport in scrollable modes
	if m.mode == ModeDetail || m.mode == ModeEvents {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// parseSignal converts a daemon signal into an event log entry.
func parseSignal(sig *godbus.Signal) (eventEntry, bool) {
	if id, stateJSON, ok := dbus.ParseStateChanged(sig); ok {
		detail := stateJSON
		var payload dbus.StatePayload
		if err := json.Unmarshal([]byte(stateJSON), &payload); err == nil {
			detail = payload.State.String()
			if payload.ChinWidth > 0 {
				detail += fmt.Sprintf(" chin=%d", payload.ChinWidth)
			}
		}
		return eventEntry{at: time.Now(), display: id, kind: "state", detail: detail}, true
	}
	if id, phase, ok := dbus.ParseSurfacePhase(sig); ok {
		return eventEntry{at: time.Now(), display: id, kind: "phase", detail: phase}, true
	}
	return eventEntry{}, false
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeDisplays
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	// Mode-specific keys
	switch m.mode {
	case ModeDisplays:
		return m.handleDisplaysKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeEvents:
		return m.handleEventsKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeDisplays
		}
		return m, nil
	}

	return m, nil
}

// handleDisplaysKey handles keys in the display list.
func (m Model) handleDisplaysKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.report != nil && m.selected < len(m.report.Displays)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.selected = 0
		return m, nil

	case key.Matches(msg, m.keys.End):
		if m.report != nil && len(m.report.Displays) > 0 {
			m.selected = len(m.report.Displays) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.selectedInfo() != nil {
			m.mode = ModeDetail
			m.syncViewport()
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Events):
		m.mode = ModeEvents
		m.syncViewport()
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if info := m.selectedInfo(); info != nil {
			return m, m.openDisplay(info.Display.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if info := m.selectedInfo(); info != nil {
			return m, m.closeDisplay(info.Display.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copySelected()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchReport
	}

	return m, nil
}

// handleDetailKey handles keys in the detail view.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeDisplays
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if info := m.selectedInfo(); info != nil {
			return m, m.openDisplay(info.Display.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Close):
		if info := m.selectedInfo(); info != nil {
			return m, m.closeDisplay(info.Display.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copySelected()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchReport
	}

	// Pass to viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleEventsKey handles keys in the event log.
func (m Model) handleEventsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeDisplays
		return m, nil

	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.follow = false
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling stops following
	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.PageUp):
		m.follow = false
	}

	// Pass to viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// selectedInfo returns the currently selected display, nil if none.
func (m Model) selectedInfo() *display.ContextInfo {
	if m.report == nil || m.selected < 0 || m.selected >= len(m.report.Displays) {
		return nil
	}
	return &m.report.Displays[m.selected]
}

// openDisplay requests the expanded surface.
func (m Model) openDisplay(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Open(id, ""); err != nil {
			return statusMsg{text: "Open failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Opened " + id, isErr: false}
	}
}

// closeDisplay requests the compact surface.
func (m Model) closeDisplay(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.CloseDisplay(id); err != nil {
			return statusMsg{text: "Close failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Closed " + id, isErr: false}
	}
}

// copySelected copies the selected display's snapshot as JSON.
func (m Model) copySelected() tea.Cmd {
	info := m.selectedInfo()
	if info == nil {
		return nil
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return func() tea.Msg {
			return copyResultMsg{err: err}
		}
	}
	return func() tea.Msg {
		return copyResultMsg{err: copyText(string(data))}
	}
}

// syncViewport refreshes the viewport content for the current mode.
func (m *Model) syncViewport() {
	switch m.mode {
	case ModeDetail:
		if info := m.selectedInfo(); info != nil {
			m.viewport.SetContent(m.renderDetail(*info))
		}
	case ModeEvents:
		m.viewport.SetContent(m.renderEvents())
		if m.follow {
			m.viewport.GotoBottom()
		}
	}
}

// bodyHeight is the viewport height under the header and above the
// keybind bar.
func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// renderDetail renders the detail view for a display.
func (m Model) renderDetail(info display.ContextInfo) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	name := info.Display.Name
	if name == "" {
		name = info.Display.ID
	}

	var s string
	s += headerStyle.Render(name) + "\n\n"

	s += labelStyle.Render("ID: ") + info.Display.ID + "\n"
	s += labelStyle.Render("Bounds: ") + fmt.Sprintf("%dx%d at %d,%d",
		int(info.Display.Bounds.W), int(info.Display.Bounds.H),
		int(info.Display.Bounds.X), int(info.Display.Bounds.Y)) + "\n"
	if info.Display.Scale > 0 {
		s += labelStyle.Render("Scale: ") + fmt.Sprintf("%.2f", info.Display.Scale) + "\n"
	}
	s += labelStyle.Render("Focused: ") + yesNo(info.Display.Focused) + "\n"

	s += "\n" + labelStyle.Render("Surface:") + "\n"
	s += labelStyle.Render("  Phase: ") + string(info.Phase) + "\n"
	s += labelStyle.Render("  Frame: ") + fmt.Sprintf("%dx%d at %d,%d",
		int(info.Frame.W), int(info.Frame.H),
		int(info.Frame.X), int(info.Frame.Y)) + "\n"
	s += labelStyle.Render("  Visible: ") + yesNo(info.Visible) + "\n"
	s += labelStyle.Render("  Hover: ") + string(info.Hover) + "\n"

	s += "\n" + labelStyle.Render("State:") + "\n"
	s += labelStyle.Render("  Current: ") + info.State.String() + "\n"
	s += labelStyle.Render("  Open: ") + yesNo(info.Open)
	if info.View != "" {
		s += "  (" + string(info.View) + ")"
	}
	s += "\n"
	s += labelStyle.Render("  Chin width: ") + fmt.Sprintf("%d", info.ChinWidth) + "\n"
	s += labelStyle.Render("  Overlay chrome: ") + yesNo(info.OverlayChrome) + "\n"

	return s
}

// renderEvents renders the event log.
func (m Model) renderEvents() string {
	if len(m.events) == 0 {
		return "No events received yet"
	}

	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	for _, e := range m.events {
		b.WriteString(timeStyle.Render(e.at.Format("15:04:05.000")))
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%-12s", e.display))
		b.WriteString(" ")
		b.WriteString(kindStyle.Render(fmt.Sprintf("%-5s", e.kind)))
		b.WriteString(" ")
		b.WriteString(e.detail)
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the monitor.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	header := m.viewHeader()

	var body string
	switch m.mode {
	case ModeDisplays:
		body = m.viewDisplays()
	case ModeDetail:
		body = m.viewport.View()
	case ModeEvents:
		body = m.viewport.View()
	case ModeHelp:
		body = m.viewHelp()
	}

	return header + "\n" + body + "\n" + m.viewFooter()
}

// viewHeader renders the daemon summary line.
func (m Model) viewHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))

	s := titleStyle.Render("ledge monitor")

	if m.reportErr != nil {
		return s + "  " + errStyle.Render("daemon unreachable: "+m.reportErr.Error()) + "\n"
	}
	if m.report == nil {
		return s + "\n"
	}

	r := m.report
	s += "  " + labelStyle.Render("ledged ") + r.Version
	s += labelStyle.Render(" pid ") + fmt.Sprintf("%d", r.PID)
	s += labelStyle.Render(" up ") + strings.TrimSpace(humanize.RelTime(r.StartedAt, time.Now(), "", ""))
	s += "  " + labelStyle.Render("locked:") + yesNo(r.Locked)
	s += " " + labelStyle.Render("shelf:") + onOff(r.Shelf)
	s += " " + labelStyle.Render("inhibitors:") + fmt.Sprintf("%d", len(r.Inhibitors))
	s += "\n"
	return s
}

// viewDisplays renders the display list.
func (m Model) viewDisplays() string {
	if m.report == nil || len(m.report.Displays) == 0 {
		return "No displays tracked"
	}

	selectedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	normalStyle := lipgloss.NewStyle()

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	for i, info := range m.report.Displays {
		cursor := "  "
		style := normalStyle
		if i == m.selected {
			cursor = "> "
			style = selectedStyle
		}

		name := info.Display.Name
		if name == "" {
			name = "-"
		}
		line := fmt.Sprintf("%-12s %-10s %4dx%-4d", info.Display.ID, name,
			int(info.Display.Bounds.W), int(info.Display.Bounds.H))
		meta := fmt.Sprintf("  phase=%-11s hover=%-9s %s",
			info.Phase, info.Hover, info.State)

		b.WriteString(cursor + style.Render(line) + dimStyle.Render(meta))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.report.Music != nil && m.report.Music.Present {
		line := "music: " + string(m.report.Music.Status)
		if m.report.Music.Title != "" {
			line += "  " + m.report.Music.Title
			if m.report.Music.Artist != "" {
				line += " - " + m.report.Music.Artist
			}
		}
		b.WriteString(dimStyle.Render(line) + "\n")
	}
	if m.report.Battery != nil && m.report.Battery.Present {
		b.WriteString(dimStyle.Render(fmt.Sprintf("battery: %.0f%% %s",
			m.report.Battery.Percentage, m.report.Battery.State)) + "\n")
	}
	if line := renderWinners(m.report.Winners); line != "" {
		b.WriteString(dimStyle.Render("winners: "+line) + "\n")
	}

	if len(m.events) > 0 {
		last := m.events[len(m.events)-1]
		b.WriteString(dimStyle.Render(fmt.Sprintf("last event: %s %s %s %s",
			last.at.Format("15:04:05"), last.display, last.kind, last.detail)))
		b.WriteString("\n")
	}

	return b.String()
}

// renderWinners renders the per-anchor winners, empty if none.
func renderWinners(res *registry.Resolution) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, anchor := range registry.ValidAnchors() {
		w := res.ForAnchor(registry.Anchor(anchor))
		if w == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s(%s)", anchor, w.Producer, w.Request.Priority))
	}
	return strings.Join(parts, " ")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"

	s += sectionStyle.Render("Navigation") + "\n"
	s += keyStyle.Render("  j/k, ↑/↓") + "     Move up/down\n"
	s += keyStyle.Render("  g/G") + "          Go to top/bottom\n"
	s += keyStyle.Render("  pgup/pgdn") + "    Page up/down\n"
	s += "\n"

	s += sectionStyle.Render("Actions") + "\n"
	s += keyStyle.Render("  enter") + "        View display details\n"
	s += keyStyle.Render("  e/tab") + "        View the live event log\n"
	s += keyStyle.Render("  f") + "            Follow new events (event log)\n"
	s += keyStyle.Render("  o") + "            Open surface on selected display\n"
	s += keyStyle.Render("  x") + "            Close surface on selected display\n"
	s += keyStyle.Render("  c") + "            Copy display snapshot as JSON\n"
	s += keyStyle.Render("  r") + "            Refresh now\n"
	s += "\n"

	s += sectionStyle.Render("General") + "\n"
	s += keyStyle.Render("  ?") + "            Toggle this help\n"
	s += keyStyle.Render("  esc") + "          Back / Cancel\n"
	s += keyStyle.Render("  q") + "            Quit\n"

	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")

	return s
}

// viewFooter renders the status message or the keybind bar.
func (m Model) viewFooter() string {
	if m.statusText != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		return statusStyle.Render(m.statusText)
	}

	switch m.mode {
	case ModeDisplays:
		return m.buildKeybindBar(m.width, "displays")
	case ModeDetail:
		return m.buildKeybindBar(m.width, "detail")
	case ModeEvents:
		return m.buildKeybindBar(m.width, "events")
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "displays", "detail", "events"
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "displays":
		// Priority order for the display list (most important first)
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "details", 2},
			{"e", "events", 3},
			{"?", "help", 4},
			{"o", "open", 5},
			{"x", "close", 6},
			{"c", "copy", 7},
			{"r", "refresh", 8},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"o", "open", 3},
			{"x", "close", 4},
			{"c", "copy", 5},
			{"j/k", "scroll", 6},
		}
	case "events":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"f", "follow", 3},
			{"g/G", "top/bottom", 4},
			{"j/k", "scroll", 5},
		}
	}

	// Build the bar, adding keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		plainItem := b.key + " " + b.desc
		testLen := len(result) + len(separator) + len(plainItem)
		if result != "" {
			testLen = len(stripANSI(result)) + len(separator) + len(plainItem)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// stripANSI removes ANSI escape codes for length calculation.
func stripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}

// RunOptions configures the monitor.
type RunOptions struct {
	// Client is the daemon connection. When nil, Run connects itself.
	Client *dbus.Client
}

// Run starts the monitor with the given options.
func Run(opts RunOptions) error {
	c := opts.Client
	if c == nil {
		var err error
		c, err = dbus.NewClient()
		if err != nil {
			return fmt.Errorf("failed to reach ledged: %w", err)
		}
		defer c.Close()
	}

	// Live events are best-effort: the dashboard still polls without them.
	var sigCh chan *godbus.Signal
	if ch, err := c.Subscribe(); err == nil {
		sigCh = ch
	}

	m := New(c, sigCh)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err := p.Run()

	if sigCh != nil {
		c.Unsubscribe(sigCh)
	}

	return err
}
