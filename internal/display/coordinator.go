package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/hover"
	"github.com/ledge-desktop/ledge/internal/state"
)

// ErrUnknownDisplay is returned for operations on a display that has no
// live context.
var ErrUnknownDisplay = errors.New("unknown display")

// ErrSessionLocked is returned when an open is requested while the
// session is locked.
var ErrSessionLocked = errors.New("session locked")

// Default surface geometry.
const (
	DefaultClosedWidth  = 320
	DefaultClosedHeight = 36
	DefaultOpenWidth    = 640
	DefaultOpenHeight   = 280
)

// PointerSource supplies the pointer's current global position. A false
// result means the position is unavailable, which the hover machinery
// treats as "outside".
type PointerSource interface {
	Pointer() (Point, bool)
}

// StateCallback is called when a display's authoritative state changes.
// cause is a short label for journaling and metrics ("hover-open",
// "signal:music", ...).
type StateCallback func(displayID string, st state.DisplayState, cause string)

// PhaseCallback is called when a display surface changes lifecycle phase.
type PhaseCallback func(displayID string, phase Phase)

// IntentCallback observes hover open/close intents before they apply.
type IntentCallback func(displayID string)

// TickObserver times completed hover samples.
type TickObserver func(elapsed time.Duration)

// Config holds the coordinator's operating parameters.
type Config struct {
	Mode      Mode
	Preferred string
	OnLock    LockPolicy

	ClosedWidth  int
	ClosedHeight int
	OpenWidth    int
	OpenHeight   int

	Hover     hover.Config
	Heartbeat hover.HeartbeatConfig
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeAll
	}
	if c.OnLock == "" {
		c.OnLock = LockHide
	}
	if c.ClosedWidth <= 0 {
		c.ClosedWidth = DefaultClosedWidth
	}
	if c.ClosedHeight <= 0 {
		c.ClosedHeight = DefaultClosedHeight
	}
	if c.OpenWidth <= 0 {
		c.OpenWidth = DefaultOpenWidth
	}
	if c.OpenHeight <= 0 {
		c.OpenHeight = DefaultOpenHeight
	}
	return c
}

// displayContext is the per-display bundle: surface geometry and phase,
// open/view flags, the hover controller, and its heartbeat.
type displayContext struct {
	display Display
	phase   Phase
	frame   Rect
	visible bool

	open bool
	view state.ViewID

	last    state.DisplayState
	hasLast bool

	ctl *hover.Controller
	hb  *hover.Heartbeat
}

// ContextInfo is an introspection snapshot of one display context.
type ContextInfo struct {
	Display       Display            `json:"display"`
	Phase         Phase              `json:"phase"`
	Frame         Rect               `json:"frame"`
	Visible       bool               `json:"visible"`
	Open          bool               `json:"open"`
	View          state.ViewID       `json:"view,omitempty"`
	Hover         hover.Phase        `json:"hover"`
	State         state.DisplayState `json:"state"`
	ChinWidth     int                `json:"chin_width"`
	OverlayChrome bool               `json:"overlay_chrome"`
}

type phaseEvent struct {
	id    string
	phase Phase
}

type stateEvent struct {
	id    string
	st    state.DisplayState
	cause string
}

// Coordinator owns the set of display contexts. All exported operations
// are safe for concurrent use; callbacks fire after internal locks are
// released, in deterministic display order.
type Coordinator struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	cfg     Config
	pointer PointerSource

	contexts map[string]*displayContext
	base     state.Input
	locked   bool
	shelf    bool

	inhibitors map[string]struct{}

	onState       StateCallback
	onPhase       PhaseCallback
	onOpenIntent  IntentCallback
	onCloseIntent IntentCallback
	onTick        TickObserver
}

// NewCoordinator creates a Coordinator with no contexts. pointer may be
// nil, in which case hover sampling always reads "outside".
func NewCoordinator(cfg Config, pointer PointerSource, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		logger:     logger,
		cfg:        cfg.withDefaults(),
		pointer:    pointer,
		contexts:   make(map[string]*displayContext),
		inhibitors: make(map[string]struct{}),
	}
}

// SetStateCallback sets the state-change notification.
func (c *Coordinator) SetStateCallback(cb StateCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = cb
}

// SetPhaseCallback sets the surface lifecycle notification.
func (c *Coordinator) SetPhaseCallback(cb PhaseCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPhase = cb
}

// SetOpenIntentCallback sets the observer for hover open intents.
func (c *Coordinator) SetOpenIntentCallback(cb IntentCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpenIntent = cb
}

// SetCloseIntentCallback sets the observer for hover close intents.
func (c *Coordinator) SetCloseIntentCallback(cb IntentCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCloseIntent = cb
}

// SetTickObserver sets the observer for hover sample timing.
func (c *Coordinator) SetTickObserver(cb TickObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = cb
}

// Reconcile diffs the current display set against known contexts:
// contexts for departed displays are destroyed, newly attached displays
// get fresh contexts, retained displays have their geometry refreshed.
// Calling it twice with the same set is a no-op on the second call.
func (c *Coordinator) Reconcile(displays []Display) {
	c.mu.Lock()

	desired := make(map[string]Display, len(displays))
	if !(c.locked && c.cfg.OnLock == LockDestroy) {
		for _, d := range displays {
			if d.ID == "" {
				c.logger.Warn("ignoring display without stable id", "name", d.Name)
				continue
			}
			desired[d.ID] = d
		}
	}

	var (
		phases  []phaseEvent
		states  []stateEvent
		started []*hover.Heartbeat
		stopped []*hover.Heartbeat
	)

	// Destroy contexts for departed displays.
	for _, id := range c.sortedIDsLocked() {
		if _, keep := desired[id]; keep {
			continue
		}
		ctx := c.contexts[id]
		c.transitionLocked(ctx, PhaseDestroyed, &phases)
		stopped = append(stopped, ctx.hb)
		delete(c.contexts, id)
		c.logger.Info("display detached", "display", id)
	}

	// Refresh geometry on retained displays.
	changed := false
	for id, d := range desired {
		ctx, ok := c.contexts[id]
		if !ok || ctx.display == d {
			continue
		}
		ctx.display = d
		changed = true
	}

	// Create contexts for newly attached displays.
	created := false
	for _, d := range sortedDisplays(desired) {
		if _, exists := c.contexts[d.ID]; exists {
			continue
		}
		ctx := c.newContextLocked(d)
		c.contexts[d.ID] = ctx
		c.transitionLocked(ctx, PhaseCreated, &phases)
		started = append(started, ctx.hb)
		created = true
		c.logger.Info("display attached",
			"display", d.ID,
			"name", d.Name,
			"bounds", d.Bounds,
		)
	}

	if created || changed || len(stopped) > 0 {
		c.adjustAllLocked(true, &phases)
		for _, id := range c.sortedIDsLocked() {
			if ev := c.recomputeLocked(c.contexts[id], "reconcile"); ev != nil {
				states = append(states, *ev)
			}
		}
	}

	c.mu.Unlock()

	for _, hb := range stopped {
		hb.Stop()
	}
	for _, hb := range started {
		hb.Start()
	}
	c.fire(phases, states)
}

// newContextLocked builds a context with its hover controller and
// heartbeat wired to this coordinator. Caller must hold the lock.
func (c *Coordinator) newContextLocked(d Display) *displayContext {
	id := d.ID
	ctl := hover.New(c.cfg.Hover)
	ctl.SetOpenCallback(func() { c.hoverOpen(id) })
	ctl.SetCloseCallback(func() { c.hoverClose(id) })
	ctl.SetPreventCloseCheck(c.Inhibited)
	ctl.SetShelfActive(c.shelf)

	hb := hover.NewHeartbeat(c.cfg.Heartbeat, func(now time.Time) {
		c.sample(id, now)
	}, c.logger.With("display", id))

	return &displayContext{
		display: d,
		phase:   PhaseUninitialized,
		view:    state.ViewHome,
		ctl:     ctl,
		hb:      hb,
	}
}

// sample is one heartbeat tick: read the pointer, test it against the
// surface frame, advance the hover machine. Missing pointer or frame data
// reads as "outside".
func (c *Coordinator) sample(id string, now time.Time) {
	start := time.Now()

	inside := false
	if c.pointer != nil {
		if pt, ok := c.pointer.Pointer(); ok {
			if frame, fok := c.Frame(id); fok {
				inside = frame.Contains(pt)
			}
		}
	}

	c.mu.RLock()
	var ctl *hover.Controller
	if ctx, ok := c.contexts[id]; ok {
		ctl = ctx.ctl
	}
	onTick := c.onTick
	c.mu.RUnlock()

	if ctl != nil {
		ctl.Tick(now, inside)
	}
	if onTick != nil {
		onTick(time.Since(start))
	}
}

// Frame returns the surface rectangle hover sampling must test against.
// It reports false while the surface is hidden, locked, or gone, which
// fails closed.
func (c *Coordinator) Frame(displayID string) (Rect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, ok := c.contexts[displayID]
	if !ok || !ctx.visible || ctx.phase != PhasePositioned || ctx.frame.Empty() {
		return Rect{}, false
	}
	return ctx.frame, true
}

func (c *Coordinator) hoverOpen(id string) {
	c.mu.RLock()
	cb := c.onOpenIntent
	c.mu.RUnlock()
	if cb != nil {
		cb(id)
	}
	if err := c.open(id, "", "hover-open"); err != nil {
		c.logger.Debug("hover open intent dropped", "display", id, "error", err)
	}
}

func (c *Coordinator) hoverClose(id string) {
	c.mu.RLock()
	cb := c.onCloseIntent
	c.mu.RUnlock()
	if cb != nil {
		cb(id)
	}
	if err := c.close(id, "hover-close"); err != nil {
		c.logger.Debug("hover close intent dropped", "display", id, "error", err)
	}
}

// RequestOpen opens the expanded surface on a display. An empty view
// keeps the display's current view.
func (c *Coordinator) RequestOpen(displayID string, view state.ViewID) error {
	return c.open(displayID, view, "request-open")
}

// RequestClose collapses the expanded surface on a display.
func (c *Coordinator) RequestClose(displayID string) error {
	return c.close(displayID, "request-close")
}

func (c *Coordinator) open(displayID string, view state.ViewID, cause string) error {
	c.mu.Lock()
	if c.locked {
		c.mu.Unlock()
		return ErrSessionLocked
	}
	ctx, ok := c.contexts[displayID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDisplay, displayID)
	}
	if view == "" {
		view = ctx.view
	}
	if !state.ValidView(view) {
		c.mu.Unlock()
		return fmt.Errorf("invalid view %q", view)
	}
	if ctx.open && ctx.view == view {
		c.mu.Unlock()
		return nil
	}

	ctx.open = true
	ctx.view = view

	var phases []phaseEvent
	var states []stateEvent
	c.adjustLocked(ctx, false, "", &phases)
	if ev := c.recomputeLocked(ctx, cause); ev != nil {
		states = append(states, *ev)
	}
	hb := ctx.hb
	c.mu.Unlock()

	hb.Arm()
	c.fire(phases, states)
	return nil
}

func (c *Coordinator) close(displayID string, cause string) error {
	c.mu.Lock()
	ctx, ok := c.contexts[displayID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDisplay, displayID)
	}
	if !ctx.open {
		c.mu.Unlock()
		return nil
	}

	ctx.open = false
	// Drop any half-finished hover transition so a stale exit cannot fire
	// against the next open.
	ctx.ctl.Reset()

	var phases []phaseEvent
	var states []stateEvent
	c.adjustLocked(ctx, false, "", &phases)
	if ev := c.recomputeLocked(ctx, cause); ev != nil {
		states = append(states, *ev)
	}
	hb := ctx.hb
	c.mu.Unlock()

	hb.Park()
	c.fire(phases, states)
	return nil
}

// SetBaseInput replaces the shared arbiter input and recomputes every
// display. cause labels the resulting state changes.
func (c *Coordinator) SetBaseInput(in state.Input, cause string) {
	c.mu.Lock()
	c.base = in
	var states []stateEvent
	for _, id := range c.sortedIDsLocked() {
		if ev := c.recomputeLocked(c.contexts[id], cause); ev != nil {
			states = append(states, *ev)
		}
	}
	c.mu.Unlock()
	c.fire(nil, states)
}

// BaseInput returns the current shared arbiter input.
func (c *Coordinator) BaseInput() state.Input {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

// recomputeLocked re-runs the arbiter for one display and reports a state
// event when the result changed. Caller must hold the lock.
func (c *Coordinator) recomputeLocked(ctx *displayContext, cause string) *stateEvent {
	if ctx.phase == PhaseDestroyed {
		return nil
	}
	in := c.base
	in.Open = ctx.open
	in.CurrentView = ctx.view
	st := state.Compute(in)
	if ctx.hasLast && st == ctx.last {
		return nil
	}
	ctx.last = st
	ctx.hasLast = true
	return &stateEvent{id: ctx.display.ID, st: st, cause: cause}
}

// AdjustPosition recomputes the surface rectangle for one display. With
// changeVisibility it also re-applies the all-displays/preferred-display
// visibility rule.
func (c *Coordinator) AdjustPosition(displayID string, changeVisibility bool) error {
	c.mu.Lock()
	ctx, ok := c.contexts[displayID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDisplay, displayID)
	}
	var phases []phaseEvent
	preferred := ""
	if c.cfg.Mode == ModePreferred {
		preferred = c.preferredLocked()
	}
	c.adjustLocked(ctx, changeVisibility, preferred, &phases)
	c.mu.Unlock()
	c.fire(phases, nil)
	return nil
}

// RepositionAll recomputes every surface rectangle and visibility.
func (c *Coordinator) RepositionAll() {
	c.mu.Lock()
	var phases []phaseEvent
	c.adjustAllLocked(true, &phases)
	c.mu.Unlock()
	c.fire(phases, nil)
}

// adjustAllLocked positions every context. Caller must hold the lock.
func (c *Coordinator) adjustAllLocked(changeVisibility bool, phases *[]phaseEvent) {
	preferred := ""
	if c.cfg.Mode == ModePreferred {
		preferred = c.preferredLocked()
	}
	for _, id := range c.sortedIDsLocked() {
		c.adjustLocked(c.contexts[id], changeVisibility, preferred, phases)
	}
}

// adjustLocked recomputes one context's frame and, optionally, its
// visibility under the operating mode. Caller must hold the lock.
func (c *Coordinator) adjustLocked(ctx *displayContext, changeVisibility bool, preferred string, phases *[]phaseEvent) {
	w, h := float64(c.cfg.ClosedWidth), float64(c.cfg.ClosedHeight)
	if ctx.open {
		w, h = float64(c.cfg.OpenWidth), float64(c.cfg.OpenHeight)
	}
	ctx.frame = ctx.display.Bounds.CenteredAtTop(w, h)

	if changeVisibility {
		switch c.cfg.Mode {
		case ModePreferred:
			ctx.visible = ctx.display.ID == preferred
		default:
			ctx.visible = true
		}
	}

	if ctx.phase == PhaseCreated {
		c.transitionLocked(ctx, PhasePositioned, phases)
		if c.locked && c.cfg.OnLock == LockHide {
			c.transitionLocked(ctx, PhaseLocked, phases)
		}
	}
}

// preferredLocked picks the display that carries the surface in preferred
// mode: the configured ID or name if attached, else the focused display,
// else the first by ID. Caller must hold the lock.
func (c *Coordinator) preferredLocked() string {
	want := c.cfg.Preferred
	var focused, first string
	for _, id := range c.sortedIDsLocked() {
		ctx := c.contexts[id]
		if want != "" && (id == want || ctx.display.Name == want) {
			return id
		}
		if focused == "" && ctx.display.Focused {
			focused = id
		}
		if first == "" {
			first = id
		}
	}
	if focused != "" {
		return focused
	}
	return first
}

// transitionLocked applies a lifecycle transition, dropping invalid ones
// with a warning. Caller must hold the lock.
func (c *Coordinator) transitionLocked(ctx *displayContext, to Phase, phases *[]phaseEvent) bool {
	if ctx.phase == to {
		return false
	}
	if !CanTransition(ctx.phase, to) {
		c.logger.Warn("invalid surface phase transition",
			"display", ctx.display.ID,
			"from", ctx.phase,
			"to", to,
		)
		return false
	}
	ctx.phase = to
	*phases = append(*phases, phaseEvent{id: ctx.display.ID, phase: to})
	return true
}

// SetLocked applies session lock or unlock. The lock policy decides
// whether surfaces are destroyed or held in privacy mode; unlock restores
// positions. Destroyed surfaces come back via the next Reconcile.
func (c *Coordinator) SetLocked(locked bool) {
	c.mu.Lock()
	if c.locked == locked {
		c.mu.Unlock()
		return
	}
	c.locked = locked

	var (
		phases  []phaseEvent
		states  []stateEvent
		stopped []*hover.Heartbeat
	)

	if locked {
		switch c.cfg.OnLock {
		case LockDestroy:
			for _, id := range c.sortedIDsLocked() {
				ctx := c.contexts[id]
				c.transitionLocked(ctx, PhaseDestroyed, &phases)
				stopped = append(stopped, ctx.hb)
				delete(c.contexts, id)
			}
		default:
			for _, id := range c.sortedIDsLocked() {
				ctx := c.contexts[id]
				if ctx.open {
					ctx.open = false
					ctx.ctl.Reset()
					ctx.hb.Park()
					c.adjustLocked(ctx, false, "", &phases)
					if ev := c.recomputeLocked(ctx, "lock"); ev != nil {
						states = append(states, *ev)
					}
				}
				c.transitionLocked(ctx, PhaseLocked, &phases)
			}
		}
	} else {
		for _, id := range c.sortedIDsLocked() {
			c.transitionLocked(c.contexts[id], PhasePositioned, &phases)
		}
		c.adjustAllLocked(true, &phases)
		for _, id := range c.sortedIDsLocked() {
			if ev := c.recomputeLocked(c.contexts[id], "unlock"); ev != nil {
				states = append(states, *ev)
			}
		}
	}
	c.mu.Unlock()

	for _, hb := range stopped {
		hb.Stop()
	}
	c.fire(phases, states)
	c.logger.Info("session lock state applied", "locked", locked)
}

// Locked reports whether the session is currently locked.
func (c *Coordinator) Locked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locked
}

// SetShelfActive toggles shelf mode on every display's hover controller.
func (c *Coordinator) SetShelfActive(active bool) {
	c.mu.Lock()
	c.shelf = active
	for _, ctx := range c.contexts {
		ctx.ctl.SetShelfActive(active)
	}
	c.mu.Unlock()
	c.logger.Debug("shelf mode", "active", active)
}

// ShelfActive reports whether shelf mode is on.
func (c *Coordinator) ShelfActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shelf
}

// AddInhibitor registers a named prevent-close condition.
func (c *Coordinator) AddInhibitor(name string) {
	c.mu.Lock()
	c.inhibitors[name] = struct{}{}
	c.mu.Unlock()
	c.logger.Debug("close inhibitor added", "name", name)
}

// RemoveInhibitor clears a named prevent-close condition.
func (c *Coordinator) RemoveInhibitor(name string) {
	c.mu.Lock()
	delete(c.inhibitors, name)
	c.mu.Unlock()
	c.logger.Debug("close inhibitor removed", "name", name)
}

// ClearInhibitors removes every prevent-close condition.
func (c *Coordinator) ClearInhibitors() {
	c.mu.Lock()
	c.inhibitors = make(map[string]struct{})
	c.mu.Unlock()
}

// Inhibitors returns the active inhibitor names, sorted.
func (c *Coordinator) Inhibitors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.inhibitors))
	for name := range c.inhibitors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Inhibited reports whether any prevent-close condition holds. Sampled by
// hover controllers at close-fire time.
func (c *Coordinator) Inhibited() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.inhibitors) > 0
}

// HoverHint forwards a raw enter/exit notification: the display's
// heartbeat runs an immediate tick and, if parked, a short burst. An
// empty displayID hints every display.
func (c *Coordinator) HoverHint(displayID string) {
	c.mu.RLock()
	var hbs []*hover.Heartbeat
	if displayID == "" {
		for _, ctx := range c.contexts {
			hbs = append(hbs, ctx.hb)
		}
	} else if ctx, ok := c.contexts[displayID]; ok {
		hbs = append(hbs, ctx.hb)
	}
	c.mu.RUnlock()

	for _, hb := range hbs {
		hb.Kick()
	}
}

// Contexts returns introspection snapshots in display-ID order.
func (c *Coordinator) Contexts() []ContextInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ContextInfo, 0, len(c.contexts))
	for _, id := range c.sortedIDsLocked() {
		ctx := c.contexts[id]
		out = append(out, ContextInfo{
			Display:       ctx.display,
			Phase:         ctx.phase,
			Frame:         ctx.frame,
			Visible:       ctx.visible,
			Open:          ctx.open,
			View:          ctx.view,
			Hover:         ctx.ctl.Phase(),
			State:         ctx.last,
			ChinWidth:     state.ChinWidth(ctx.last, c.cfg.ClosedWidth, c.cfg.ClosedHeight),
			OverlayChrome: state.ShowsOverlayChrome(ctx.last),
		})
	}
	return out
}

// ContextCount returns the number of live display contexts.
func (c *Coordinator) ContextCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contexts)
}

// OpenCount returns how many displays currently show the expanded surface.
func (c *Coordinator) OpenCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ctx := range c.contexts {
		if ctx.open {
			n++
		}
	}
	return n
}

// Stop destroys every context and stops their heartbeats.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	var phases []phaseEvent
	var stopped []*hover.Heartbeat
	for _, id := range c.sortedIDsLocked() {
		ctx := c.contexts[id]
		c.transitionLocked(ctx, PhaseDestroyed, &phases)
		stopped = append(stopped, ctx.hb)
		delete(c.contexts, id)
	}
	c.mu.Unlock()

	for _, hb := range stopped {
		hb.Stop()
	}
	c.fire(phases, nil)
	c.logger.Info("display coordinator stopped")
}

// sortedIDsLocked returns context IDs in stable order. Caller must hold
// the lock.
func (c *Coordinator) sortedIDsLocked() []string {
	ids := make([]string, 0, len(c.contexts))
	for id := range c.contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fire delivers collected notifications outside the lock, phases first.
func (c *Coordinator) fire(phases []phaseEvent, states []stateEvent) {
	c.mu.RLock()
	onPhase := c.onPhase
	onState := c.onState
	c.mu.RUnlock()

	for _, ev := range phases {
		if onPhase != nil {
			onPhase(ev.id, ev.phase)
		}
	}
	for _, ev := range states {
		c.logger.Debug("display state changed",
			"display", ev.id,
			"state", ev.st,
			"cause", ev.cause,
		)
		if onState != nil {
			onState(ev.id, ev.st, ev.cause)
		}
	}
}

// sortedDisplays returns map values ordered by ID.
func sortedDisplays(m map[string]Display) []Display {
	out := make([]Display, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
