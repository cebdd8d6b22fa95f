package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/adapter"
	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/hover"
	"github.com/ledge-desktop/ledge/internal/journal"
	"github.com/ledge-desktop/ledge/internal/metrics"
	"github.com/ledge-desktop/ledge/internal/registry"
	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

// monitorQueryTimeout bounds compositor topology queries.
const monitorQueryTimeout = 2 * time.Second

// Geometry of the synthetic display served when no compositor is
// reachable.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

// Options controls daemon startup.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string
	// Version is reported over D-Bus and in status output.
	Version string
	// NoAdapters skips the compositor and bus watchers. The daemon then
	// serves a single fallback display and reacts only to D-Bus calls.
	NoAdapters bool
}

// Daemon owns every runtime component and their wiring. Construction
// builds the full graph without touching the outside world; Start
// connects the buses and the compositor.
type Daemon struct {
	logger     *slog.Logger
	opts       Options
	configPath string

	mu        sync.Mutex
	cfg       *config.DaemonConfig
	lastState map[string]string
	startedAt time.Time
	running   bool

	hub       *signals.Hub
	reg       *registry.Registry
	builder   *InputBuilder
	scheduler *TransientScheduler
	notifier  *BatteryNotifier

	pointer *pointerSwitch
	coord   *display.Coordinator

	server  *dbus.Server
	watcher *config.Watcher

	hypr       *adapter.HyprClient
	hyprEvents *adapter.HyprEventWatcher
	mpris      *adapter.MPRISWatcher
	upower     *adapter.UPowerWatcher
	logind     *adapter.LogindWatcher

	jour          *journal.Journal
	metrics       *metrics.Metrics
	metricsServer *metrics.Server

	stopCh chan struct{}
	doneCh chan struct{}
}

// pointerSwitch lets the coordinator be built before a compositor
// connection exists. Without a delegate it reports no pointer, which
// the hover machine treats as outside.
type pointerSwitch struct {
	mu  sync.Mutex
	src display.PointerSource
}

// Set installs the delegate. Passing nil reverts to no pointer.
func (p *pointerSwitch) Set(src display.PointerSource) {
	p.mu.Lock()
	p.src = src
	p.mu.Unlock()
}

// Pointer implements display.PointerSource.
func (p *pointerSwitch) Pointer() (display.Point, bool) {
	p.mu.Lock()
	src := p.src
	p.mu.Unlock()
	if src == nil {
		return display.Point{}, false
	}
	return src.Pointer()
}

// New loads configuration and assembles the component graph.
func New(opts Options, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DaemonConfigPath()
	}
	cfg, err := config.LoadDaemonConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	d := &Daemon{
		logger:     logger,
		opts:       opts,
		configPath: path,
		cfg:        cfg,
		lastState:  make(map[string]string),
		hub:        signals.NewHub(),
		reg:        registry.New(),
		pointer:    &pointerSwitch{},
		metrics:    metrics.New(),
	}

	if mp := cfg.ManifestPath(); mp != "" {
		if err := d.applyManifest(mp); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Debug("producer manifest not found", "path", mp)
			} else {
				logger.Warn("failed to apply producer manifest", "path", mp, "error", err)
			}
		}
	}

	d.coord = display.NewCoordinator(coordinatorConfig(cfg), d.pointer, logger.With("component", "coordinator"))

	d.builder = NewInputBuilder(d.hub, d.reg, cfg, logger.With("component", "input"))
	d.builder.SetInputCallback(func(in state.Input, cause string) {
		d.coord.SetBaseInput(in, cause)
	})
	d.reg.SetChangeCallback(func() {
		d.builder.Recompute("registry")
	})

	d.scheduler = NewTransientScheduler(d.hub, logger.With("component", "transients"))
	d.scheduler.UpdateHolds(cfg.Transients.PeekDuration.Duration(), cfg.Transients.ExpandingDuration.Duration())

	d.notifier = NewBatteryNotifier(logger.With("component", "notices"))
	d.notifier.UpdateConfig(cfg.Features.PowerNotices, cfg.Battery.LowPercent, cfg.Battery.CriticalPercent)
	d.notifier.SetPublishHandler(func(t state.Transient) {
		if err := d.scheduler.Notice(t); err != nil {
			logger.Warn("failed to publish battery notice", "error", err)
		}
	})

	if cfg.Debug.Journal {
		j, err := journal.New(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		d.jour = j
	}

	d.coord.SetStateCallback(d.onStateChanged)
	d.coord.SetPhaseCallback(d.onPhaseChanged)
	d.coord.SetOpenIntentCallback(func(displayID string) {
		d.metrics.RecordOpenRequest("hover")
		d.metrics.RecordHoverEngagement(displayID)
	})
	d.coord.SetCloseIntentCallback(func(displayID string) {
		d.metrics.RecordCloseRequest("hover")
	})
	d.coord.SetTickObserver(d.metrics.ObserveHeartbeatTick)

	d.server = dbus.NewServer(logger.With("component", "dbus"))
	d.server.SetVersion(opts.Version)
	d.wireBusHandlers()

	return d, nil
}

// applyManifest loads producers.yaml and registers its producers.
func (d *Daemon) applyManifest(path string) error {
	m, err := registry.LoadManifest(path)
	if err != nil {
		return err
	}
	if err := m.Apply(d.reg); err != nil {
		return err
	}
	d.logger.Info("producer manifest applied", "path", path, "producers", len(d.reg.Producers()))
	return nil
}

// coordinatorConfig maps daemon configuration onto the coordinator's.
func coordinatorConfig(cfg *config.DaemonConfig) display.Config {
	return display.Config{
		Mode:         display.Mode(cfg.Display.Mode),
		Preferred:    cfg.Display.Preferred,
		OnLock:       display.LockPolicy(cfg.Display.OnLock),
		ClosedWidth:  cfg.Surface.ClosedWidth,
		ClosedHeight: cfg.Surface.ClosedHeight,
		OpenWidth:    cfg.Surface.OpenWidth,
		OpenHeight:   cfg.Surface.OpenHeight,
		Hover: hover.Config{
			EnterDelay:     cfg.Hover.EnterDelay.Duration(),
			ExitDelay:      cfg.Hover.ExitDelay.Duration(),
			ShelfExitDelay: cfg.Hover.ShelfExitDelay.Duration(),
		},
		Heartbeat: hover.HeartbeatConfig{
			Interval: cfg.Hover.HeartbeatInterval.Duration(),
			Burst:    cfg.Hover.HintBurst.Duration(),
		},
	}
}

// Start connects to the session bus, the compositor, and the OS signal
// sources, then begins serving. Components that fail to start degrade
// the daemon rather than abort it; only the D-Bus server is required.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.startedAt = time.Now()
	d.mu.Unlock()

	if err := config.EnsureDataDir(); err != nil {
		d.logger.Warn("failed to create data directory", "error", err)
	}

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}

	if addr := d.currentConfig().Debug.MetricsListen; addr != "" {
		srv := metrics.NewServer(addr, d.metrics, d.logger.With("component", "metrics"))
		if err := srv.Start(); err != nil {
			d.logger.Warn("failed to start metrics server", "addr", addr, "error", err)
		} else {
			d.metricsServer = srv
		}
	}

	d.startAdapters()
	d.startLoop()
	d.startConfigWatcher()

	cfg := d.currentConfig()
	if cfg.Hello.Enabled {
		d.builder.StartHello(cfg.Hello.Duration.Duration())
	} else {
		d.builder.Recompute("start")
	}

	d.logger.Info("daemon started", "version", d.opts.Version, "pid", os.Getpid())
	return nil
}

// startAdapters connects the compositor and bus watchers. Failures leave
// the daemon degraded but serving: no compositor means one fallback
// display and no hover, a missing bus peer means its signals never
// arrive.
func (d *Daemon) startAdapters() {
	if d.opts.NoAdapters {
		d.logger.Info("adapters disabled, serving fallback display")
		d.reconcileFallback()
		return
	}

	client, err := adapter.NewHyprClient(d.logger.With("component", "hypr"))
	if err != nil {
		d.logger.Warn("compositor unavailable, serving fallback display", "error", err)
		d.reconcileFallback()
	} else {
		d.hypr = client
		d.pointer.Set(adapter.NewCursorSource(client))
		d.resyncDisplays()

		events := adapter.NewHyprEventWatcher(client, d.logger.With("component", "hypr"))
		events.SetEventHandler(func(ev adapter.HyprEvent) {
			if adapter.IsMonitorEvent(ev.Name) {
				d.logger.Info("display topology changed", "event", ev.Name)
				d.resyncDisplays()
			}
		})
		if err := events.Start(); err != nil {
			d.logger.Warn("failed to watch compositor events", "error", err)
		} else {
			d.hyprEvents = events
		}
	}

	mpris := adapter.NewMPRISWatcher(nil, d.logger.With("component", "mpris"))
	mpris.SetMusicHandler(func(m signals.Music) {
		if _, err := d.hub.Music.Publish(m); err != nil {
			d.logger.Debug("dropped music update", "error", err)
		}
	})
	if err := mpris.Start(); err != nil {
		d.logger.Warn("failed to start MPRIS watcher", "error", err)
	} else {
		d.mpris = mpris
	}

	upower := adapter.NewUPowerWatcher(nil, d.logger.With("component", "upower"))
	upower.SetBatteryHandler(func(b signals.Battery) {
		if _, err := d.hub.Battery.Publish(b); err != nil {
			d.logger.Debug("dropped battery update", "error", err)
		}
	})
	if err := upower.Start(); err != nil {
		d.logger.Warn("failed to start UPower watcher", "error", err)
	} else {
		d.upower = upower
	}

	lw := adapter.NewLogindWatcher(nil, d.logger.With("component", "logind"))
	lw.SetLockHandler(d.onSessionLock)
	if err := lw.Start(); err != nil {
		d.logger.Warn("failed to start logind watcher", "error", err)
	} else {
		d.logind = lw
	}
}

// startLoop launches the goroutine that serializes signal fan-in. Every
// observation is applied from this one goroutine, so adapter callbacks
// never race each other into the builder.
func (d *Daemon) startLoop() {
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	musicCh := d.hub.Music.Subscribe()
	batteryCh := d.hub.Battery.Subscribe()
	peekCh := d.hub.SneakPeek.Subscribe()
	expandCh := d.hub.ExpandingView.Subscribe()

	go d.loop(musicCh, batteryCh, peekCh, expandCh)
}

func (d *Daemon) loop(musicCh <-chan signals.MusicUpdate, batteryCh <-chan signals.BatteryUpdate, peekCh, expandCh <-chan signals.TransientUpdate) {
	defer close(d.doneCh)

	for {
		select {
		case <-d.stopCh:
			return
		case u, ok := <-musicCh:
			if !ok {
				musicCh = nil
				continue
			}
			d.builder.ObserveMusic(u.Music)
		case u, ok := <-batteryCh:
			if !ok {
				batteryCh = nil
				continue
			}
			d.notifier.Observe(u.Battery)
			d.builder.Recompute("signal:battery")
		case _, ok := <-peekCh:
			if !ok {
				peekCh = nil
				continue
			}
			d.builder.Recompute("signal:sneak-peek")
		case _, ok := <-expandCh:
			if !ok {
				expandCh = nil
				continue
			}
			d.builder.Recompute("signal:expanding-view")
		}
	}
}

// startConfigWatcher begins hot-reloading the config file.
func (d *Daemon) startConfigWatcher() {
	watcher, err := config.NewWatcher(d.configPath, d.currentConfig(), d.logger.With("component", "config"))
	if err != nil {
		d.logger.Warn("failed to watch config", "error", err)
		return
	}
	watcher.SetReloadCallback(d.applyConfig)
	watcher.SetErrorCallback(func(err error) {
		d.logger.Warn("config reload rejected", "error", err)
	})
	if err := watcher.Start(); err != nil {
		d.logger.Warn("failed to start config watcher", "error", err)
		return
	}
	d.watcher = watcher
}

// applyConfig applies the live-reloadable subset of a validated config.
// Geometry, hover timing, display policy, and debug endpoints are fixed
// at startup; a change there is logged and held until restart.
func (d *Daemon) applyConfig(cfg *config.DaemonConfig) {
	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	d.builder.ApplyConfig(cfg)
	d.scheduler.UpdateHolds(cfg.Transients.PeekDuration.Duration(), cfg.Transients.ExpandingDuration.Duration())
	d.notifier.UpdateConfig(cfg.Features.PowerNotices, cfg.Battery.LowPercent, cfg.Battery.CriticalPercent)

	if fixed := restartOnly(old, cfg); len(fixed) > 0 {
		d.logger.Warn("config changes apply on restart", "sections", strings.Join(fixed, ", "))
	}
	d.logger.Info("configuration reloaded", "path", d.configPath)
}

// restartOnly lists changed sections the daemon cannot apply live.
func restartOnly(old, next *config.DaemonConfig) []string {
	var out []string
	if old.Surface != next.Surface {
		out = append(out, "surface")
	}
	if old.Hover != next.Hover {
		out = append(out, "hover")
	}
	if old.Display != next.Display {
		out = append(out, "display")
	}
	if old.Hello != next.Hello {
		out = append(out, "hello")
	}
	if old.Plugins != next.Plugins {
		out = append(out, "plugins")
	}
	if old.Debug != next.Debug {
		out = append(out, "debug")
	}
	return out
}

// onSessionLock forwards logind lock state. Unlock re-reads topology:
// under the destroy policy the lock tore every context down.
func (d *Daemon) onSessionLock(locked bool) {
	d.coord.SetLocked(locked)
	if !locked {
		d.resyncDisplays()
	}
}

// resyncDisplays reconciles the coordinator against the compositor's
// current monitor list.
func (d *Daemon) resyncDisplays() {
	if d.hypr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), monitorQueryTimeout)
	defer cancel()

	monitors, err := d.hypr.Monitors(ctx)
	if err != nil {
		d.logger.Warn("failed to query monitors", "error", err)
		return
	}
	d.coord.Reconcile(monitors)
	d.metrics.SetDisplays(d.coord.ContextCount())
}

// reconcileFallback serves the synthetic single display.
func (d *Daemon) reconcileFallback() {
	d.coord.Reconcile([]display.Display{adapter.FallbackDisplay(fallbackWidth, fallbackHeight)})
	d.metrics.SetDisplays(d.coord.ContextCount())
}

// onStateChanged fans one display transition out to the journal,
// metrics, and the renderer signal.
func (d *Daemon) onStateChanged(displayID string, st state.DisplayState, cause string) {
	d.mu.Lock()
	from := d.lastState[displayID]
	d.lastState[displayID] = st.String()
	closedW := d.cfg.Surface.ClosedWidth
	closedH := d.cfg.Surface.ClosedHeight
	d.mu.Unlock()

	d.metrics.RecordTransition(displayID, st)

	if d.jour != nil {
		rec, err := journal.NewRecord(displayID, from, st.String(), cause)
		if err == nil {
			err = d.jour.Append(rec)
		}
		if err != nil {
			d.metrics.RecordJournalError()
			d.logger.Warn("failed to journal transition", "display", displayID, "error", err)
		} else {
			d.metrics.RecordJournalRecord()
		}
	}

	payload := dbus.StatePayload{
		State:         st,
		ChinWidth:     state.ChinWidth(st, closedW, closedH),
		OverlayChrome: state.ShowsOverlayChrome(st),
	}
	if err := d.server.EmitStateChanged(displayID, payload); err != nil {
		d.logger.Debug("failed to emit state change", "display", displayID, "error", err)
	}
}

// onPhaseChanged forwards surface lifecycle to the renderer signal.
func (d *Daemon) onPhaseChanged(displayID string, phase display.Phase) {
	if err := d.server.EmitSurfacePhase(displayID, string(phase)); err != nil {
		d.logger.Debug("failed to emit surface phase", "display", displayID, "error", err)
	}
}

// wireBusHandlers connects D-Bus methods to the components.
func (d *Daemon) wireBusHandlers() {
	d.server.SetStatusHandler(d.status)
	d.server.SetDisplaysHandler(func() []display.ContextInfo {
		return d.coord.Contexts()
	})
	d.server.SetPeekHandler(func(event state.EventKind, value float64, icon string) error {
		err := d.scheduler.Peek(state.Transient{Show: true, Event: event, Value: value, Icon: icon})
		d.metrics.RecordBusCall("Peek", err)
		if err == nil {
			d.metrics.RecordTransient(event)
		}
		return err
	})
	d.server.SetNoticeHandler(func(event state.EventKind, value float64, icon string) error {
		err := d.scheduler.Notice(state.Transient{Show: true, Event: event, Value: value, Icon: icon})
		d.metrics.RecordBusCall("Notice", err)
		if err == nil {
			d.metrics.RecordTransient(event)
		}
		return err
	})
	d.server.SetOpenHandler(func(displayID, view string) error {
		err := d.openDisplays(displayID, state.ViewID(view))
		d.metrics.RecordBusCall("Open", err)
		if err == nil {
			d.metrics.RecordOpenRequest("dbus")
		}
		return err
	})
	d.server.SetCloseHandler(func(displayID string) error {
		err := d.closeDisplays(displayID)
		d.metrics.RecordBusCall("Close", err)
		if err == nil {
			d.metrics.RecordCloseRequest("dbus")
		}
		return err
	})
	d.server.SetShelfHandler(func(active bool) {
		d.coord.SetShelfActive(active)
		d.metrics.RecordBusCall("SetShelf", nil)
	})
	d.server.SetInhibitorHandlers(
		func(name string) {
			d.coord.AddInhibitor(name)
			d.metrics.SetInhibitors(len(d.coord.Inhibitors()))
			d.metrics.RecordBusCall("AddInhibitor", nil)
		},
		func(name string) {
			d.coord.RemoveInhibitor(name)
			d.metrics.SetInhibitors(len(d.coord.Inhibitors()))
			d.metrics.RecordBusCall("RemoveInhibitor", nil)
		},
	)
	d.server.SetHintHandler(func(displayID string) {
		d.coord.HoverHint(displayID)
	})
}

// openDisplays opens one display, or every display when id is empty.
// An empty selector mirrors the hover hint convention.
func (d *Daemon) openDisplays(id string, view state.ViewID) error {
	if id != "" {
		return d.coord.RequestOpen(id, view)
	}
	var firstErr error
	for _, info := range d.coord.Contexts() {
		if err := d.coord.RequestOpen(info.Display.ID, view); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// closeDisplays closes one display, or every display when id is empty.
func (d *Daemon) closeDisplays(id string) error {
	if id != "" {
		return d.coord.RequestClose(id)
	}
	var firstErr error
	for _, info := range d.coord.Contexts() {
		if err := d.coord.RequestClose(info.Display.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// status assembles the live report served over D-Bus.
func (d *Daemon) status() dbus.StatusReport {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	report := dbus.StatusReport{
		Version:    d.opts.Version,
		PID:        os.Getpid(),
		StartedAt:  startedAt,
		Locked:     d.coord.Locked(),
		Shelf:      d.coord.ShelfActive(),
		Inhibitors: d.coord.Inhibitors(),
		Displays:   d.coord.Contexts(),
	}

	if u, ok := d.hub.Music.Latest(); ok {
		music := u.Music
		report.Music = &music
	}
	if u, ok := d.hub.Battery.Latest(); ok {
		battery := u.Battery
		report.Battery = &battery
	}
	if res := d.reg.ResolveAll(); res.Center != nil || res.Left != nil ||
		res.Right != nil || res.Replace != nil {
		report.Winners = &res
	}

	return report
}

// currentConfig returns the active configuration snapshot.
func (d *Daemon) currentConfig() *config.DaemonConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Stop tears the daemon down in reverse dependency order. Safe to call
// more than once.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	if d.watcher != nil {
		_ = d.watcher.Stop()
	}
	if d.hyprEvents != nil {
		d.hyprEvents.Stop()
	}
	if d.mpris != nil {
		d.mpris.Stop()
	}
	if d.upower != nil {
		d.upower.Stop()
	}
	if d.logind != nil {
		d.logind.Stop()
	}

	if d.stopCh != nil {
		close(d.stopCh)
		<-d.doneCh
	}

	d.scheduler.Stop()
	d.builder.Stop()
	d.coord.Stop()

	if err := d.server.Stop(); err != nil {
		d.logger.Warn("failed to stop D-Bus server", "error", err)
	}
	if d.metricsServer != nil {
		d.metricsServer.Stop()
	}
	if d.jour != nil {
		if err := d.jour.Close(); err != nil {
			d.logger.Warn("failed to close journal", "error", err)
		}
	}
	d.metrics.Close()
	d.hub.Close()

	d.logger.Info("daemon stopped")
}
