package adapter

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/ledge-desktop/ledge/internal/signals"
)

const (
	mprisNamePrefix  = "org.mpris.MediaPlayer2."
	mprisObjectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	propertiesIface  = "org.freedesktop.DBus.Properties"
)

// MusicHandler receives the merged music state after each player change.
type MusicHandler func(m signals.Music)

// MusicChange is the delta carried by one PropertiesChanged signal.
// Nil fields were not part of the signal.
type MusicChange struct {
	Status *signals.PlaybackStatus
	Title  *string
	Artist *string
	Album  *string
	ArtURL *string
}

// apply merges the change into a music snapshot.
func (c MusicChange) apply(m signals.Music) signals.Music {
	if c.Status != nil {
		m.Status = *c.Status
	}
	if c.Title != nil {
		m.Title = *c.Title
	}
	if c.Artist != nil {
		m.Artist = *c.Artist
	}
	if c.Album != nil {
		m.Album = *c.Album
	}
	if c.ArtURL != nil {
		m.ArtURL = *c.ArtURL
	}
	return m
}

// ParsePlaybackStatus normalizes an MPRIS PlaybackStatus value.
func ParsePlaybackStatus(s string) signals.PlaybackStatus {
	switch strings.ToLower(s) {
	case "playing":
		return signals.PlaybackPlaying
	case "paused":
		return signals.PlaybackPaused
	default:
		return signals.PlaybackStopped
	}
}

// ParseMPRISProperties extracts a music change from a PropertiesChanged
// signal on the MPRIS player object. Returns ok=false for signals that
// carry nothing of interest.
func ParseMPRISProperties(sig *dbus.Signal) (MusicChange, bool) {
	if sig == nil || sig.Name != propertiesIface+".PropertiesChanged" {
		return MusicChange{}, false
	}
	if sig.Path != mprisObjectPath {
		return MusicChange{}, false
	}
	if len(sig.Body) < 2 {
		return MusicChange{}, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != mprisPlayerIface {
		return MusicChange{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return MusicChange{}, false
	}

	return changeFromProperties(changed)
}

// changeFromProperties extracts the fields the daemon cares about from a
// player property map. Shared by the signal path and the GetAll seed.
func changeFromProperties(props map[string]dbus.Variant) (MusicChange, bool) {
	var change MusicChange
	found := false

	if v, ok := props["PlaybackStatus"]; ok {
		if s, ok := v.Value().(string); ok {
			status := ParsePlaybackStatus(s)
			change.Status = &status
			found = true
		}
	}

	if v, ok := props["Metadata"]; ok {
		if meta, ok := v.Value().(map[string]dbus.Variant); ok {
			if title, ok := metadataString(meta, "xesam:title"); ok {
				change.Title = &title
				found = true
			}
			if album, ok := metadataString(meta, "xesam:album"); ok {
				change.Album = &album
				found = true
			}
			if art, ok := metadataString(meta, "mpris:artUrl"); ok {
				change.ArtURL = &art
				found = true
			}
			if v, ok := meta["xesam:artist"]; ok {
				// Artist is an array of strings per the MPRIS spec
				if artists, ok := v.Value().([]string); ok {
					artist := strings.Join(artists, ", ")
					change.Artist = &artist
					found = true
				}
			}
		}
	}

	return change, found
}

// metadataString reads a string-valued metadata field.
func metadataString(meta map[string]dbus.Variant, key string) (string, bool) {
	v, ok := meta[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// ParseNameOwnerChanged extracts the payload of a NameOwnerChanged signal.
func ParseNameOwnerChanged(sig *dbus.Signal) (name, oldOwner, newOwner string, ok bool) {
	if sig == nil || sig.Name != "org.freedesktop.DBus.NameOwnerChanged" {
		return "", "", "", false
	}
	if len(sig.Body) < 3 {
		return "", "", "", false
	}
	name, okName := sig.Body[0].(string)
	oldOwner, okOld := sig.Body[1].(string)
	newOwner, okNew := sig.Body[2].(string)
	if !okName || !okOld || !okNew {
		return "", "", "", false
	}
	return name, oldOwner, newOwner, true
}

// playerShortName strips the MPRIS prefix from a well-known name.
func playerShortName(wellKnown string) string {
	return strings.TrimPrefix(wellKnown, mprisNamePrefix)
}

// MPRISWatcher tracks MPRIS players on the session bus and reports
// merged music state. When several players are present it follows the
// one that most recently reported playback.
type MPRISWatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	conn    *dbus.Conn
	handler MusicHandler

	current signals.Music
	owner   string            // unique bus name of the player being followed
	names   map[string]string // unique name -> well-known name

	sigCh   chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewMPRISWatcher creates a watcher. A nil conn connects to the session
// bus on Start; passing the daemon's existing connection avoids a second
// bus client.
func NewMPRISWatcher(conn *dbus.Conn, logger *slog.Logger) *MPRISWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MPRISWatcher{
		logger: logger,
		conn:   conn,
		names:  make(map[string]string),
	}
}

// SetMusicHandler sets the callback for music state changes.
func (w *MPRISWatcher) SetMusicHandler(handler MusicHandler) {
	w.handler = handler
}

// Current returns the latest merged music state.
func (w *MPRISWatcher) Current() signals.Music {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start subscribes to player property changes and seeds state from
// players already on the bus.
func (w *MPRISWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if w.conn == nil {
		conn, err := dbus.SessionBus()
		if err != nil {
			return &AdapterError{
				Source:  "mpris",
				Message: "failed to connect to session bus",
				Err:     err,
			}
		}
		w.conn = conn
	}

	err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(mprisObjectPath),
	)
	if err != nil {
		return &AdapterError{
			Source:  "mpris",
			Message: "failed to match property changes",
			Err:     err,
		}
	}

	err = w.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg0Namespace("org.mpris.MediaPlayer2"),
	)
	if err != nil {
		return &AdapterError{
			Source:  "mpris",
			Message: "failed to match name owner changes",
			Err:     err,
		}
	}

	w.mu.Lock()
	w.sigCh = make(chan *dbus.Signal, 32)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	w.conn.Signal(w.sigCh)
	w.seedPlayers()

	go w.watch()

	w.logger.Debug("started MPRIS watcher")
	return nil
}

// seedPlayers reads players already registered on the bus.
func (w *MPRISWatcher) seedPlayers() {
	var names []string
	err := w.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		w.logger.Warn("failed to list bus names", "error", err)
		return
	}

	for _, name := range names {
		if !strings.HasPrefix(name, mprisNamePrefix) {
			continue
		}

		var owner string
		if err := w.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner); err != nil {
			continue
		}

		var props map[string]dbus.Variant
		obj := w.conn.Object(name, mprisObjectPath)
		if err := obj.Call(propertiesIface+".GetAll", 0, mprisPlayerIface).Store(&props); err != nil {
			continue
		}
		change, ok := changeFromProperties(props)
		if !ok {
			continue
		}

		w.mu.Lock()
		w.names[owner] = name
		w.current = change.apply(signals.Music{Present: true, Player: playerShortName(name)})
		w.owner = owner
		music := w.current
		w.mu.Unlock()

		// Prefer a player that is actually playing
		if music.Playing() {
			break
		}
	}

	w.mu.Lock()
	music, present := w.current, w.current.Present
	w.mu.Unlock()
	if present && w.handler != nil {
		w.handler(music)
	}
}

// watch dispatches bus signals until stopped.
func (w *MPRISWatcher) watch() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case sig, ok := <-w.sigCh:
			if !ok {
				return
			}
			w.handleSignal(sig)
		}
	}
}

// handleSignal merges one bus signal into the tracked state.
func (w *MPRISWatcher) handleSignal(sig *dbus.Signal) {
	if name, oldOwner, newOwner, ok := ParseNameOwnerChanged(sig); ok {
		if !strings.HasPrefix(name, mprisNamePrefix) {
			return
		}
		w.handleOwnerChange(name, oldOwner, newOwner)
		return
	}

	change, ok := ParseMPRISProperties(sig)
	if !ok {
		return
	}

	w.mu.Lock()
	// Follow the current player, or adopt whichever starts playing
	adopt := w.owner == "" || sig.Sender == w.owner
	if !adopt && change.Status != nil && *change.Status == signals.PlaybackPlaying {
		adopt = true
	}
	if !adopt {
		w.mu.Unlock()
		return
	}
	if sig.Sender != w.owner {
		w.owner = sig.Sender
		w.current = signals.Music{Present: true, Player: w.playerNameLocked(sig.Sender)}
	}
	w.current = change.apply(w.current)
	w.current.Present = true
	music := w.current
	handler := w.handler
	w.mu.Unlock()

	if handler != nil {
		handler(music)
	}
}

// handleOwnerChange tracks player arrivals and departures.
func (w *MPRISWatcher) handleOwnerChange(name, oldOwner, newOwner string) {
	w.mu.Lock()
	if newOwner != "" {
		w.names[newOwner] = name
		w.mu.Unlock()
		return
	}

	delete(w.names, oldOwner)
	if oldOwner != w.owner {
		w.mu.Unlock()
		return
	}

	// The player we were following left the bus
	w.owner = ""
	w.current = signals.Music{Status: signals.PlaybackStopped}
	music := w.current
	handler := w.handler
	w.mu.Unlock()

	w.logger.Debug("music player left the bus", "player", playerShortName(name))
	if handler != nil {
		handler(music)
	}
}

// playerNameLocked resolves a unique bus name to a short player name.
// Caller must hold the lock.
func (w *MPRISWatcher) playerNameLocked(owner string) string {
	if wellKnown, ok := w.names[owner]; ok {
		return playerShortName(wellKnown)
	}
	return owner
}

// Stop unsubscribes and waits for the dispatch goroutine.
func (w *MPRISWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.conn.RemoveSignal(w.sigCh)
	close(w.stopCh)

	// Wait for goroutine to finish
	<-w.doneCh
	// Don't close the connection as it's shared (SessionBus)

	w.logger.Debug("stopped MPRIS watcher")
}
