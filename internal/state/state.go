package state

import "fmt"

// Kind is the top-level display state variant.
type Kind string

const (
	// KindHello is the one-shot intro animation at startup.
	KindHello Kind = "hello"
	// KindOpen is the expanded, interactive surface.
	KindOpen Kind = "open"
	// KindClosed is the compact surface.
	KindClosed Kind = "closed"
)

// Content is what the compact surface shows while closed.
type Content string

const (
	// ContentIdle is the empty compact surface.
	ContentIdle Content = "idle"
	// ContentMusicLive is the persistent now-playing readout.
	ContentMusicLive Content = "music-live"
	// ContentBattery is a battery status notification.
	ContentBattery Content = "battery"
	// ContentFace is the decorative idle face.
	ContentFace Content = "face"
	// ContentInlineHUD is a transient event rendered inside the surface.
	ContentInlineHUD Content = "inline-hud"
	// ContentSneakPeek is a transient event rendered as a floating preview.
	ContentSneakPeek Content = "sneak-peek"
	// ContentPlugin is a producer-supplied widget.
	ContentPlugin Content = "plugin"
)

// ViewID selects which view the expanded surface shows.
type ViewID string

const (
	// ViewHome is the default expanded view.
	ViewHome ViewID = "home"
	// ViewShelf is the drag-and-drop shelf view.
	ViewShelf ViewID = "shelf"
)

// ValidViews returns all valid view names.
func ValidViews() []string {
	return []string{string(ViewHome), string(ViewShelf)}
}

// ValidView reports whether v is a known view.
func ValidView(v ViewID) bool {
	switch v {
	case ViewHome, ViewShelf:
		return true
	}
	return false
}

// EventKind classifies a transient event surfaced on the compact strip.
type EventKind string

const (
	// EventMusic is a track or playback change.
	EventMusic EventKind = "music"
	// EventBattery is a power status change.
	EventBattery EventKind = "battery"
	// EventVolume is an output volume change.
	EventVolume EventKind = "volume"
	// EventBrightness is a backlight change.
	EventBrightness EventKind = "brightness"
	// EventMicrophone is an input mute/level change.
	EventMicrophone EventKind = "microphone"
	// EventTimer is a running timer readout.
	EventTimer EventKind = "timer"
)

// ValidEventKinds returns all valid event kind names.
func ValidEventKinds() []string {
	return []string{
		string(EventMusic),
		string(EventBattery),
		string(EventVolume),
		string(EventBrightness),
		string(EventMicrophone),
		string(EventTimer),
	}
}

// DisplayState is the single authoritative thing the overlay shows on one
// display. Exactly one variant is active: Kind selects it, and only the
// fields belonging to that variant are populated. Values are comparable, so
// a coordinator can detect changes with ==.
type DisplayState struct {
	Kind Kind `json:"kind"`

	// View is set when Kind is KindOpen.
	View ViewID `json:"view,omitempty"`

	// Content is set when Kind is KindClosed.
	Content Content `json:"content,omitempty"`

	// Event, Value and Icon carry the transient payload for
	// ContentInlineHUD and ContentSneakPeek.
	Event EventKind `json:"event,omitempty"`
	Value float64   `json:"value,omitempty"`
	Icon  string    `json:"icon,omitempty"`

	// PluginID names the producer for ContentPlugin.
	PluginID string `json:"plugin_id,omitempty"`
}

// Hello returns the intro animation state.
func Hello() DisplayState {
	return DisplayState{Kind: KindHello}
}

// Open returns the expanded state showing a view.
func Open(view ViewID) DisplayState {
	return DisplayState{Kind: KindOpen, View: view}
}

// Closed returns a compact state with plain content (idle, music live
// activity, battery notification, face).
func Closed(content Content) DisplayState {
	return DisplayState{Kind: KindClosed, Content: content}
}

// InlineHUD returns a compact state rendering a transient event inline.
func InlineHUD(event EventKind, value float64, icon string) DisplayState {
	return DisplayState{Kind: KindClosed, Content: ContentInlineHUD, Event: event, Value: value, Icon: icon}
}

// SneakPeek returns a compact state rendering a transient event as a
// floating preview.
func SneakPeek(event EventKind, value float64, icon string) DisplayState {
	return DisplayState{Kind: KindClosed, Content: ContentSneakPeek, Event: event, Value: value, Icon: icon}
}

// Plugin returns a compact state occupied by a producer's widget.
func Plugin(pluginID string) DisplayState {
	return DisplayState{Kind: KindClosed, Content: ContentPlugin, PluginID: pluginID}
}

// String renders a compact human-readable form for logs.
func (s DisplayState) String() string {
	switch s.Kind {
	case KindHello:
		return "hello"
	case KindOpen:
		return fmt.Sprintf("open/%s", s.View)
	case KindClosed:
		switch s.Content {
		case ContentInlineHUD, ContentSneakPeek:
			return fmt.Sprintf("closed/%s(%s)", s.Content, s.Event)
		case ContentPlugin:
			return fmt.Sprintf("closed/plugin(%s)", s.PluginID)
		default:
			return fmt.Sprintf("closed/%s", s.Content)
		}
	default:
		return "unknown"
	}
}
