package state

// BatteryChinWidth is the fixed strip width while a battery notice shows.
const BatteryChinWidth = 640

// Compute derives the authoritative display state from one input snapshot.
// It is total and side-effect-free: the cascade below resolves every input
// combination deterministically, first match wins. Conflicting signals are
// settled by cascade position, never by error.
func Compute(in Input) DisplayState {
	// Intro animation masks everything.
	if in.HelloAnimationRunning {
		return Hello()
	}

	// The open surface masks every closed-content concern, including an
	// in-progress music session.
	if in.Open {
		return Open(in.CurrentView)
	}

	// Battery notices take the whole strip when power notices are on.
	if in.ExpandingView.Show && in.ExpandingView.Event == EventBattery && in.PowerNotices {
		return Closed(ContentBattery)
	}

	// Non-media transients render inline when the HUD style is enabled.
	if in.SneakPeek.Show && in.SneakPeek.Event != EventMusic && in.SneakPeek.Event != EventBattery && in.InlineHUDStyle {
		return InlineHUD(in.SneakPeek.Event, in.SneakPeek.Value, in.SneakPeek.Icon)
	}

	// Live music holds the strip unless the strip is hidden or a non-music
	// expanding view is displacing it.
	if (in.Playing || in.MusicLive) && in.MusicLiveActivity && !in.HideOnClosed &&
		!(in.ExpandingView.Show && in.ExpandingView.Event != EventMusic) {
		return Closed(ContentMusicLive)
	}

	// Idle face once the player has gone quiet and nothing is expanding.
	if !in.Playing && in.PlayerIdle && in.IdleFace && !in.ExpandingView.Show {
		return Closed(ContentFace)
	}

	// Non-music transients fall back to the floating preview.
	if in.SneakPeek.Show && in.SneakPeek.Event != EventMusic {
		return SneakPeek(in.SneakPeek.Event, in.SneakPeek.Value, in.SneakPeek.Icon)
	}

	// Music transients show unless the strip is hidden.
	if in.SneakPeek.Show && in.SneakPeek.Event == EventMusic && !in.HideOnClosed {
		return SneakPeek(EventMusic, in.SneakPeek.Value, in.SneakPeek.Icon)
	}

	// A producer holding the center slot claims the otherwise idle strip.
	if w := in.Winners.Center; w != nil {
		return Plugin(w.Producer)
	}

	return Closed(ContentIdle)
}

// ChinWidth returns the compact strip's chin width for the current display
// state. Battery notices use a fixed width; music and the idle face widen
// with the strip height beyond a 12px baseline; everything else keeps the
// base width.
func ChinWidth(s DisplayState, baseWidth, closedHeight int) int {
	if s.Kind != KindClosed {
		return baseWidth
	}
	switch s.Content {
	case ContentBattery:
		return BatteryChinWidth
	case ContentMusicLive, ContentFace:
		return baseWidth + 2*max(0, closedHeight-12) + 20
	default:
		return baseWidth
	}
}

// ShowsOverlayChrome reports whether the renderer should draw the floating
// accessory chrome. Only transient previews and inline HUD content carry
// chrome.
func ShowsOverlayChrome(s DisplayState) bool {
	return s.Kind == KindClosed && (s.Content == ContentSneakPeek || s.Content == ContentInlineHUD)
}
