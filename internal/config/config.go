// Package config handles the daemon configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ledge-desktop/ledge/internal/display"
)

// Duration is a time.Duration that can be unmarshaled from human-readable
// strings like "50ms", "4s", "1m30s", or integer milliseconds.
// A value of "0" or 0 disables the timer it configures.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Integer values are milliseconds.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '50ms', '4s', '1m30s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for ledged.
// Loaded from ~/.config/ledge/ledged.toml
type DaemonConfig struct {
	Surface    SurfaceConfig   `toml:"surface"`
	Hover      HoverConfig     `toml:"hover"`
	Features   FeatureConfig   `toml:"features"`
	Music      MusicConfig     `toml:"music"`
	Battery    BatteryConfig   `toml:"battery"`
	Transients TransientConfig `toml:"transients"`
	Display    DisplayConfig   `toml:"display"`
	Hello      HelloConfig     `toml:"hello"`
	Plugins    PluginConfig    `toml:"plugins"`
	Debug      DebugConfig     `toml:"debug"`
}

// SurfaceConfig contains surface geometry settings.
type SurfaceConfig struct {
	ClosedWidth  int `toml:"closed_width"`  // Closed strip width in pixels
	ClosedHeight int `toml:"closed_height"` // Closed strip height in pixels
	OpenWidth    int `toml:"open_width"`    // Expanded surface width
	OpenHeight   int `toml:"open_height"`   // Expanded surface height
}

// HoverConfig contains hover debounce timing.
// Durations can be specified as "50ms", "4s", etc. or as integer milliseconds.
type HoverConfig struct {
	EnterDelay        Duration `toml:"enter_delay"`        // Sustained presence before open
	ExitDelay         Duration `toml:"exit_delay"`         // Sustained absence before close
	ShelfExitDelay    Duration `toml:"shelf_exit_delay"`   // Exit delay while shelf is active
	HeartbeatInterval Duration `toml:"heartbeat_interval"` // Pointer sampling cadence
	HintBurst         Duration `toml:"hint_burst"`         // Sampling burst after an enter/exit hint
}

// FeatureConfig toggles closed-strip content features.
type FeatureConfig struct {
	MusicLive    bool `toml:"music_live"`     // Live music activity on the strip
	HideOnClosed bool `toml:"hide_on_closed"` // Suppress music content while closed
	IdleFace     bool `toml:"idle_face"`      // Decorative face when the player idles
	PowerNotices bool `toml:"power_notices"`  // Battery notices
	InlineHUD    bool `toml:"inline_hud"`     // Render transients inline instead of floating
}

// MusicConfig contains music behavior settings.
type MusicConfig struct {
	IdleTimeout Duration `toml:"idle_timeout"` // Paused-player time before it counts as idle
}

// BatteryConfig contains battery notice thresholds.
type BatteryConfig struct {
	LowPercent      float64 `toml:"low_percent"`      // Notice when discharging below this
	CriticalPercent float64 `toml:"critical_percent"` // Urgent notice threshold
}

// TransientConfig contains transient auto-clear durations.
// A value of "0" or 0 means never auto-clear.
type TransientConfig struct {
	PeekDuration      Duration `toml:"peek_duration"`      // Sneak peek hold time
	ExpandingDuration Duration `toml:"expanding_duration"` // Expanding view hold time
}

// DisplayConfig contains multi-display behavior.
type DisplayConfig struct {
	Mode      string `toml:"mode"`      // "all" or "preferred"
	Preferred string `toml:"preferred"` // Display id or connector name
	OnLock    string `toml:"on_lock"`   // "hide" or "destroy"
}

// HelloConfig contains intro animation settings.
type HelloConfig struct {
	Enabled  bool     `toml:"enabled"`
	Duration Duration `toml:"duration"` // How long the hello state holds at startup
}

// PluginConfig contains producer plugin settings.
type PluginConfig struct {
	Manifest string `toml:"manifest"` // Path to producers.yaml, empty for none
}

// DebugConfig contains observability settings.
type DebugConfig struct {
	LogLevel      string `toml:"log_level"`      // "debug", "info", "warn", "error"
	MetricsListen string `toml:"metrics_listen"` // Prometheus listen address, empty disables
	Journal       bool   `toml:"journal"`        // Write the transition journal
	JournalPath   string `toml:"journal_path"`   // Override journal location
}

// ValidLogLevels returns all accepted log level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Surface: SurfaceConfig{
			ClosedWidth:  320,
			ClosedHeight: 36,
			OpenWidth:    640,
			OpenHeight:   280,
		},
		Hover: HoverConfig{
			EnterDelay:        Duration(50 * time.Millisecond),
			ExitDelay:         Duration(500 * time.Millisecond),
			ShelfExitDelay:    Duration(4 * time.Second),
			HeartbeatInterval: Duration(16 * time.Millisecond),
			HintBurst:         Duration(250 * time.Millisecond),
		},
		Features: FeatureConfig{
			MusicLive:    true,
			HideOnClosed: false,
			IdleFace:     false,
			PowerNotices: true,
			InlineHUD:    false,
		},
		Music: MusicConfig{
			IdleTimeout: Duration(2 * time.Minute),
		},
		Battery: BatteryConfig{
			LowPercent:      20,
			CriticalPercent: 5,
		},
		Transients: TransientConfig{
			PeekDuration:      Duration(1500 * time.Millisecond),
			ExpandingDuration: Duration(3 * time.Second),
		},
		Display: DisplayConfig{
			Mode:      string(display.ModeAll),
			Preferred: "",
			OnLock:    string(display.LockHide),
		},
		Hello: HelloConfig{
			Enabled:  true,
			Duration: Duration(2 * time.Second),
		},
		Plugins: PluginConfig{},
		Debug: DebugConfig{
			LogLevel: "info",
			Journal:  true,
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func DaemonConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "ledge", "ledged.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "ledge")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// LoadDaemonConfig loads the daemon configuration from the specified path.
// If path is empty, uses the default config path. Returns the default
// configuration if the file doesn't exist.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultDaemonConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// If path is empty, uses the default config path.
func (c *DaemonConfig) Save(path string) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Surface.ClosedWidth < 100 || c.Surface.ClosedWidth > 1000 {
		return fmt.Errorf("closed_width must be between 100 and 1000, got %d", c.Surface.ClosedWidth)
	}
	if c.Surface.ClosedHeight < 8 || c.Surface.ClosedHeight > 200 {
		return fmt.Errorf("closed_height must be between 8 and 200, got %d", c.Surface.ClosedHeight)
	}
	if c.Surface.OpenWidth < 200 || c.Surface.OpenWidth > 2000 {
		return fmt.Errorf("open_width must be between 200 and 2000, got %d", c.Surface.OpenWidth)
	}
	if c.Surface.OpenHeight < 100 || c.Surface.OpenHeight > 1200 {
		return fmt.Errorf("open_height must be between 100 and 1200, got %d", c.Surface.OpenHeight)
	}

	for name, d := range map[string]Duration{
		"enter_delay":        c.Hover.EnterDelay,
		"exit_delay":         c.Hover.ExitDelay,
		"shelf_exit_delay":   c.Hover.ShelfExitDelay,
		"hint_burst":         c.Hover.HintBurst,
		"idle_timeout":       c.Music.IdleTimeout,
		"peek_duration":      c.Transients.PeekDuration,
		"expanding_duration": c.Transients.ExpandingDuration,
		"duration":           c.Hello.Duration,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d.Duration())
		}
	}

	if hb := c.Hover.HeartbeatInterval.Duration(); hb != 0 && (hb < time.Millisecond || hb > time.Second) {
		return fmt.Errorf("heartbeat_interval must be between 1ms and 1s, got %s", hb)
	}

	if c.Battery.CriticalPercent < 0 || c.Battery.LowPercent > 100 ||
		c.Battery.CriticalPercent > c.Battery.LowPercent {
		return fmt.Errorf("battery thresholds must satisfy 0 <= critical_percent <= low_percent <= 100, got critical=%v low=%v",
			c.Battery.CriticalPercent, c.Battery.LowPercent)
	}

	validMode := false
	for _, m := range display.ValidModes() {
		if c.Display.Mode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid display mode %q, must be one of: %v", c.Display.Mode, display.ValidModes())
	}

	validLock := false
	for _, p := range display.ValidLockPolicies() {
		if c.Display.OnLock == p {
			validLock = true
			break
		}
	}
	if !validLock {
		return fmt.Errorf("invalid on_lock policy %q, must be one of: %v", c.Display.OnLock, display.ValidLockPolicies())
	}

	validLevel := false
	for _, l := range ValidLogLevels() {
		if strings.ToLower(c.Debug.LogLevel) == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level %q, must be one of: %v", c.Debug.LogLevel, ValidLogLevels())
	}

	return nil
}

// LogLevel returns the configured slog level.
func (c *DaemonConfig) LogLevel() slog.Level {
	switch strings.ToLower(c.Debug.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JournalPath returns the transition journal location.
func (c *DaemonConfig) JournalPath() string {
	if c.Debug.JournalPath != "" {
		return expandPath(c.Debug.JournalPath)
	}
	return filepath.Join(DataPath(), "journal.jsonl")
}

// ManifestPath returns the producer manifest location, empty if unset.
func (c *DaemonConfig) ManifestPath() string {
	return expandPath(c.Plugins.Manifest)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
