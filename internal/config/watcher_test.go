package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher_ReloadsValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledged.toml")
	require.NoError(t, DefaultDaemonConfig().Save(path))

	w, err := NewWatcher(path, DefaultDaemonConfig(), testLogger())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *DaemonConfig, 1)
	w.SetReloadCallback(func(cfg *DaemonConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, w.Start())

	cfg := DefaultDaemonConfig()
	cfg.Surface.ClosedWidth = 280
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-reloaded:
		assert.Equal(t, 280, got.Surface.ClosedWidth)
		assert.Equal(t, 280, w.Current().Surface.ClosedWidth)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_IgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledged.toml")
	require.NoError(t, DefaultDaemonConfig().Save(path))

	w, err := NewWatcher(path, DefaultDaemonConfig(), testLogger())
	require.NoError(t, err)
	defer w.Stop()

	failed := make(chan error, 1)
	w.SetErrorCallback(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})
	require.NoError(t, w.Start())

	// Write a config that parses but fails validation.
	require.NoError(t, os.WriteFile(path, []byte("[display]\nmode = \"mirror\"\n"), 0644))

	select {
	case err := <-failed:
		assert.Error(t, err)
		// The last valid config stays current.
		assert.Equal(t, "all", w.Current().Display.Mode)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for validation error")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledged.toml")

	w, err := NewWatcher(path, DefaultDaemonConfig(), testLogger())
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
