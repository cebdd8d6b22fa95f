package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the daemon config file for changes and validates new
// configs before handing them out. Edits that fail validation are
// reported through the error callback and otherwise ignored.
type Watcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	watcher    *fsnotify.Watcher
	configPath string

	// Current valid config
	current *DaemonConfig

	// Callbacks
	onReload func(newConfig *DaemonConfig)
	onError  func(err error)

	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a Watcher for the given config path. An empty path
// uses the default config location.
func NewWatcher(configPath string, initial *DaemonConfig, logger *slog.Logger) (*Watcher, error) {
	if configPath == "" {
		configPath = DaemonConfigPath()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		logger:     logger,
		watcher:    fw,
		configPath: configPath,
		current:    initial,
		doneCh:     make(chan struct{}),
	}, nil
}

// SetReloadCallback sets the callback invoked after a successful reload.
func (w *Watcher) SetReloadCallback(callback func(newConfig *DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = callback
}

// SetErrorCallback sets the callback invoked when a changed file fails
// to load or validate.
func (w *Watcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = callback
}

// Current returns the most recent valid configuration.
func (w *Watcher) Current() *DaemonConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the config file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory containing the file (more reliable for
	// editors and atomic renames)
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watch()

	w.logger.Debug("config watcher started", "path", w.configPath)
	return nil
}

// watch is the main watch loop.
func (w *Watcher) watch() {
	filename := filepath.Base(w.configPath)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.doneCh:
			return
		}
	}
}

// reload loads and validates the changed file, applying it only when valid.
func (w *Watcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReload
	errorCallback := w.onError
	w.mu.RUnlock()

	newConfig, err := LoadDaemonConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.current = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.configPath)
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

// Stop stops watching the config file.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.doneCh)
	return w.watcher.Close()
}
