package adapter

import (
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	logindBusName      = "org.freedesktop.login1"
	logindManagerPath  = dbus.ObjectPath("/org/freedesktop/login1")
	logindManagerIface = "org.freedesktop.login1.Manager"
	logindSessionIface = "org.freedesktop.login1.Session"
)

// LockHandler receives session lock state changes.
type LockHandler func(locked bool)

// ParseLockSignal classifies a logind session signal. Returns ok=false
// for anything other than Lock and Unlock.
func ParseLockSignal(sig *dbus.Signal) (locked, ok bool) {
	if sig == nil {
		return false, false
	}
	switch sig.Name {
	case logindSessionIface + ".Lock":
		return true, true
	case logindSessionIface + ".Unlock":
		return false, true
	}
	return false, false
}

// LogindWatcher follows the calling process's logind session and reports
// Lock and Unlock signals.
type LogindWatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	conn    *dbus.Conn
	handler LockHandler

	sessionPath dbus.ObjectPath

	sigCh   chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewLogindWatcher creates a watcher. A nil conn connects to the system
// bus on Start.
func NewLogindWatcher(conn *dbus.Conn, logger *slog.Logger) *LogindWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogindWatcher{
		logger: logger,
		conn:   conn,
	}
}

// SetLockHandler sets the callback for lock state changes.
func (w *LogindWatcher) SetLockHandler(handler LockHandler) {
	w.handler = handler
}

// Start resolves the current session and subscribes to its Lock and
// Unlock signals.
func (w *LogindWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if w.conn == nil {
		conn, err := dbus.SystemBus()
		if err != nil {
			return &AdapterError{
				Source:  "logind",
				Message: "failed to connect to system bus",
				Err:     err,
			}
		}
		w.conn = conn
	}

	manager := w.conn.Object(logindBusName, logindManagerPath)
	var sessionPath dbus.ObjectPath
	err := manager.Call(logindManagerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&sessionPath)
	if err != nil {
		return &AdapterError{
			Source:  "logind",
			Message: "failed to resolve session",
			Err:     err,
		}
	}
	w.sessionPath = sessionPath

	err = w.conn.AddMatchSignal(
		dbus.WithMatchInterface(logindSessionIface),
		dbus.WithMatchObjectPath(sessionPath),
	)
	if err != nil {
		return &AdapterError{
			Source:  "logind",
			Message: "failed to match session signals",
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

	go w.watch()

	w.logger.Debug("started logind watcher", "session", string(sessionPath))
	return nil
}

// watch dispatches session signals until stopped.
func (w *LogindWatcher) watch() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case sig, ok := <-w.sigCh:
			if !ok {
				return
			}
			locked, ok := ParseLockSignal(sig)
			if !ok {
				continue
			}
			w.logger.Info("session lock signal", "locked", locked)
			if w.handler != nil {
				w.handler(locked)
			}
		}
	}
}

// Stop unsubscribes and waits for the dispatch goroutine.
func (w *LogindWatcher) Stop() {
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

	w.logger.Debug("stopped logind watcher")
}
