// Package adapter implements the external signal sources the daemon
// consumes: MPRIS players on the session bus, UPower and logind on the
// system bus, and Hyprland's IPC sockets for display topology and the
// pointer position. Each adapter separates parsing from socket and bus
// I/O so the parsers are testable without a live session.
package adapter

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
