// Package daemon provides the main orchestration for ledged.
// It coordinates the display coordinator, signal adapters, D-Bus
// server, transition journal, and configuration hot-reload, and owns
// the timers behind the hello intro, music idleness, and transient
// auto-clears.
package daemon
