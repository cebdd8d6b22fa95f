// Package state defines the overlay display state and the pure arbiter
// that derives it from an aggregated input snapshot.
package state
