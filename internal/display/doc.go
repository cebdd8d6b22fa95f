// Package display maintains one surface context per attached physical
// display, keyed by stable display identifier. It reconciles contexts on
// topology change, positions each surface, runs the per-display hover
// machinery, and pushes each display's authoritative state to the
// renderer layer.
package display
