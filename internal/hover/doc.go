// Package hover converts continuously sampled pointer position into
// open/close intents for the overlay surface, one controller per display.
package hover
