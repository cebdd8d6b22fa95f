// Package signals carries the daemon's internal signal topics: music
// playback, battery, and the transient sneak-peek/expanding-view
// descriptors. Each topic supports publish, channel subscriptions, and a
// latest-value snapshot; published updates carry ULID event IDs for
// journal correlation.
package signals
