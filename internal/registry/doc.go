// Package registry collects display requests from content producers and
// resolves which producer wins each anchor slot on the compact surface.
package registry
