// Package visualizer draws spectrum frames as terminal bar graphs and drives the per-view render tick.
//
// A [Renderer] is pure: frame in, string out. A [Visualizer] owns the cancellable tick that pulls
// one snapshot per frame from an attached analyzer, and it only ticks while it is enabled, attached and open.
package visualizer
