// Package audio implements the output device adapter: one persistent playback chain that tracks are swapped into.
//
// The chain is built once per [Speaker] and never rebuilt when tracks change:
//
//	source (swappable) -> beep.Ctrl (pause) -> Tap -> effects.Volume -> Output
//
// Keeping the chain alive is what lets a spectrum analyzer attach to the [Tap] once and keep observing every later track.
// Device notifications are delivered as a closed set of tagged [Event] values on a single channel.
package audio
