// Package session implements the playback session controller: the single source of truth every player surface reads.
//
// A [Controller] owns the transport state machine, volume and mute, the active playlist, and the
// analyzer binding. It drives an [audio.Device] and consumes the device's tagged events on one
// dispatch goroutine. Surfaces never keep their own transport state; they render the latest
// [State] delivered by [Controller.Subscribe].
//
// Transport transitions:
//
//	Idle -> Loading -> Playing <-> Paused
//	Playing -> Ended -> Loading (next playlist entry) | Idle
//	Idle, Loading, Playing, Paused -> Error -> Loading (retry)
package session
