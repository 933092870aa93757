// Package server provides the remote-control HTTP surface for a playback session.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a chi router internally for URL parameters and method filtering.
//
// # Routes
//
//	GET  /state                 current session state as JSON
//	GET  /events                server-sent "state" events
//	POST /toggle                play or pause
//	POST /next, /previous       navigate the active playlist
//	POST /seek?t=SECONDS        seek, clamped to the track
//	POST /volume?level=0..1     set volume, mute is kept
//	POST /mute                  toggle mute
//	POST /hide                  hide the player bar
//	POST /tracks/{id}/play      play a library track
//	POST /playlists/{id}/play?start=N
//
// Commands respond with the state after the command ran. The surface only reads and drives the
// session; it owns no playback state of its own.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
