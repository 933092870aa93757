// Package services defines the narrow provider contracts the playback core consumes
// and implements them against the application's REST backend.
//
// # Provider Contracts
//
// [TrackProvider] returns tracks, [PlaylistProvider] returns playlists and accepts saves.
// A save is always an ordered list of track ids plus title and description; the core edits
// an in-memory working copy and only hands it over when the user saves.
//
// # REST Implementation
//
// [APIService] talks to the backend with a bearer token from a static [oauth2.TokenSource]
// and a client-side [rate.Limiter] shared by every request.
//
//   - GET  /tracks?category=   list tracks
//   - GET  /tracks/{id}        fetch a track
//   - GET  /tracks/categories  list categories
//   - GET  /playlists          list playlists
//   - GET  /playlists/{id}     fetch a playlist with entries
//   - POST /playlists          create
//   - PUT  /playlists/{id}     replace title, description and tracks
//   - PUT  /playlists/{id}/reorder  persist a new order
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : request failed or returned a client error
//   - [shared.ErrServiceUnavailable] : backend returned a server error
//   - [shared.ErrTrackNotFound], [shared.ErrPlaylistNotFound] : 404 for the resource
//
// The local SQLite library in the repositories package implements the same contracts.
package services
