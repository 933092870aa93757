// Package models defines the value types shared by the playback core and its data providers.
//
//   - [Track] : Immutable audio track record supplied by a track provider
//   - [PlaylistEntry] : A (track, position) pair inside a playlist
//   - [Playlist] : Ordered sequence of entries whose positions are always 0..N-1
//   - [PlaylistDraft] : Save payload (ordered track ids plus title/description)
//
// Any operation that reorders, adds or removes entries must call [Playlist.Restamp] before it is considered complete.
package models
