// Package repositories implements SQLite persistence for the local music library.
//
// Key Implementations:
//   - [TrackRepository] : Track records with category lookups and upsert by audio url
//   - [PlaylistRepository] : Playlists with ordered membership in playlist_tracks
//   - [Library] : Combines both into the track and playlist provider contracts
//
// Rows carry a sequence number for stable, human-readable ordering independent of ids and timestamps.
// The [NextSequence] function atomically increments per-table counters in dedicated sequence tables.
// Deleted rows keep a deleted_at timestamp and are excluded from every query.
//
// Playlist membership is written as a whole: saving or reordering a playlist replaces its rows
// inside one transaction so that positions are always 0..N-1.
package repositories
