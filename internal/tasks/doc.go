// Package tasks runs long-running library operations with real-time progress reporting.
//
// # Core Operations
//
//  1. [LibraryEngine.Import] : Scan a directory into the local library
//     - Walks the tree for mp3, wav, flac and ogg files
//     - Reads title, genre and comment tags, probes the decoded duration
//     - Upserts one track per file, matching existing rows by audio url
//
//  2. [LibraryEngine.BulkExport] : Export playlists to files
//     - Fetches playlists from a provider under a rate limit
//     - Writes json, m3u, csv, markdown or txt exports with a worker pool
//     - Writes export_manifest.json summarizing successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default so a slow reader never stalls an operation.
package tasks
