// Package tasks runs album sync operations with real-time progress reporting.
//
// # Album Sync
//
// [AlbumEngine.SyncAlbum] reconciles one album's canonical track list:
//
//  1. Tracks that already have a direct link or a fallback reference are marked synced without any
//     network call (skipped when the request is forced).
//  2. The primary provider is searched for "<album> <artist>" and one bundle is selected: the bundle
//     mapped by an earlier run, else the first one covering enough of the album, else the first one
//     with any file.
//  3. Every remaining track is walked through the ordered [Resolver] strategies, one track at a time,
//     paced by a [Scheduler]:
//     - [PrimaryStrategy] pairs the track with an unclaimed bundle file and resolves a direct link,
//     polling while the provider prepares the file
//     - [FallbackStrategy] stores the best secondary-provider reference
//  4. A [models.RunSummary] classifies the run as complete, partial or failed.
//
// Per-track state moves pending → syncing → (downloading) → synced | failed, checked against a
// transition table, and is mirrored into a [status.Broadcaster].
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct carries the phase, step counters, a running [Counter], a message, and
// optional data for advanced UI rendering.
//
// # Report Export
//
// [BulkExport] writes mapping reports for many albums with a small worker pool and a manifest.
package tasks
