// Package repositories implements SQLite persistence for album, track and fallback mappings and sync run history.
//
// Key Implementations:
//   - [AlbumMappingRepository] : one bundle per album, deleting it cascades to track mappings
//   - [TrackMappingRepository] : track to bundle file, upserted on track_id
//   - [FallbackMappingRepository] : secondary-provider references, independent of album mappings
//   - [SyncRunRepository] : run history with criteria-based listing
//   - [MappingStore] : the facade the sync engine and server use
//
// Lookups that find nothing wrap [shared.ErrMappingNotFound].
package repositories
