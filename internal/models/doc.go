// Package models defines the domain entities of the album sync engine.
//
// The package contains two categories of types:
//
// 1. Run inputs and transient values: created fresh for every sync run and never stored as-is
//   - [CanonicalTrack] : one entry of an album's ordered track list
//   - [CandidateFile] : one file inside a provider bundle
//   - [BundleSearchResult] : a provider bundle with its audio files
//   - [TrackMatch] : a track paired with a file and a confidence score
//   - [Resolution] : one select-and-resolve response from the primary provider
//
// 2. Persistent entities: rows in the mapping store
//   - [AlbumMapping] : the bundle chosen for an album
//   - [TrackMapping] : the file (and direct link, once ready) serving a track
//   - [FallbackMapping] : the secondary-provider reference serving a track
//   - [SyncRun] : the history of sync attempts for an album
//
// Persistent entities implement [Model], which the repositories call before writing.
package models
