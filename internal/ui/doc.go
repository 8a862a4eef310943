// Package ui implements the terminal status view of an album sync using bubbletea's Elm architecture.
//
// The view lists the album's tracks with their live state (pending, syncing, downloading, synced or
// failed), a progress bar over the per-track counter, a spinner with the current engine message and
// the run summary once the sync returns.
//
// Two channels feed the [Model]: a [status.Broadcaster] subscription and the engine's progress
// channel. The caller sends [SyncComplete] when the run is over.
package ui
