package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation is wrapped by every [Model.Validate] failure.
var ErrValidation = errors.New("validation failed")

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// TrackStatus is the per-track state within one sync run.
//
// A run moves each track pending → syncing → (downloading →)? synced | failed.
type TrackStatus string

const (
	TrackStatusPending     TrackStatus = "pending"
	TrackStatusSyncing     TrackStatus = "syncing"
	TrackStatusDownloading TrackStatus = "downloading"
	TrackStatusSynced      TrackStatus = "synced"
	TrackStatusFailed      TrackStatus = "failed"
)

// Terminal reports whether no further transition is allowed within the run.
func (s TrackStatus) Terminal() bool {
	return s == TrackStatusSynced || s == TrackStatusFailed
}

// CanonicalTrack is one entry of an album's authoritative, ordered track list.
type CanonicalTrack struct {
	ID       string `json:"id" toml:"id"`
	Title    string `json:"title" toml:"title"`
	Position int    `json:"position" toml:"position"`
	AlbumID  string `json:"album_id,omitempty" toml:"album_id"`
}

// CandidateFile is one file of a provider bundle considered for matching.
type CandidateFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	BundleID string `json:"bundle_id"`
}

// BundleSearchResult is a named collection of files offered by the primary provider.
type BundleSearchResult struct {
	BundleID    string          `json:"bundle_id"`
	Title       string          `json:"title"`
	Files       []CandidateFile `json:"files"`
	SizeLabel   string          `json:"size_label"`
	SourceLabel string          `json:"source_label"`
}

// TrackMatch pairs a track with a candidate file. FileID is empty when nothing matched.
type TrackMatch struct {
	TrackID    string      `json:"track_id"`
	FileID     string      `json:"file_id,omitempty"`
	Confidence float64     `json:"confidence"`
	Status     TrackStatus `json:"status"`
}

// ResolveStatus is the primary provider's preparation state for requested files.
type ResolveStatus string

const (
	ResolveReady       ResolveStatus = "ready"
	ResolveDownloading ResolveStatus = "downloading"
	ResolveQueued      ResolveStatus = "queued"
	ResolveError       ResolveStatus = "error"
	ResolveDead        ResolveStatus = "dead"
	ResolveNotFound    ResolveStatus = "not_found"
)

// Pending reports whether the provider is still preparing the files.
func (s ResolveStatus) Pending() bool {
	return s == ResolveDownloading || s == ResolveQueued
}

// Failed reports whether the provider gave up on the files.
func (s ResolveStatus) Failed() bool {
	return s == ResolveError || s == ResolveDead || s == ResolveNotFound
}

// Known reports whether s is one of the documented statuses.
func (s ResolveStatus) Known() bool {
	return s == ResolveReady || s.Pending() || s.Failed()
}

// Resolution is one select-and-resolve response. Progress is a percentage.
type Resolution struct {
	Streams  []string      `json:"streams"`
	Status   ResolveStatus `json:"status"`
	Progress int           `json:"progress"`
}

// FallbackReference is a playable alternate found on the secondary provider.
type FallbackReference struct {
	ExternalID      string `json:"external_id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	UploaderLabel   string `json:"uploader_label"`
}

func requireField(entity, field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s %s is required", ErrValidation, entity, field)
	}
	return nil
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func now() time.Time { return time.Now().UTC() }
