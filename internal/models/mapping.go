package models

import (
	"errors"
	"fmt"
	"time"
)

// AlbumMapping records which bundle serves an album. There is at most one per album.
type AlbumMapping struct {
	ID          string    `json:"id"`
	AlbumID     string    `json:"album_id"`
	BundleID    string    `json:"bundle_id"`
	BundleTitle string    `json:"bundle_title"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAlbumMapping creates an unsaved mapping for album served by bundle.
func NewAlbumMapping(albumID string, bundle BundleSearchResult) *AlbumMapping {
	return &AlbumMapping{
		AlbumID:     albumID,
		BundleID:    bundle.BundleID,
		BundleTitle: bundle.Title,
		CreatedAt:   now(),
	}
}

func (m *AlbumMapping) Validate() error {
	return errors.Join(
		requireField("album mapping", "album_id", m.AlbumID),
		requireField("album mapping", "bundle_id", m.BundleID),
	)
}

// TrackMapping records the bundle file serving a track.
//
// DirectLink stays nil until the provider reports the file ready.
type TrackMapping struct {
	ID             string    `json:"id"`
	AlbumMappingID string    `json:"album_mapping_id"`
	TrackID        string    `json:"track_id"`
	FileID         string    `json:"file_id"`
	FilePath       string    `json:"file_path"`
	FileName       string    `json:"file_name"`
	DirectLink     *string   `json:"direct_link,omitempty"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTrackMapping creates an unsaved mapping of track to file under the album mapping.
func NewTrackMapping(albumMappingID, trackID string, file CandidateFile, confidence float64) *TrackMapping {
	ts := now()
	return &TrackMapping{
		AlbumMappingID: albumMappingID,
		TrackID:        trackID,
		FileID:         file.ID,
		FilePath:       file.Path,
		FileName:       file.Filename,
		Confidence:     clampConfidence(confidence),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

// SetDirectLink stores the playable URL. Empty links are ignored.
func (m *TrackMapping) SetDirectLink(link string) {
	if link == "" {
		return
	}
	m.DirectLink = &link
	m.UpdatedAt = now()
}

// HasDirectLink reports whether the track can be streamed immediately.
func (m *TrackMapping) HasDirectLink() bool {
	return m.DirectLink != nil && *m.DirectLink != ""
}

func (m *TrackMapping) Validate() error {
	err := errors.Join(
		requireField("track mapping", "album_mapping_id", m.AlbumMappingID),
		requireField("track mapping", "track_id", m.TrackID),
		requireField("track mapping", "file_id", m.FileID),
	)
	if m.Confidence < 0 || m.Confidence > 1 {
		err = errors.Join(err, fmt.Errorf("%w: confidence %.2f outside [0, 1]", ErrValidation, m.Confidence))
	}
	return err
}

// FallbackMapping records the secondary-provider reference serving a track.
// It is independent of any album mapping; AlbumID is informational and only used for reports.
type FallbackMapping struct {
	ID                  string    `json:"id"`
	TrackID             string    `json:"track_id"`
	AlbumID             string    `json:"album_id,omitempty"`
	ExternalReferenceID string    `json:"external_reference_id"`
	Title               string    `json:"title"`
	DurationSeconds     int       `json:"duration_seconds"`
	UploaderLabel       string    `json:"uploader_label"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewFallbackMapping creates an unsaved fallback mapping for a track of album.
func NewFallbackMapping(albumID, trackID string, ref FallbackReference) *FallbackMapping {
	ts := now()
	return &FallbackMapping{
		TrackID:             trackID,
		AlbumID:             albumID,
		ExternalReferenceID: ref.ExternalID,
		Title:               ref.Title,
		DurationSeconds:     ref.DurationSeconds,
		UploaderLabel:       ref.UploaderLabel,
		CreatedAt:           ts,
		UpdatedAt:           ts,
	}
}

func (m *FallbackMapping) Validate() error {
	return errors.Join(
		requireField("fallback mapping", "track_id", m.TrackID),
		requireField("fallback mapping", "external_reference_id", m.ExternalReferenceID),
	)
}
