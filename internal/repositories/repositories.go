package repositories

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// MappingStore groups the repositories the sync engine reads and writes.
type MappingStore struct {
	db        *sql.DB
	Albums    *AlbumMappingRepository
	Tracks    *TrackMappingRepository
	Fallbacks *FallbackMappingRepository
	Runs      *SyncRunRepository
}

// NewMappingStore creates a MappingStore over db. Migrations must already be applied.
func NewMappingStore(db *sql.DB) *MappingStore {
	return &MappingStore{
		db:        db,
		Albums:    NewAlbumMappingRepository(db),
		Tracks:    NewTrackMappingRepository(db),
		Fallbacks: NewFallbackMappingRepository(db),
		Runs:      NewSyncRunRepository(db),
	}
}

// LookupResolved reports, for each of trackIDs that is already playable, which tier serves it.
//
// A primary mapping with a direct link wins over a fallback mapping for the same track.
func (s *MappingStore) LookupResolved(trackIDs []string) (map[string]models.TrackSource, error) {
	linked, err := s.Tracks.LinkedTrackIDs(trackIDs)
	if err != nil {
		return nil, err
	}

	fallbacks, err := s.Fallbacks.MappedTrackIDs(trackIDs)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]models.TrackSource, len(linked)+len(fallbacks))
	for id := range fallbacks {
		resolved[id] = models.SourceFallback
	}
	for id := range linked {
		resolved[id] = models.SourcePrimary
	}
	return resolved, nil
}

// AlbumMapping returns the stored mapping of an album, or [shared.ErrMappingNotFound].
func (s *MappingStore) AlbumMapping(albumID string) (*models.AlbumMapping, error) {
	return s.Albums.GetByAlbum(albumID)
}

// EnsureAlbumMapping returns the album mapping pointing at bundle, creating it if needed.
//
// A mapping for a different bundle, or any mapping when force is set, is superseded: it is deleted
// together with its track mappings and a new row is created.
func (s *MappingStore) EnsureAlbumMapping(albumID string, bundle models.BundleSearchResult, force bool) (*models.AlbumMapping, error) {
	existing, err := s.Albums.GetByAlbum(albumID)
	switch {
	case err == nil && existing.BundleID == bundle.BundleID && !force:
		return existing, nil
	case err == nil:
		if _, err := s.Albums.DeleteByAlbum(albumID); err != nil {
			return nil, err
		}
	case !errors.Is(err, shared.ErrMappingNotFound):
		return nil, err
	}

	m := models.NewAlbumMapping(albumID, bundle)
	if err := s.Albums.Create(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpsertTrack stores the file chosen for a track.
func (s *MappingStore) UpsertTrack(m *models.TrackMapping) error {
	return s.Tracks.Upsert(m)
}

// SetDirectLink records the playable URL of a mapped track.
func (s *MappingStore) SetDirectLink(trackID, link string) error {
	return s.Tracks.SetDirectLink(trackID, link)
}

// UpsertFallback stores the secondary reference serving a track.
func (s *MappingStore) UpsertFallback(albumID, trackID string, ref models.FallbackReference) (*models.FallbackMapping, error) {
	m := models.NewFallbackMapping(albumID, trackID, ref)
	if err := s.Fallbacks.Upsert(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StartRun records the beginning of a sync run.
func (s *MappingStore) StartRun(albumID string, total int) (*models.SyncRun, error) {
	run := models.NewSyncRun(albumID, total)
	if err := s.Runs.Create(run); err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun stores the outcome of a sync run.
func (s *MappingStore) FinishRun(run *models.SyncRun, summary *models.RunSummary) error {
	run.Complete(summary)
	return s.Runs.Update(run)
}

// AlbumReport is everything the store knows about one album.
type AlbumReport struct {
	AlbumID   string                    `json:"album_id"`
	Album     *models.AlbumMapping      `json:"album,omitempty"`
	Tracks    []*models.TrackMapping    `json:"tracks"`
	Fallbacks []*models.FallbackMapping `json:"fallbacks"`
	LastRun   *models.SyncRun           `json:"last_run,omitempty"`
}

// Linked counts primary track mappings with a direct link.
func (r *AlbumReport) Linked() int {
	n := 0
	for _, t := range r.Tracks {
		if t.HasDirectLink() {
			n++
		}
	}
	return n
}

// Empty reports whether nothing at all is stored for the album.
func (r *AlbumReport) Empty() bool {
	return r.Album == nil && len(r.Fallbacks) == 0 && r.LastRun == nil
}

// AlbumReport collects the mappings and most recent run of an album.
func (s *MappingStore) AlbumReport(albumID string) (*AlbumReport, error) {
	report := &AlbumReport{
		AlbumID:   albumID,
		Tracks:    []*models.TrackMapping{},
		Fallbacks: []*models.FallbackMapping{},
	}

	album, err := s.Albums.GetByAlbum(albumID)
	switch {
	case err == nil:
		report.Album = album
		tracks, err := s.Tracks.ListByAlbumMapping(album.ID)
		if err != nil {
			return nil, err
		}
		if tracks != nil {
			report.Tracks = tracks
		}
	case !errors.Is(err, shared.ErrMappingNotFound):
		return nil, err
	}

	fallbacks, err := s.Fallbacks.ListByAlbum(albumID)
	if err != nil {
		return nil, err
	}
	if fallbacks != nil {
		report.Fallbacks = fallbacks
	}

	runs, err := s.Runs.List(map[string]any{"album_id": albumID, "limit": 1})
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		report.LastRun = runs[0]
	}

	return report, nil
}

// ClearAlbum deletes the album mapping, its track mappings and the fallback mappings recorded for the album.
func (s *MappingStore) ClearAlbum(albumID string) (bool, error) {
	deleted, err := s.Albums.DeleteByAlbum(albumID)
	if err != nil {
		return false, err
	}

	n, err := s.Fallbacks.DeleteByAlbum(albumID)
	if err != nil {
		return false, err
	}

	return deleted || n > 0, nil
}

// TrackReport is the stored state of a single track.
type TrackReport struct {
	TrackID  string                  `json:"track_id"`
	Primary  *models.TrackMapping    `json:"primary,omitempty"`
	Fallback *models.FallbackMapping `json:"fallback,omitempty"`
}

// Source names the tier that can play the track, if any.
func (r *TrackReport) Source() models.TrackSource {
	switch {
	case r.Primary != nil && r.Primary.HasDirectLink():
		return models.SourcePrimary
	case r.Fallback != nil:
		return models.SourceFallback
	default:
		return models.SourceNone
	}
}

// Track looks up both tiers for a track. Missing rows are not an error.
func (s *MappingStore) Track(trackID string) (*TrackReport, error) {
	report := &TrackReport{TrackID: trackID}

	primary, err := s.Tracks.GetByTrack(trackID)
	if err != nil && !errors.Is(err, shared.ErrMappingNotFound) {
		return nil, err
	}
	report.Primary = primary

	fallback, err := s.Fallbacks.GetByTrack(trackID)
	if err != nil && !errors.Is(err, shared.ErrMappingNotFound) {
		return nil, err
	}
	report.Fallback = fallback

	return report, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
