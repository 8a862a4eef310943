package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// TrackMappingRepository persists track to bundle file associations.
type TrackMappingRepository struct {
	db *sql.DB
}

// NewTrackMappingRepository creates a new TrackMappingRepository with the given database connection
func NewTrackMappingRepository(db *sql.DB) *TrackMappingRepository {
	return &TrackMappingRepository{db: db}
}

const trackMappingColumns = `
	id, album_mapping_id, track_id, file_id, file_path, file_name,
	direct_link, confidence, created_at, updated_at
`

// Upsert inserts the mapping or, when the track is already mapped, replaces its file and link in place.
//
// The stored ID is written back to m, so repeated upserts of one track keep a single row and a stable ID.
func (r *TrackMappingRepository) Upsert(m *models.TrackMapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ts := time.Now().UTC()
	if m.ID == "" {
		m.ID = shared.GenerateID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = ts
	}
	m.UpdatedAt = ts

	query := `
		INSERT INTO track_mappings (` + trackMappingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			album_mapping_id = excluded.album_mapping_id,
			file_id = excluded.file_id,
			file_path = excluded.file_path,
			file_name = excluded.file_name,
			direct_link = excluded.direct_link,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
		RETURNING id
	`

	err := r.db.QueryRow(query,
		m.ID,
		m.AlbumMappingID,
		m.TrackID,
		m.FileID,
		m.FilePath,
		m.FileName,
		nullString(m.DirectLink),
		m.Confidence,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert track mapping: %w", err)
	}

	return nil
}

// SetDirectLink records the playable URL of a mapped track.
func (r *TrackMappingRepository) SetDirectLink(trackID, link string) error {
	if link == "" {
		return fmt.Errorf("%w: direct link for track %s is empty", shared.ErrInvalidInput, trackID)
	}

	result, err := r.db.Exec(
		`UPDATE track_mappings SET direct_link = ?, updated_at = ? WHERE track_id = ?`,
		link, time.Now().UTC(), trackID,
	)
	if err != nil {
		return fmt.Errorf("failed to set direct link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: track %s", shared.ErrMappingNotFound, trackID)
	}

	return nil
}

// GetByTrack retrieves the mapping of a track, or [shared.ErrMappingNotFound].
func (r *TrackMappingRepository) GetByTrack(trackID string) (*models.TrackMapping, error) {
	query := `SELECT ` + trackMappingColumns + ` FROM track_mappings WHERE track_id = ?`
	return r.scan(r.db.QueryRow(query, trackID))
}

// ListByAlbumMapping retrieves every track mapping under an album mapping ordered by file path.
func (r *TrackMappingRepository) ListByAlbumMapping(albumMappingID string) ([]*models.TrackMapping, error) {
	query := `SELECT ` + trackMappingColumns + ` FROM track_mappings WHERE album_mapping_id = ? ORDER BY file_path, file_name`
	return r.list(query, albumMappingID)
}

// LinkedTrackIDs reports which of trackIDs already have a direct link.
func (r *TrackMappingRepository) LinkedTrackIDs(trackIDs []string) (map[string]bool, error) {
	linked := make(map[string]bool)
	if len(trackIDs) == 0 {
		return linked, nil
	}

	query := `SELECT track_id FROM track_mappings WHERE direct_link IS NOT NULL AND direct_link != '' AND track_id IN (` + placeholders(len(trackIDs)) + `)`
	rows, err := r.db.Query(query, anySlice(trackIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		linked[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return linked, nil
}

func (r *TrackMappingRepository) list(query string, args ...any) ([]*models.TrackMapping, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.TrackMapping
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mappings, nil
}

func (r *TrackMappingRepository) scan(row scanner) (*models.TrackMapping, error) {
	var (
		m    models.TrackMapping
		link sql.NullString
	)

	err := row.Scan(
		&m.ID, &m.AlbumMappingID, &m.TrackID, &m.FileID, &m.FilePath, &m.FileName,
		&link, &m.Confidence, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track", shared.ErrMappingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track mapping: %w", err)
	}

	if link.Valid && strings.TrimSpace(link.String) != "" {
		m.DirectLink = &link.String
	}

	return &m, nil
}
