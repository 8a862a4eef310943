package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// FallbackMappingRepository persists secondary-provider references. Rows survive album mapping deletes.
type FallbackMappingRepository struct {
	db *sql.DB
}

// NewFallbackMappingRepository creates a new FallbackMappingRepository with the given database connection
func NewFallbackMappingRepository(db *sql.DB) *FallbackMappingRepository {
	return &FallbackMappingRepository{db: db}
}

const fallbackMappingColumns = `
	id, track_id, album_id, external_reference_id, title,
	duration_seconds, uploader_label, created_at, updated_at
`

// Upsert inserts the fallback mapping or replaces the reference of an already mapped track.
func (r *FallbackMappingRepository) Upsert(m *models.FallbackMapping) error {
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
		INSERT INTO fallback_mappings (` + fallbackMappingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			album_id = excluded.album_id,
			external_reference_id = excluded.external_reference_id,
			title = excluded.title,
			duration_seconds = excluded.duration_seconds,
			uploader_label = excluded.uploader_label,
			updated_at = excluded.updated_at
		RETURNING id
	`

	err := r.db.QueryRow(query,
		m.ID,
		m.TrackID,
		m.AlbumID,
		m.ExternalReferenceID,
		m.Title,
		m.DurationSeconds,
		m.UploaderLabel,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert fallback mapping: %w", err)
	}

	return nil
}

// GetByTrack retrieves the fallback mapping of a track, or [shared.ErrMappingNotFound].
func (r *FallbackMappingRepository) GetByTrack(trackID string) (*models.FallbackMapping, error) {
	query := `SELECT ` + fallbackMappingColumns + ` FROM fallback_mappings WHERE track_id = ?`
	return r.scan(r.db.QueryRow(query, trackID))
}

// ListByAlbum retrieves the fallback mappings recorded during syncs of an album.
func (r *FallbackMappingRepository) ListByAlbum(albumID string) ([]*models.FallbackMapping, error) {
	query := `SELECT ` + fallbackMappingColumns + ` FROM fallback_mappings WHERE album_id = ? ORDER BY created_at, track_id`

	rows, err := r.db.Query(query, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fallback mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.FallbackMapping
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

// MappedTrackIDs reports which of trackIDs have a fallback reference.
func (r *FallbackMappingRepository) MappedTrackIDs(trackIDs []string) (map[string]bool, error) {
	mapped := make(map[string]bool)
	if len(trackIDs) == 0 {
		return mapped, nil
	}

	query := `SELECT track_id FROM fallback_mappings WHERE track_id IN (` + placeholders(len(trackIDs)) + `)`
	rows, err := r.db.Query(query, anySlice(trackIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fallback tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		mapped[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mapped, nil
}

// DeleteByAlbum removes the fallback mappings recorded for an album and returns how many were removed.
func (r *FallbackMappingRepository) DeleteByAlbum(albumID string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM fallback_mappings WHERE album_id = ?`, albumID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fallback mappings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

func (r *FallbackMappingRepository) scan(row scanner) (*models.FallbackMapping, error) {
	var m models.FallbackMapping
	err := row.Scan(
		&m.ID, &m.TrackID, &m.AlbumID, &m.ExternalReferenceID, &m.Title,
		&m.DurationSeconds, &m.UploaderLabel, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: fallback", shared.ErrMappingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fallback mapping: %w", err)
	}
	return &m, nil
}
