package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// AlbumMappingRepository persists the album to bundle association.
//
// album_id is unique, so an album is served by at most one bundle at a time.
type AlbumMappingRepository struct {
	db *sql.DB
}

// NewAlbumMappingRepository creates a new AlbumMappingRepository with the given database connection
func NewAlbumMappingRepository(db *sql.DB) *AlbumMappingRepository {
	return &AlbumMappingRepository{db: db}
}

// Create inserts a new album mapping with a generated ID
func (r *AlbumMappingRepository) Create(m *models.AlbumMapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.ID = shared.GenerateID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO album_mappings (id, album_id, bundle_id, bundle_title, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, m.ID, m.AlbumID, m.BundleID, m.BundleTitle, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert album mapping: %w", err)
	}

	return nil
}

// GetByAlbum retrieves the mapping for an album, or [shared.ErrMappingNotFound].
func (r *AlbumMappingRepository) GetByAlbum(albumID string) (*models.AlbumMapping, error) {
	query := `
		SELECT id, album_id, bundle_id, bundle_title, created_at
		FROM album_mappings
		WHERE album_id = ?
	`

	return r.scan(r.db.QueryRow(query, albumID))
}

// Get retrieves an album mapping by ID
func (r *AlbumMappingRepository) Get(id string) (*models.AlbumMapping, error) {
	query := `
		SELECT id, album_id, bundle_id, bundle_title, created_at
		FROM album_mappings
		WHERE id = ?
	`

	return r.scan(r.db.QueryRow(query, id))
}

// DeleteByAlbum removes the album mapping; its track mappings go with it through the foreign key cascade.
//
// Returns false when the album had no mapping.
func (r *AlbumMappingRepository) DeleteByAlbum(albumID string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM album_mappings WHERE album_id = ?`, albumID)
	if err != nil {
		return false, fmt.Errorf("failed to delete album mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// List retrieves every album mapping, newest first
func (r *AlbumMappingRepository) List() ([]*models.AlbumMapping, error) {
	query := `
		SELECT id, album_id, bundle_id, bundle_title, created_at
		FROM album_mappings
		ORDER BY created_at DESC, album_id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query album mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.AlbumMapping
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

func (r *AlbumMappingRepository) scan(row scanner) (*models.AlbumMapping, error) {
	var m models.AlbumMapping
	err := row.Scan(&m.ID, &m.AlbumID, &m.BundleID, &m.BundleTitle, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: album", shared.ErrMappingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album mapping: %w", err)
	}
	return &m, nil
}
