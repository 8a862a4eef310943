package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// SyncRunRepository persists the history of album sync runs.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

const syncRunColumns = `
	id, album_id, status, synced_primary, synced_fallback, already_synced,
	failed, total, message, started_at, completed_at
`

// Create inserts a new run with a generated ID
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	run.ID = shared.GenerateID()

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (` + syncRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.AlbumID,
		run.Status,
		run.SyncedPrimary,
		run.SyncedFallback,
		run.AlreadySynced,
		run.Failed,
		run.Total,
		run.Message,
		run.StartedAt,
		nullTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// Update stores the counters, status and completion time of a run
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sync_runs
		SET status = ?, synced_primary = ?, synced_fallback = ?, already_synced = ?,
			failed = ?, total = ?, message = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.Status,
		run.SyncedPrimary,
		run.SyncedFallback,
		run.AlreadySynced,
		run.Failed,
		run.Total,
		run.Message,
		nullTime(run.CompletedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found: %s", run.ID)
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "album_id" (string), "status" (string or [models.RunStatus]) and "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE 1 = 1`
	args := []any{}

	if albumID, ok := criteria["album_id"].(string); ok && albumID != "" {
		query += " AND album_id = ?"
		args = append(args, albumID)
	}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.RunStatus:
		if status != "" {
			query += " AND status = ?"
			args = append(args, string(status))
		}
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *SyncRunRepository) scan(row scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		status      string
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.AlbumID, &status, &run.SyncedPrimary, &run.SyncedFallback, &run.AlreadySynced,
		&run.Failed, &run.Total, &run.Message, &run.StartedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run.Status = models.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
