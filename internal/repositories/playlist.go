package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spindb/internal/models"
)

// PlaylistRepository reads and writes [models.PlaylistRecord] rows.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// insert writes records for snapshotID inside tx, preserving their order.
func (r *PlaylistRepository) insert(ctx context.Context, tx *sql.Tx, snapshotID string, records []models.PlaylistRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playlists (snapshot_id, external_id, name, date, length, tracks)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare playlist insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range records {
		if _, err := stmt.ExecContext(ctx, snapshotID, nullable(p.ExternalID), p.Title, p.Date, p.Length, p.Tracks); err != nil {
			return fmt.Errorf("failed to insert playlist %q: %w", p.Title, err)
		}
	}

	return nil
}

// Recent returns the first limit playlists of the current snapshot in insertion order.
func (r *PlaylistRepository) Recent(ctx context.Context, limit int) ([]models.PlaylistRecord, error) {
	query := `
		SELECT external_id, name, date, length, tracks
		FROM playlists
		WHERE snapshot_id = ` + currentSnapshotID + `
		ORDER BY id ASC
		LIMIT ?
	`

	return r.list(ctx, query, limit)
}

// All returns every playlist of the current snapshot in insertion order.
func (r *PlaylistRepository) All(ctx context.Context) ([]models.PlaylistRecord, error) {
	query := `
		SELECT external_id, name, date, length, tracks
		FROM playlists
		WHERE snapshot_id = ` + currentSnapshotID + `
		ORDER BY id ASC
	`

	return r.list(ctx, query)
}

func (r *PlaylistRepository) list(ctx context.Context, query string, args ...any) ([]models.PlaylistRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.PlaylistRecord{}
	for rows.Next() {
		var (
			externalID sql.NullString
			tracks     sql.NullString
			p          models.PlaylistRecord
		)

		if err := rows.Scan(&externalID, &p.Title, &p.Date, &p.Length, &tracks); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		p.ExternalID = externalID.String
		p.Tracks = tracks.String

		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}
