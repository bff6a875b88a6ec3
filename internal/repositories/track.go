package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spindb/internal/models"
)

// TrackRepository reads and writes [models.TrackRecord] rows.
//
// A track written without an identifier (possible only in legacy de-duplication) is stored with a
// NULL track_id and read back with an empty ID.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

func (r *TrackRepository) insert(ctx context.Context, tx *sql.Tx, snapshotID string, records []models.TrackRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (snapshot_id, position, track_id, name, artist, count)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range records {
		if _, err := stmt.ExecContext(ctx, snapshotID, i, nullable(t.ID), t.Name, t.Artists, t.Count); err != nil {
			return fmt.Errorf("failed to insert track %q: %w", t.Name, err)
		}
	}

	return nil
}

// All returns every track of the current snapshot ordered by count descending, then artist ascending.
//
// Remaining ties keep first-occurrence order.
func (r *TrackRepository) All(ctx context.Context) ([]models.TrackRecord, error) {
	query := `
		SELECT track_id, name, artist, count
		FROM tracks
		WHERE snapshot_id = ` + currentSnapshotID + `
		ORDER BY count DESC, artist ASC, position ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.TrackRecord{}
	for rows.Next() {
		var (
			id, name, artist sql.NullString
			t                models.TrackRecord
		)

		if err := rows.Scan(&id, &name, &artist, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		t.ID, t.Name, t.Artists = id.String, name.String, artist.String

		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}
