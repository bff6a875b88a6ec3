package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spindb/internal/models"
)

// ArtistRepository reads and writes [models.ArtistRecord] rows.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

func (r *ArtistRepository) insert(ctx context.Context, tx *sql.Tx, snapshotID string, records []models.ArtistRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artists (snapshot_id, position, name, count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare artist insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range records {
		if _, err := stmt.ExecContext(ctx, snapshotID, i, a.Name, a.Count); err != nil {
			return fmt.Errorf("failed to insert artist %q: %w", a.Name, err)
		}
	}

	return nil
}

// Top returns up to limit artists of the current snapshot by count descending.
//
// Ties keep first-occurrence order.
func (r *ArtistRepository) Top(ctx context.Context, limit int) ([]models.ArtistRecord, error) {
	query := `
		SELECT name, count
		FROM artists
		WHERE snapshot_id = ` + currentSnapshotID + `
		ORDER BY count DESC, position ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []models.ArtistRecord{}
	for rows.Next() {
		var a models.ArtistRecord
		if err := rows.Scan(&a.Name, &a.Count); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}
