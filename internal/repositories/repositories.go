// package repositories stores aggregated snapshots in SQLite and serves the report queries.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spindb/internal/models"
)

// Store persists snapshots and answers report queries against the current one.
type Store interface {
	// ReplaceAll stores snapshot and makes it current in one transaction.
	ReplaceAll(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotInfo, error)
	// RecentPlaylists returns the first limit playlists in insertion order.
	RecentPlaylists(ctx context.Context, limit int) ([]models.PlaylistRecord, error)
	// TopArtists returns up to limit artists by count descending.
	TopArtists(ctx context.Context, limit int) ([]models.ArtistRecord, error)
	// AllPlaylists returns every playlist in insertion order.
	AllPlaylists(ctx context.Context) ([]models.PlaylistRecord, error)
	// AllTracks returns every track by count descending, then artist ascending.
	AllTracks(ctx context.Context) ([]models.TrackRecord, error)
	// Current describes the current snapshot or fails with [shared.ErrNoSnapshot].
	Current(ctx context.Context) (*models.SnapshotInfo, error)
}

// NextSequence increments and returns the next sequence number for the given table within tx.
//
// Sequence numbers give snapshots a human-readable version (e.g. snapshot #15) independent of
// their UUIDs. The UPDATE comes first so the transaction takes the write lock before reading.
func NextSequence(ctx context.Context, tx *sql.Tx, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// currentSnapshotID is the subquery every report query filters on.
const currentSnapshotID = `(SELECT snapshot_id FROM current_snapshot WHERE id = 1)`

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
