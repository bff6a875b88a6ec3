package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/shared"
)

// SQLStore implements [Store] on SQLite with snapshot swapping.
//
// Every [SQLStore.ReplaceAll] writes a new snapshot beside the current one, repoints
// current_snapshot and drops the superseded rows, all in one transaction. Readers therefore see
// either the old snapshot or the new one, never a mix.
type SQLStore struct {
	db        *sql.DB
	playlists *PlaylistRepository
	tracks    *TrackRepository
	artists   *ArtistRepository
}

// NewSQLStore creates a store over a migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:        db,
		playlists: NewPlaylistRepository(db),
		tracks:    NewTrackRepository(db),
		artists:   NewArtistRepository(db),
	}
}

// ReplaceAll stores snapshot as the new current snapshot. On error nothing changes.
func (s *SQLStore) ReplaceAll(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotInfo, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nil snapshot", shared.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := NextSequence(ctx, tx, "snapshots")
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot version: %w", err)
	}

	info := &models.SnapshotInfo{
		ID:        shared.GenerateID(),
		Version:   version,
		CreatedAt: time.Now().UTC(),
		Playlists: len(snapshot.Playlists),
		Tracks:    len(snapshot.Tracks),
		Artists:   len(snapshot.Artists),
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (id, version, created_at) VALUES (?, ?, ?)",
		info.ID, info.Version, info.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if err := s.playlists.insert(ctx, tx, info.ID, snapshot.Playlists); err != nil {
		return nil, err
	}
	if err := s.tracks.insert(ctx, tx, info.ID, snapshot.Tracks); err != nil {
		return nil, err
	}
	if err := s.artists.insert(ctx, tx, info.ID, snapshot.Artists); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO current_snapshot (id, snapshot_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot_id = excluded.snapshot_id
	`, info.ID); err != nil {
		return nil, fmt.Errorf("failed to swap current snapshot: %w", err)
	}

	if err := prune(ctx, tx, info.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return info, nil
}

// prune deletes every snapshot other than keep along with its records.
func prune(ctx context.Context, tx *sql.Tx, keep string) error {
	for _, table := range []string{"playlists", "tracks", "artists"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE snapshot_id != ?", table), keep); err != nil {
			return fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id != ?", keep); err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	return nil
}

// Current describes the current snapshot.
func (s *SQLStore) Current(ctx context.Context) (*models.SnapshotInfo, error) {
	query := `
		SELECT s.id, s.version, s.created_at,
			(SELECT COUNT(*) FROM playlists WHERE snapshot_id = s.id),
			(SELECT COUNT(*) FROM tracks WHERE snapshot_id = s.id),
			(SELECT COUNT(*) FROM artists WHERE snapshot_id = s.id)
		FROM snapshots s
		JOIN current_snapshot c ON c.snapshot_id = s.id
		WHERE c.id = 1
	`

	var info models.SnapshotInfo
	err := s.db.QueryRowContext(ctx, query).Scan(
		&info.ID, &info.Version, &info.CreatedAt, &info.Playlists, &info.Tracks, &info.Artists,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current snapshot: %w", err)
	}

	return &info, nil
}

func (s *SQLStore) RecentPlaylists(ctx context.Context, limit int) ([]models.PlaylistRecord, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.playlists.Recent(ctx, limit)
}

func (s *SQLStore) TopArtists(ctx context.Context, limit int) ([]models.ArtistRecord, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	return s.artists.Top(ctx, limit)
}

func (s *SQLStore) AllPlaylists(ctx context.Context) ([]models.PlaylistRecord, error) {
	return s.playlists.All(ctx)
}

func (s *SQLStore) AllTracks(ctx context.Context) ([]models.TrackRecord, error) {
	return s.tracks.All(ctx)
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", shared.ErrInvalidArgument, limit)
	}
	return nil
}
