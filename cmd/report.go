package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spindb/internal/formatter"
	"github.com/desertthunder/spindb/internal/repositories"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/urfave/cli/v3"
)

// ReportHome prints the recent playlists and the top artists.
func (r *Runner) ReportHome(ctx context.Context, cmd *cli.Command) error {
	return r.report(ctx, cmd, func(store repositories.Store) ([]formatter.Table, error) {
		recent, err := store.RecentPlaylists(ctx, r.config.Refresh.RecentLimit)
		if err != nil {
			return nil, err
		}
		artists, err := store.TopArtists(ctx, r.config.Refresh.TopArtistsLimit)
		if err != nil {
			return nil, err
		}
		return []formatter.Table{formatter.RecentTable(recent), formatter.TopArtistsTable(artists)}, nil
	})
}

// ReportPlaylists prints every stored playlist.
func (r *Runner) ReportPlaylists(ctx context.Context, cmd *cli.Command) error {
	return r.report(ctx, cmd, func(store repositories.Store) ([]formatter.Table, error) {
		records, err := store.AllPlaylists(ctx)
		if err != nil {
			return nil, err
		}
		return []formatter.Table{formatter.PlaylistsTable(records)}, nil
	})
}

// ReportTracks prints every stored track.
func (r *Runner) ReportTracks(ctx context.Context, cmd *cli.Command) error {
	return r.report(ctx, cmd, func(store repositories.Store) ([]formatter.Table, error) {
		records, err := store.AllTracks(ctx)
		if err != nil {
			return nil, err
		}
		return []formatter.Table{formatter.TracksTable(records)}, nil
	})
}

// ReportArtists prints the top artists up to --limit.
func (r *Runner) ReportArtists(ctx context.Context, cmd *cli.Command) error {
	return r.report(ctx, cmd, func(store repositories.Store) ([]formatter.Table, error) {
		records, err := store.TopArtists(ctx, cmd.Int("limit"))
		if err != nil {
			return nil, err
		}
		return []formatter.Table{formatter.ArtistsTable(records)}, nil
	})
}

// report loads tables from the current snapshot and writes them in the format named by --format.
func (r *Runner) report(ctx context.Context, cmd *cli.Command, load func(repositories.Store) ([]formatter.Table, error)) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	info, err := store.Current(ctx)
	if errors.Is(err, shared.ErrNoSnapshot) {
		return fmt.Errorf("%w: run `spindb refresh` first", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	tables, err := load(store)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	if err := formatter.Write(r.output, format, r.palette, tables...); err != nil {
		return err
	}

	if format == formatter.FormatTable {
		footer := fmt.Sprintf("Snapshot #%d, %s", info.Version, info.CreatedAt.Local().Format("Jan 2 2006 15:04"))
		return r.writePlain("\n%s\n", r.palette.Help(footer))
	}
	return nil
}
