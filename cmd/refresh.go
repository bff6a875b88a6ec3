package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/spindb/internal/shared"
	"github.com/desertthunder/spindb/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Refresh runs one aggregation with the stored token and prints progress as it goes.
func (r *Runner) Refresh(ctx context.Context, cmd *cli.Command) error {
	token, err := r.tokenStore().Load()
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run `spindb auth login` first", err)
		}
		return err
	}

	svc, err := r.oauthService()
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if cmd.Bool("quiet") {
				continue
			}
			r.writePlain("%s\n", r.palette.Progress(update))
		}
	}()

	result, err := r.engine(store).Run(ctx, svc.Source(ctx, token), progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	r.writePlainln("%s", r.palette.OK(fmt.Sprintf("✓ Snapshot #%d stored", result.Snapshot.Version)))
	r.writePlain("Playlists scanned: %d (%d spin, %d skipped)\n", result.Fetched, result.Spin, result.Skipped)
	r.writePlain("Records: %d playlists, %d tracks, %d artists\n",
		result.Snapshot.Playlists, result.Snapshot.Tracks, result.Snapshot.Artists)
	r.writePlain("Duration: %s (%s dedup)\n", result.Duration, result.DedupMode)
	return nil
}
