package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/services"
	"github.com/desertthunder/spindb/internal/shared"
)

// SnapshotWriter persists a finished snapshot. Implemented by repositories.Store.
type SnapshotWriter interface {
	ReplaceAll(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotInfo, error)
}

// Recorder receives the outcome of every refresh. Implemented by metrics.Metrics.
type Recorder interface {
	ObserveRefresh(outcome string, elapsed time.Duration, info *models.SnapshotInfo)
}

// RefreshResult summarizes one aggregation run.
type RefreshResult struct {
	Snapshot  *models.SnapshotInfo
	Pages     int           // Source pages walked
	Fetched   int           // Playlists returned by the source
	Spin      int           // Playlists that passed the filter
	Skipped   int           // Playlists that did not
	DedupMode DedupMode     // Track counting strategy used
	Duration  time.Duration // Wall time of the run
}

// RefreshOpts configures a [RefreshEngine].
type RefreshOpts struct {
	Store    SnapshotWriter
	Recorder Recorder // Optional
	Logger   *log.Logger
	Mode     DedupMode
}

// RefreshEngine runs the fetch, filter, aggregate and store cycle.
//
// Only one run may be in flight per engine; a concurrent call fails fast with [shared.ErrRefreshInProgress].
type RefreshEngine struct {
	store    SnapshotWriter
	recorder Recorder
	logger   *log.Logger
	mode     DedupMode
	mu       sync.Mutex
}

// NewRefreshEngine creates a new [RefreshEngine].
func NewRefreshEngine(opts RefreshOpts) *RefreshEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &RefreshEngine{
		store:    opts.Store,
		recorder: opts.Recorder,
		logger:   shared.WithLogger(opts.Logger, "component", "refresh"),
		mode:     opts.Mode,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *RefreshEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run walks every page of src, aggregates spin playlists and replaces the stored snapshot.
//
// The store is written only after the whole source has been read and aggregated, so a source
// error or a malformed playlist name leaves the previous snapshot untouched.
func (e *RefreshEngine) Run(ctx context.Context, src services.PlaylistSource, progress chan<- ProgressUpdate) (*RefreshResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no playlist source", shared.ErrSourceUnavailable)
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: no snapshot store", shared.ErrInvalidConfig)
	}

	if !e.mu.TryLock() {
		return nil, shared.ErrRefreshInProgress
	}
	defer e.mu.Unlock()

	start := time.Now()
	result, err := e.run(ctx, src, progress)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Error("refresh failed", "source", src.Name(), "elapsed", elapsed, "error", err)
		e.observe(outcome(err), elapsed, nil)
		return nil, err
	}

	result.Duration = elapsed
	e.logger.Info("refresh complete",
		"source", src.Name(),
		"snapshot", result.Snapshot.Version,
		"playlists", result.Snapshot.Playlists,
		"tracks", result.Snapshot.Tracks,
		"artists", result.Snapshot.Artists,
		"skipped", result.Skipped,
		"elapsed", elapsed,
	)
	e.observe("success", elapsed, result.Snapshot)
	e.sendProgress(progress, doneUpdate(result))

	return result, nil
}

func (e *RefreshEngine) run(ctx context.Context, src services.PlaylistSource, progress chan<- ProgressUpdate) (*RefreshResult, error) {
	agg := NewAggregator(WithDedupMode(e.mode))
	result := &RefreshResult{DedupMode: e.mode}

	for page, err := range src.Pages(ctx, IsSpinPlaylist) {
		if err != nil {
			return nil, err
		}

		result.Pages++
		result.Fetched += len(page)
		for _, p := range page {
			if err := agg.Add(p); err != nil {
				return nil, err
			}
		}

		e.logger.Debug("page fetched", "page", result.Pages, "playlists", len(page))
		e.sendProgress(progress, fetchedPageUpdate(result.Pages, result.Fetched))
	}

	result.Skipped = agg.Skipped()
	result.Spin = result.Fetched - result.Skipped
	e.sendProgress(progress, aggregatingUpdate(result.Spin, result.Skipped))

	snapshot := agg.Snapshot()
	e.sendProgress(progress, storingUpdate(len(snapshot.Playlists), len(snapshot.Tracks), len(snapshot.Artists)))

	info, err := e.store.ReplaceAll(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	result.Snapshot = info

	return result, nil
}

func (e *RefreshEngine) observe(outcome string, elapsed time.Duration, info *models.SnapshotInfo) {
	if e.recorder != nil {
		e.recorder.ObserveRefresh(outcome, elapsed, info)
	}
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrPlaylistFormat):
		return "format_error"
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrAuthFailed):
		return "auth_error"
	case errors.Is(err, shared.ErrSourceUnavailable):
		return "source_unavailable"
	default:
		return "error"
	}
}
