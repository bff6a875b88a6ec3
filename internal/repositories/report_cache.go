package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/shared"
)

// CacheObserver is told whether each cached lookup hit. Implemented by metrics.Metrics.
type CacheObserver interface {
	ObserveCache(query string, hit bool)
}

// ReportCache implements [Store] by memoizing report queries of another [Store].
//
// Entries are keyed by snapshot version, so a snapshot written by another process (a CLI refresh
// against the same file) is picked up on the next request. Writes through the cache purge it.
type ReportCache struct {
	store    Store
	cache    *lru.Cache[string, any]
	observer CacheObserver
}

// NewReportCache wraps store with an LRU of the given size. observer may be nil.
func NewReportCache(store Store, size int, observer CacheObserver) (*ReportCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cache size must be positive, got %d", shared.ErrInvalidConfig, size)
	}

	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	return &ReportCache{store: store, cache: cache, observer: observer}, nil
}

func (c *ReportCache) ReplaceAll(ctx context.Context, snapshot *models.Snapshot) (*models.SnapshotInfo, error) {
	info, err := c.store.ReplaceAll(ctx, snapshot)
	c.cache.Purge()
	return info, err
}

func (c *ReportCache) Current(ctx context.Context) (*models.SnapshotInfo, error) {
	return c.store.Current(ctx)
}

func (c *ReportCache) RecentPlaylists(ctx context.Context, limit int) ([]models.PlaylistRecord, error) {
	return cached(ctx, c, fmt.Sprintf("recent_playlists:%d", limit), func() ([]models.PlaylistRecord, error) {
		return c.store.RecentPlaylists(ctx, limit)
	})
}

func (c *ReportCache) TopArtists(ctx context.Context, limit int) ([]models.ArtistRecord, error) {
	return cached(ctx, c, fmt.Sprintf("top_artists:%d", limit), func() ([]models.ArtistRecord, error) {
		return c.store.TopArtists(ctx, limit)
	})
}

func (c *ReportCache) AllPlaylists(ctx context.Context) ([]models.PlaylistRecord, error) {
	return cached(ctx, c, "all_playlists", func() ([]models.PlaylistRecord, error) {
		return c.store.AllPlaylists(ctx)
	})
}

func (c *ReportCache) AllTracks(ctx context.Context) ([]models.TrackRecord, error) {
	return cached(ctx, c, "all_tracks", func() ([]models.TrackRecord, error) {
		return c.store.AllTracks(ctx)
	})
}

// Len returns the number of cached results.
func (c *ReportCache) Len() int {
	return c.cache.Len()
}

// cached serves query from the cache for the current snapshot version, loading it on a miss.
// Without a current snapshot the query goes straight to the store.
func cached[T any](ctx context.Context, c *ReportCache, query string, load func() ([]T, error)) ([]T, error) {
	info, err := c.store.Current(ctx)
	if errors.Is(err, shared.ErrNoSnapshot) {
		return load()
	} else if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d/%s", info.Version, query)
	if v, ok := c.cache.Get(key); ok {
		c.observe(query, true)
		return v.([]T), nil
	}
	c.observe(query, false)

	result, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, result)

	return result, nil
}

func (c *ReportCache) observe(query string, hit bool) {
	if c.observer == nil {
		return
	}
	name, _, _ := strings.Cut(query, ":")
	c.observer.ObserveCache(name, hit)
}
