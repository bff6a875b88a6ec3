package tasks

import (
	"strings"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/shared"
)

// DedupMode selects how provisional track records collapse into [models.TrackRecord] values.
type DedupMode int

const (
	// DedupByID groups provisional records by resolved identifier (the name stands in for a
	// missing identifier). Count is the size of each group.
	DedupByID DedupMode = iota
	// DedupLegacy reproduces the original dashboard: counts are taken over raw identifiers before
	// the name fallback is applied, and records then collapse only when every field is equal.
	// Repeated tracks without an identifier are under-counted in this mode.
	DedupLegacy
)

func (m DedupMode) String() string {
	switch m {
	case DedupByID:
		return "by_id"
	case DedupLegacy:
		return "legacy"
	default:
		return ""
	}
}

// AggregateOption configures an [Aggregator].
type AggregateOption func(*Aggregator)

// WithDedupMode sets the track de-duplication strategy.
func WithDedupMode(mode DedupMode) AggregateOption {
	return func(a *Aggregator) { a.mode = mode }
}

// WithLegacyDedup is shorthand for WithDedupMode(DedupLegacy).
func WithLegacyDedup() AggregateOption {
	return WithDedupMode(DedupLegacy)
}

// provisional is a per-occurrence track entry before counting.
type provisional struct {
	id      string
	null    bool
	name    string
	artists string
	count   int
}

// Aggregator turns raw playlists into a [models.Snapshot].
//
// Playlists are added one at a time so a paged source never has to be buffered. An Aggregator is
// single use and not safe for concurrent use.
type Aggregator struct {
	mode      DedupMode
	playlists []models.PlaylistRecord
	tracks    []provisional
	artists   []string
	skipped   int
}

// NewAggregator creates an empty [Aggregator].
func NewAggregator(opts ...AggregateOption) *Aggregator {
	a := &Aggregator{mode: DedupByID}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add folds one raw playlist into the aggregate.
//
// Playlists that are not spin playlists are ignored. A spin playlist whose name cannot be split
// returns an error wrapping [shared.ErrPlaylistFormat]; the caller should abandon the run.
func (a *Aggregator) Add(p models.RawPlaylist) error {
	if !IsSpinPlaylist(p.Name) {
		a.skipped++
		return nil
	}

	date, title, err := SplitName(p.Name)
	if err != nil {
		return err
	}

	totalMS := 0
	names := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		totalMS += t.DurationMS
		names = append(names, t.Name)

		a.tracks = append(a.tracks, provisional{
			id:      t.ID,
			null:    t.ID == "",
			name:    t.Name,
			artists: strings.Join(t.Artists, ", "),
			count:   1,
		})
		a.artists = append(a.artists, t.Artists...)
	}

	a.playlists = append(a.playlists, models.PlaylistRecord{
		ExternalID: p.ID,
		Title:      title,
		Date:       date,
		Length:     shared.FormatLength(totalMS),
		Tracks:     strings.Join(names, ", "),
	})

	return nil
}

// Skipped returns the number of playlists ignored because they were not spin playlists.
func (a *Aggregator) Skipped() int {
	return a.skipped
}

// Snapshot returns the aggregated record sets.
func (a *Aggregator) Snapshot() *models.Snapshot {
	var tracks []models.TrackRecord
	switch a.mode {
	case DedupLegacy:
		tracks = legacyTracks(a.tracks)
	default:
		tracks = groupTracks(a.tracks)
	}

	return &models.Snapshot{
		Playlists: append([]models.PlaylistRecord(nil), a.playlists...),
		Tracks:    tracks,
		Artists:   countArtists(a.artists),
	}
}

// Aggregate folds every playlist into a new [Aggregator] and returns its snapshot.
//
// Nothing is returned on error, so a failing run never yields a partial snapshot.
func Aggregate(playlists []models.RawPlaylist, opts ...AggregateOption) (*models.Snapshot, error) {
	a := NewAggregator(opts...)
	for _, p := range playlists {
		if err := a.Add(p); err != nil {
			return nil, err
		}
	}
	return a.Snapshot(), nil
}

// groupTracks emits one record per resolved identifier in first-occurrence order.
func groupTracks(prov []provisional) []models.TrackRecord {
	index := make(map[string]int, len(prov))
	var out []models.TrackRecord
	for _, p := range prov {
		id := p.id
		if p.null {
			id = p.name
		}

		if i, ok := index[id]; ok {
			out[i].Count++
			continue
		}

		index[id] = len(out)
		out = append(out, models.TrackRecord{ID: id, Name: p.name, Artists: p.artists, Count: 1})
	}
	return out
}

// legacyTracks mirrors the original counting pass step for step.
func legacyTracks(prov []provisional) []models.TrackRecord {
	type key struct {
		id   string
		null bool
	}

	work := append([]provisional(nil), prov...)

	var order []key
	counts := make(map[key]int)
	for _, p := range work {
		k := key{id: p.id, null: p.null}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	for _, k := range order {
		for i := range work {
			p := &work[i]
			switch {
			case p.null == k.null && p.id == k.id:
				p.count = counts[k]
			case p.null:
				p.id, p.null = p.name, false
			}
		}
	}

	var out []models.TrackRecord
	seen := make(map[provisional]bool, len(work))
	for _, p := range work {
		if seen[p] {
			continue
		}
		seen[p] = true

		id := p.id
		if p.null {
			id = ""
		}
		out = append(out, models.TrackRecord{ID: id, Name: p.name, Artists: p.artists, Count: p.count})
	}
	return out
}

// countArtists tallies names in first-occurrence order.
func countArtists(names []string) []models.ArtistRecord {
	index := make(map[string]int, len(names))
	var out []models.ArtistRecord
	for _, name := range names {
		if i, ok := index[name]; ok {
			out[i].Count++
			continue
		}
		index[name] = len(out)
		out = append(out, models.ArtistRecord{Name: name, Count: 1})
	}
	return out
}
