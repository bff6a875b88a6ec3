package web

import (
	"time"

	"github.com/desertthunder/spindb/internal/models"
)

// RecentPlaylist is a row of the recent playlists table on the home page.
type RecentPlaylist struct {
	Name   string
	Date   string
	Length string
}

// TopArtist is a row of the top artists table on the home page.
type TopArtist struct {
	Name  string
	Count int
}

// PlaylistRow is a row of the playlists page.
type PlaylistRow struct {
	Name   string
	Date   string
	Tracks string
	Length string
}

// TrackRow is a row of the tracks page.
type TrackRow struct {
	Name   string
	Artist string
	Count  int
}

// SnapshotSummary describes the data behind a report page.
type SnapshotSummary struct {
	Version   int
	CreatedAt time.Time
}

// HomeView is the model of the home page.
type HomeView struct {
	Recent     []RecentPlaylist
	TopArtists []TopArtist
	Snapshot   *SnapshotSummary
}

// RootView is the model of the login page.
type RootView struct {
	AuthURL string
	Notice  string
}

// ErrorView is the model of the error page.
type ErrorView struct {
	Status  int
	Title   string
	Message string
}

func recentPlaylists(records []models.PlaylistRecord) []RecentPlaylist {
	out := make([]RecentPlaylist, 0, len(records))
	for _, r := range records {
		out = append(out, RecentPlaylist{Name: r.Title, Date: r.Date, Length: r.Length})
	}
	return out
}

func topArtists(records []models.ArtistRecord) []TopArtist {
	out := make([]TopArtist, 0, len(records))
	for _, r := range records {
		out = append(out, TopArtist{Name: r.Name, Count: r.Count})
	}
	return out
}

func playlistRows(records []models.PlaylistRecord) []PlaylistRow {
	out := make([]PlaylistRow, 0, len(records))
	for _, r := range records {
		out = append(out, PlaylistRow{Name: r.Title, Date: r.Date, Tracks: r.Tracks, Length: r.Length})
	}
	return out
}

func trackRows(records []models.TrackRecord) []TrackRow {
	out := make([]TrackRow, 0, len(records))
	for _, r := range records {
		out = append(out, TrackRow{Name: r.Name, Artist: r.Artists, Count: r.Count})
	}
	return out
}

func snapshotSummary(info *models.SnapshotInfo) *SnapshotSummary {
	if info == nil {
		return nil
	}
	return &SnapshotSummary{Version: info.Version, CreatedAt: info.CreatedAt}
}
