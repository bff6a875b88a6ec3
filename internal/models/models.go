// package models defines the records that flow from the playlist source, through aggregation, into the store
package models

import "time"

// RawPlaylist is a playlist as returned by the source, before filtering.
type RawPlaylist struct {
	ID     string     // Source identifier (Spotify URI)
	Name   string     // Display name, "<date> <title>" for spin playlists
	Tracks []RawTrack // Tracks in playlist order
}

// RawTrack is one track occurrence within a [RawPlaylist].
type RawTrack struct {
	ID         string   // Empty when the source has no identifier (local files)
	Name       string   // Display name
	DurationMS int      // Duration in milliseconds
	Artists    []string // Artist names in source order
}

// PlaylistRecord is the persisted form of a spin playlist.
type PlaylistRecord struct {
	ExternalID string // Source identifier
	Title      string // Name with the date prefix removed
	Date       string // Date prefix, e.g. "1/15"
	Length     string // Total duration as "M:SS"
	Tracks     string // Track names joined by ", "
}

// TrackRecord is a distinct track with the number of times it appeared across spin playlists.
type TrackRecord struct {
	ID      string // Source identifier, or the track name when the source had none
	Name    string
	Artists string // Artist names joined by ", "
	Count   int
}

// ArtistRecord is an artist with one count per track-artist pairing across spin playlists.
type ArtistRecord struct {
	Name  string
	Count int
}

// Snapshot is the complete output of one aggregation run.
//
// A snapshot replaces the previous one wholesale; it is never merged.
type Snapshot struct {
	Playlists []PlaylistRecord
	Tracks    []TrackRecord
	Artists   []ArtistRecord
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID        string
	Version   int
	CreatedAt time.Time
	Playlists int
	Tracks    int
	Artists   int
}
