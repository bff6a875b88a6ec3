// Package models defines the data shapes of the spin dashboard.
//
// There are three groups of types:
//
//  1. Source records: [RawPlaylist] and [RawTrack], the nested shape returned by the playlist source.
//  2. Persisted records: [PlaylistRecord], [TrackRecord] and [ArtistRecord], the three normalized tables.
//  3. Snapshots: [Snapshot] bundles the three record sets produced by one aggregation run, and
//     [SnapshotInfo] describes the snapshot the store is currently serving.
//
// Records are plain values. The aggregator builds a [Snapshot], the store takes ownership of it,
// and the report views only read.
package models
