// Package tasks turns raw playlists from a [services.PlaylistSource] into stored report snapshots.
//
// # Filtering
//
// Only spin playlists take part in a refresh. [IsSpinPlaylist] admits names that open with a date
// token such as "1/15", and [SplitName] splits them into date and title on the first space.
// Everything else is skipped silently.
//
// # Aggregation
//
// An [Aggregator] folds playlists in one at a time and produces a [models.Snapshot]:
//   - one [models.PlaylistRecord] per spin playlist, in source order, with the total length as "M:SS"
//   - one [models.TrackRecord] per track identifier (the name stands in when the identifier is empty)
//   - one [models.ArtistRecord] per artist name, counted once per track-artist pairing
//
// [DedupLegacy] keeps the counting behaviour of the old dashboard, where tracks without an
// identifier could be under-counted. [DedupByID] is the default.
//
// # Refresh
//
// [RefreshEngine.Run] walks every page of a source, aggregates, and hands the finished snapshot to
// a [SnapshotWriter] in one call. A source failure or malformed name aborts the run before anything
// is written. Only one run may be in flight per engine.
//
// # Progress Reporting
//
// Runs accept an optional channel of [ProgressUpdate] values. Sends use select with default so a
// slow reader never blocks a refresh.
package tasks
