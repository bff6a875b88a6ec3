// Package repositories implements SQLite persistence for aggregated report snapshots.
//
// A refresh produces one [models.Snapshot]; [SQLStore.ReplaceAll] writes it next to the current
// snapshot, repoints the current_snapshot row and drops the old rows inside a single transaction.
// A failed write rolls back completely and readers never observe a half-written snapshot.
//
// Key Implementations:
//   - [PlaylistRepository] : spin playlists in source order
//   - [TrackRepository] : de-duplicated tracks ranked by count, then artist
//   - [ArtistRepository] : artists ranked by count
//   - [SQLStore] : the [Store] combining all three around snapshot bookkeeping
//   - [ReportCache] : an LRU in front of any [Store], keyed by snapshot version
//
// Snapshot versions come from [NextSequence], which increments a per-table counter in a dedicated
// sequence table inside the caller's transaction.
package repositories
