package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a refresh.
//
// Used to send real-time updates to the CLI or dashboard log for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	AggregateRecords
	StoreSnapshot
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case AggregateRecords:
		return "aggregate"
	case StoreSnapshot:
		return "store_snapshot"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchedPageUpdate(page, playlists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    page,
		Message: fmt.Sprintf("Fetched page %d (%d playlists so far)...", page, playlists),
	}
}

func aggregatingUpdate(spin, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AggregateRecords,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Aggregating %d spin playlists (%d skipped)...", spin, skipped),
	}
}

func storingUpdate(playlists, tracks, artists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Storing %d playlists, %d tracks, %d artists...", playlists, tracks, artists),
	}
}

func doneUpdate(result *RefreshResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Snapshot %d stored in %s", result.Snapshot.Version, result.Duration.Round(time.Millisecond)),
		Data:    result,
	}
}
