package tasks

import (
	"fmt"

	"github.com/desertthunder/weekcopy/internal/services"
)

// ProgressUpdate represents a progress event during a copy run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number
	Total   int    // Total steps in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Authorize Phase = iota
	FetchSource
	CreatePlaylist
	AddTracks
	Done
)

// copySteps is the number of phases a full run walks through before [Done].
const copySteps = 4

func (p Phase) String() string {
	switch p {
	case Authorize:
		return "authorize"
	case FetchSource:
		return "fetch_source"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case Done:
		return "done"
	default:
		return ""
	}
}

func authorizeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authorize,
		Step:    1,
		Total:   copySteps,
		Message: "Refreshing access token...",
	}
}

func fetchSourceUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    2,
		Total:   copySteps,
		Message: fmt.Sprintf("Fetching source playlist (%s)...", playlistID),
	}
}

func emptySourceUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    copySteps,
		Total:   copySteps,
		Message: "Source playlist is empty, nothing to do",
	}
}

func createPlaylistUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    3,
		Total:   copySteps,
		Message: fmt.Sprintf("Creating playlist %q for %d tracks...", name, count),
	}
}

func addTracksUpdate(pl *services.Playlist, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    4,
		Total:   copySteps,
		Message: fmt.Sprintf("Adding %d tracks to %s (ID: %s)...", count, pl.Name, pl.ID),
		Data:    pl,
	}
}

func doneUpdate(result *CopyResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    copySteps,
		Total:   copySteps,
		Message: fmt.Sprintf("✓ Copied %d tracks to %s", result.TrackCount, result.TargetName),
		Data:    result,
	}
}
