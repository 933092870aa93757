package tasks

import (
	"fmt"

	"github.com/desertthunder/serenitune/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ScanFiles Phase = iota
	ReadMetadata
	StoreTracks
	FetchPlaylist
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ScanFiles:
		return "scan_files"
	case ReadMetadata:
		return "read_metadata"
	case StoreTracks:
		return "store_tracks"
	case FetchPlaylist:
		return "fetch_playlist"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func scanUpdate(found int, root string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFiles,
		Step:    found,
		Total:   found,
		Message: fmt.Sprintf("Found %d audio files in %s", found, root),
	}
}

func readFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadMetadata,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, path, err),
	}
}

func storedTrackUpdate(step, total int, track *models.Track, created bool) ProgressUpdate {
	verb := "Updated"
	if created {
		verb = "Added"
	}
	return ProgressUpdate{
		Phase:   StoreTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s [%d:%02d]", step, total, verb, track.Title, track.Duration/60, track.Duration%60),
		Data:    track,
	}
}

func fetchingPlaylistUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching playlist %s...", step, total, id),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
