// package tasks implements long-running library operations with progress reporting.
package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/services"
	"github.com/desertthunder/serenitune/internal/shared"
)

const (
	defaultWorkers = 5
	maxWorkers     = 10
)

// TrackStore persists imported tracks, matching existing rows by audio url.
type TrackStore interface {
	Upsert(ctx context.Context, track *models.Track) (created bool, err error)
}

// LibraryEngine runs imports into a [TrackStore] and exports from a [services.PlaylistProvider].
type LibraryEngine struct {
	playlists services.PlaylistProvider
	store     TrackStore
	logger    *log.Logger
	probe     func(path string) (time.Duration, error)
}

// NewLibraryEngine creates a LibraryEngine. Either dependency may be nil when the matching operation is not used.
func NewLibraryEngine(playlists services.PlaylistProvider, store TrackStore, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &LibraryEngine{
		playlists: playlists,
		store:     store,
		logger:    shared.WithLogger(logger, "component", "tasks"),
		probe:     audio.Probe,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func clampWorkers(n int) int {
	if n <= 0 {
		return defaultWorkers
	}
	return min(n, maxWorkers)
}
