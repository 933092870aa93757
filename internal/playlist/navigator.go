package playlist

import (
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/samber/lo"
)

// IndexOf returns the position of the track with the given id, or -1.
func IndexOf(entries []models.PlaylistEntry, trackID string) int {
	_, idx, ok := lo.FindIndexOf(entries, func(e models.PlaylistEntry) bool {
		return e.Track.ID == trackID
	})
	if !ok {
		return -1
	}
	return idx
}

// Next returns the entry after currentID, wrapping from last to first.
// It reports false when entries is empty or currentID is not present.
func Next(entries []models.PlaylistEntry, currentID string) (models.Track, bool) {
	return step(entries, currentID, 1)
}

// Previous returns the entry before currentID, wrapping from first to last.
func Previous(entries []models.PlaylistEntry, currentID string) (models.Track, bool) {
	return step(entries, currentID, -1)
}

func step(entries []models.PlaylistEntry, currentID string, delta int) (models.Track, bool) {
	n := len(entries)
	if n == 0 {
		return models.Track{}, false
	}
	idx := IndexOf(entries, currentID)
	if idx < 0 {
		return models.Track{}, false
	}
	return entries[(idx+delta+n)%n].Track, true
}
