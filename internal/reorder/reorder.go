// Package reorder implements hover-driven drag reordering of playlist entries.
//
// Moves commit live while hovering: each committed hover removes the dragged entry and re-inserts it
// at the hovered index, and the engine keeps tracking the entry at its new index. A midpoint
// hysteresis gate keeps the order from flickering when the pointer sits near an item boundary.
package reorder

import (
	"fmt"
	"slices"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
)

// Midpoint is the hysteresis threshold on the pointer's fractional position within the hovered item.
const Midpoint = 0.5

// Engine reorders a playlist working copy in place.
type Engine struct {
	playlist *models.Playlist

	dragging bool
	dragged  int
	original []string
}

func New(p *models.Playlist) *Engine {
	return &Engine{playlist: p, dragged: -1}
}

// Dragging reports whether a gesture is in progress.
func (e *Engine) Dragging() bool { return e.dragging }

// DraggedIndex is the live index of the dragged entry, or -1 when idle.
func (e *Engine) DraggedIndex() int {
	if !e.dragging {
		return -1
	}
	return e.dragged
}

// Begin starts a drag gesture on the entry at index.
func (e *Engine) Begin(index int) error {
	if index < 0 || index >= e.playlist.Len() {
		return fmt.Errorf("%w: drag index %d out of range [0, %d)", shared.ErrInvalidInput, index, e.playlist.Len())
	}
	e.dragging = true
	e.dragged = index
	e.original = e.playlist.TrackIDs()
	return nil
}

// Hover handles the pointer over the entry at hoverIndex, where fraction is the pointer's position
// within that entry (0 top, 1 bottom). It reports whether a move was committed.
func (e *Engine) Hover(hoverIndex int, fraction float64) bool {
	if !e.dragging || hoverIndex == e.dragged {
		return false
	}
	if hoverIndex < 0 || hoverIndex >= e.playlist.Len() {
		return false
	}

	down := e.dragged < hoverIndex
	if down && fraction < Midpoint {
		return false
	}
	if !down && fraction > Midpoint {
		return false
	}

	entries := e.playlist.Entries
	moved := entries[e.dragged]
	entries = slices.Delete(entries, e.dragged, e.dragged+1)
	e.playlist.Entries = slices.Insert(entries, hoverIndex, moved)
	e.dragged = hoverIndex
	return true
}

// Drop ends the gesture and re-stamps positions over the final order.
// It reports whether the order differs from when the gesture began.
func (e *Engine) Drop() bool {
	if !e.dragging {
		return false
	}
	changed := e.Changed()
	e.finish()
	return changed
}

// Cancel ends the gesture without reverting: moves committed while hovering are kept.
func (e *Engine) Cancel() {
	if !e.dragging {
		return
	}
	e.finish()
}

// Changed reports whether the current order differs from the order at Begin.
func (e *Engine) Changed() bool {
	return e.dragging && !slices.Equal(e.original, e.playlist.TrackIDs())
}

func (e *Engine) finish() {
	e.playlist.Restamp()
	e.dragging = false
	e.dragged = -1
	e.original = nil
}

// Fraction converts a pointer coordinate into its fractional position within [top, bottom].
// Degenerate bounds report the midpoint.
func Fraction(pointerY, top, bottom float64) float64 {
	if bottom <= top {
		return Midpoint
	}
	return shared.Clamp((pointerY-top)/(bottom-top), 0, 1)
}
