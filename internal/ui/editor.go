package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/playlist"
	"github.com/desertthunder/serenitune/internal/reorder"
	"github.com/desertthunder/serenitune/internal/shared"
)

const (
	// editorTop is the screen row of the first entry: tab bar and blank line, then heading, summary and blank line.
	editorTop = 5
	rowHeight = 2
)

// editor is the playlist builder surface. Entries are drawn two rows tall and reordered by mouse drag
// through a [reorder.Engine] bound to the builder's working copy.
type editor struct {
	builder *playlist.Builder
	drag    *reorder.Engine
	title   textinput.Model
	naming  bool
	cursor  int
	offset  int
	visible int
	dirty   bool
	status  string
}

func newEditor(available []models.Track, initial *models.Playlist) *editor {
	b := playlist.NewBuilder(available, initial)
	ti := textinput.New()
	ti.Placeholder = "Playlist name"
	ti.CharLimit = 120
	ti.SetValue(b.Playlist().Title)
	return &editor{builder: b, drag: reorder.New(b.Playlist()), title: ti, visible: 10}
}

func (e *editor) playlist() *models.Playlist { return e.builder.Playlist() }

func (e *editor) setHeight(h int) {
	e.visible = max(1, h/rowHeight)
	e.scroll()
}

// rowAt maps a screen row to the entry under it and the pointer's fraction within that entry.
func (e *editor) rowAt(y int) (int, float64, bool) {
	if y < editorTop {
		return 0, 0, false
	}
	idx := e.offset + (y-editorTop)/rowHeight
	if idx >= e.playlist().Len() || idx >= e.offset+e.visible {
		return 0, 0, false
	}
	top := editorTop + (idx-e.offset)*rowHeight
	return idx, reorder.Fraction(float64(y)+0.5, float64(top), float64(top+rowHeight)), true
}

// handleMouse drives the drag gesture and reports whether a drop changed the order.
func (e *editor) handleMouse(msg tea.MouseMsg) bool {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return false
		}
		if idx, _, ok := e.rowAt(msg.Y); ok && e.drag.Begin(idx) == nil {
			e.cursor = idx
		}
	case tea.MouseActionMotion:
		if !e.drag.Dragging() {
			return false
		}
		if idx, frac, ok := e.rowAt(msg.Y); ok && e.drag.Hover(idx, frac) {
			e.cursor = e.drag.DraggedIndex()
		}
	case tea.MouseActionRelease:
		return e.drag.Drop()
	}
	return false
}

// cancel ends a drag in progress, keeping committed moves, and reports whether the order changed.
func (e *editor) cancel() bool {
	changed := e.drag.Changed()
	e.drag.Cancel()
	return changed
}

func (e *editor) moveCursor(delta int) {
	if n := e.playlist().Len(); n > 0 {
		e.cursor = shared.Clamp(e.cursor+delta, 0, n-1)
	}
	e.scroll()
}

// shift moves the entry under the cursor by delta and follows it.
func (e *editor) shift(delta int) bool {
	to := e.cursor + delta
	if err := e.builder.Move(e.cursor, to); err != nil {
		return false
	}
	e.cursor = to
	e.scroll()
	return true
}

func (e *editor) removeCurrent() bool {
	if err := e.builder.RemoveAt(e.cursor); err != nil {
		return false
	}
	e.moveCursor(0)
	return true
}

func (e *editor) add(t models.Track) bool {
	if !e.builder.Add(t) {
		e.status = fmt.Sprintf("%q is already in the playlist", t.Title)
		return false
	}
	e.status = fmt.Sprintf("Added %q", t.Title)
	return true
}

func (e *editor) scroll() {
	if e.cursor < e.offset {
		e.offset = e.cursor
	}
	if e.cursor >= e.offset+e.visible {
		e.offset = e.cursor - e.visible + 1
	}
}

func (e *editor) view(width int) string {
	p := e.playlist()
	var b strings.Builder

	if e.naming {
		b.WriteString(e.title.View())
	} else {
		name := p.Title
		if name == "" {
			name = "(untitled)"
		}
		b.WriteString(styles.heading.Render("✎ " + name))
	}
	b.WriteString("\n")

	summary := fmt.Sprintf("%d tracks • %s", p.Len(), shared.FormatDuration(p.TotalDuration()))
	if e.dirty {
		summary += " • unsaved changes"
	}
	if e.status != "" {
		summary += " • " + e.status
	}
	b.WriteString(styles.help.Render(summary))
	b.WriteString("\n\n")

	if p.Len() == 0 {
		b.WriteString(styles.warn.Render("No tracks yet. Press a on a library track to add it."))
		return b.String()
	}

	end := min(p.Len(), e.offset+e.visible)
	dragged := e.drag.DraggedIndex()
	for i := e.offset; i < end; i++ {
		entry := p.Entries[i]
		cursor, title := "  ", fmt.Sprintf("%d. %s", i+1, entry.Track.Title)
		switch {
		case i == dragged:
			cursor, title = "≡ ", accent.Render(title)
		case i == e.cursor:
			cursor, title = "▸ ", accent.Render(title)
		}
		meta := fmt.Sprintf("     %s • %s", entry.Track.Category, shared.FormatDuration(entry.Track.Duration))
		fmt.Fprintf(&b, "%s%s\n%s", cursor, title, styles.help.Render(truncate(meta, width)))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 0 || len([]rune(s)) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
