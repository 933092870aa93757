package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/playlist"
	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/shared"
)

var (
	_ list.Item         = playlistItem{}
	_ list.Item         = trackItem{}
	_ list.ItemDelegate = trackDelegate{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", i.playlist.Len(), shared.FormatDuration(i.playlist.TotalDuration()))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title + " " + i.track.Category }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %s", i.track.Category, shared.FormatDuration(i.track.Duration))
}

// trackDelegate renders two-line track rows with the session's play marker on the current track.
// The current row also carries the inline visualizer when one is mounted.
type trackDelegate struct {
	m *Model
}

func (d trackDelegate) Height() int                             { return 2 }
func (d trackDelegate) Spacing() int                            { return 1 }
func (d trackDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d trackDelegate) Render(w io.Writer, l list.Model, index int, item list.Item) {
	it, ok := item.(trackItem)
	if !ok {
		return
	}

	cursor, title := "  ", it.Title()
	if index == l.Index() {
		cursor, title = "▸ ", accent.Render(title)
	}

	marker := " "
	meta := "    " + it.Description()
	if d.m.state.IsCurrent(it.track.ID) {
		marker = transportIcon(d.m.state.Transport)
		if d.m.rows != nil {
			if v := d.m.rows.viz.View(); v != "" {
				meta += "  " + v
			}
		}
	}
	fmt.Fprintf(w, "%s%s %s\n%s", cursor, marker, title, styles.help.Render(meta))
}

// trackFilter filters list items with the same title/category match the playlist builder uses.
// Items must be built from tracks() in order.
func trackFilter(tracks func() []models.Track) list.FilterFunc {
	return func(term string, targets []string) []list.Rank {
		all := tracks()
		if len(all) != len(targets) {
			return list.DefaultFilter(term, targets)
		}

		matches := playlist.Filter(all, term)
		ranks := make([]list.Rank, 0, len(matches))
		j := 0
		for i, t := range all {
			if j < len(matches) && matches[j].ID == t.ID {
				ranks = append(ranks, list.Rank{Index: i})
				j++
			}
		}
		return ranks
	}
}

func transportIcon(t session.Transport) string {
	switch t {
	case session.Playing:
		return "▶"
	case session.Paused:
		return "⏸"
	case session.Loading:
		return "…"
	case session.Error:
		return "!"
	default:
		return "■"
	}
}
