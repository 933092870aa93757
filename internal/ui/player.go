package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/desertthunder/serenitune/internal/playlist"
	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/visualizer"
)

// playerBarHeight is the separator plus the three bar lines.
const playerBarHeight = 4

func newProgress() progress.Model {
	return progress.New(progress.WithGradient(visualizer.Indigo, visualizer.SoftLavender), progress.WithoutPercentage())
}

func volumeLabel(st session.State) string {
	if st.Muted {
		return "muted"
	}
	return fmt.Sprintf("vol %d%%", int(st.Volume*100+0.5))
}

func timeline(st session.State, bar progress.Model) string {
	return fmt.Sprintf("%s %s %s", session.FormatTime(st.CurrentTime), bar.ViewAs(st.Progress()), session.FormatTime(st.Duration))
}

// renderPlayerBar draws the compact player shown under every view while the player is visible.
func (m *Model) renderPlayerBar() string {
	st := m.state
	var b strings.Builder
	b.WriteString(styles.help.Render(strings.Repeat("─", max(m.width, 20))))
	b.WriteString("\n")

	if st.CurrentTrack == nil {
		b.WriteString(styles.help.Render("Nothing playing"))
		b.WriteString("\n\n")
	} else {
		line := fmt.Sprintf("%s %s", transportIcon(st.Transport), styles.heading.Render(st.CurrentTrack.Title))
		if st.CurrentTrack.Category != "" {
			line += styles.help.Render(" · " + st.CurrentTrack.Category)
		}
		if st.ActivePlaylist != nil {
			line += styles.help.Render(" · " + st.ActivePlaylist.Title)
		}
		if st.Transport == session.Error {
			line += " " + styles.err.Render("playback failed")
		}
		b.WriteString(line)
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s  %s", timeline(st, m.progress), volumeLabel(st))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()) + "  " + styles.help.Render("[x] close"))
	return b.String()
}

// renderExpanded draws the full player with its visualizer.
func (m *Model) renderExpanded() string {
	st := m.state
	if st.CurrentTrack == nil {
		return styles.warn.Render("Nothing is playing.")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(st.CurrentTrack.Title))
	b.WriteString("\n")
	if st.CurrentTrack.Category != "" {
		b.WriteString(styles.help.Render(st.CurrentTrack.Category))
		b.WriteString("\n")
	}
	if st.CurrentTrack.Description != "" {
		b.WriteString(st.CurrentTrack.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.expanded != nil {
		if v := m.expanded.viz.View(); v != "" {
			b.WriteString(v)
		} else {
			b.WriteString(styles.help.Render("visualizer hidden (v to show)"))
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "%s %s\n", transportIcon(st.Transport), timeline(st, m.progress))
	b.WriteString(volumeLabel(st))
	if st.ActivePlaylist != nil {
		if idx := activeIndex(st); idx >= 0 {
			fmt.Fprintf(&b, " · %s (%d/%d)", st.ActivePlaylist.Title, idx+1, st.ActivePlaylist.Len())
		}
	}
	return b.String()
}

func activeIndex(st session.State) int {
	if st.ActivePlaylist == nil || st.CurrentTrack == nil {
		return -1
	}
	return playlist.IndexOf(st.ActivePlaylist.Entries, st.CurrentTrack.ID)
}
