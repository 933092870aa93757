package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksFetched MsgKind = iota
	MsgPlaylistsFetched
	MsgStateChanged
	MsgFrame
	MsgPlaylistSaved
	MsgPlaylistReordered
)

type tracksResult struct {
	tracks []models.Track
	err    error
}

type playlistsResult struct {
	playlists []models.Playlist
	err       error
}

type savedResult struct {
	playlist *models.Playlist
	err      error
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksResult{tracks, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsResult{playlists, err}}
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(st session.State) Msg {
	return Msg{kind: MsgStateChanged, data: st}
}

// frameMsg is the constructor for [MsgFrame]. It carries the surface that rendered.
func frameMsg(s *surface) Msg {
	return Msg{kind: MsgFrame, data: s}
}

// playlistSavedMsg is the constructor for [MsgPlaylistSaved]
func playlistSavedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistSaved, data: savedResult{p, err}}
}

// playlistReorderedMsg is the constructor for [MsgPlaylistReordered]
func playlistReorderedMsg(err error) Msg {
	return Msg{kind: MsgPlaylistReordered, data: err}
}
