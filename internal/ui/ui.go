package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/services"
	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/spectrum"
	"github.com/desertthunder/serenitune/internal/visualizer"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 0.1
)

// Session is the playback surface the TUI drives.
type Session interface {
	State() session.State
	Subscribe() (<-chan session.State, func())
	Analyzer() (*spectrum.Analyzer, error)
	PlayTrack(track models.Track)
	PlayPlaylist(p *models.Playlist, start int)
	UpdateActivePlaylist(p *models.Playlist)
	TogglePlayPause()
	PlayNextTrack()
	PlayPreviousTrack()
	Seek(d time.Duration)
	SetVolume(level float64)
	ToggleMute()
	SetPlayerVisible(visible bool)
}

var _ Session = (*session.Controller)(nil)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LibraryView ViewState = iota
	PlaylistsView
	EditorView
	ExpandedView
)

func (v ViewState) String() string {
	switch v {
	case LibraryView:
		return "Library"
	case PlaylistsView:
		return "Playlists"
	case EditorView:
		return "Editor"
	case ExpandedView:
		return "Now Playing"
	default:
		return "Unknown"
	}
}

// Options wires the model to a session and a library.
type Options struct {
	Session Session
	Library services.Library
	// Reorderer persists drag reorders of saved playlists. Optional.
	Reorderer  services.PlaylistReorderer
	Visualizer visualizer.Config
	Logger     *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	session   Session
	library   services.Library
	reorderer services.PlaylistReorderer
	logger    *log.Logger
	vizConfig visualizer.Config

	view   ViewState
	back   ViewState
	width  int
	height int

	state       session.State
	states      <-chan session.State
	unsubscribe func()
	attachedID  string

	tracks       []models.Track
	trackList    list.Model
	playlists    []models.Playlist
	playlistList list.Model
	editor       *editor

	rows     *surface
	expanded *surface
	progress progress.Model

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model subscribed to the session. Call [Model.Close] when the program exits.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	m := &Model{
		ctx:       ctx,
		session:   opts.Session,
		library:   opts.Library,
		reorderer: opts.Reorderer,
		logger:    logger,
		vizConfig: opts.Visualizer,
		view:      LibraryView,
		back:      LibraryView,
		progress:  newProgress(),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.state = m.session.State()
	if m.state.CurrentTrack != nil {
		m.attachedID = m.state.CurrentTrack.ID
	}
	m.states, m.unsubscribe = m.session.Subscribe()

	m.trackList = list.New(nil, trackDelegate{m: m}, 0, 0)
	m.trackList.Title = "Library"
	m.trackList.Filter = trackFilter(func() []models.Track { return m.tracks })
	m.trackList.SetShowHelp(false)

	m.playlistList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = "Playlists"
	m.playlistList.SetShowHelp(false)
	return m
}

// Init fetches the library and starts listening for session and visualizer updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchTracks(),
		m.fetchPlaylists(),
		m.waitForState(),
		m.mount(&m.rows, rowConfig(m.vizConfig), rowWidth),
	)
}

// Close unmounts visualizers and releases the session subscription. It is safe to call more than once.
func (m *Model) Close() {
	m.unmount(&m.rows)
	m.unmount(&m.expanded)
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.MouseMsg:
		if m.view == EditorView && m.editor != nil && m.editor.handleMouse(msg) {
			return m, m.reordered()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgTracksFetched:
		res := msg.data.(tracksResult)
		if res.err != nil {
			m.err = fmt.Errorf("loading tracks: %w", res.err)
			return nil
		}
		m.tracks = res.tracks
		items := make([]list.Item, len(res.tracks))
		for i, t := range res.tracks {
			items[i] = trackItem{track: t}
		}
		return m.trackList.SetItems(items)

	case MsgPlaylistsFetched:
		res := msg.data.(playlistsResult)
		if res.err != nil {
			m.err = fmt.Errorf("loading playlists: %w", res.err)
			return nil
		}
		m.playlists = res.playlists
		items := make([]list.Item, len(res.playlists))
		for i, p := range res.playlists {
			items[i] = playlistItem{playlist: p}
		}
		return m.playlistList.SetItems(items)

	case MsgStateChanged:
		m.applyState(msg.data.(session.State))
		return m.waitForState()

	case MsgFrame:
		if s := msg.data.(*surface); s == m.rows || s == m.expanded {
			return s.wait()
		}
		return nil

	case MsgPlaylistSaved:
		res := msg.data.(savedResult)
		if m.editor == nil {
			return nil
		}
		if res.err != nil {
			m.editor.status = res.err.Error()
			return nil
		}
		if res.playlist != nil && res.playlist.ID != "" {
			m.editor.playlist().ID = res.playlist.ID
		}
		m.editor.dirty = false
		m.editor.status = "Saved"
		m.session.UpdateActivePlaylist(m.editor.playlist())
		return m.fetchPlaylists()

	case MsgPlaylistReordered:
		if m.editor == nil {
			return nil
		}
		if err, _ := msg.data.(error); err != nil {
			m.editor.status = "reorder failed: " + err.Error()
			return nil
		}
		m.editor.status = "Order saved"
		return m.fetchPlaylists()
	}
	return nil
}

func (m *Model) applyState(st session.State) {
	visible := m.state.PlayerVisible
	m.state = st
	if st.PlayerVisible != visible {
		m.resize()
	}

	id := ""
	if st.CurrentTrack != nil {
		id = st.CurrentTrack.ID
	}
	if id == m.attachedID {
		return
	}
	m.attachedID = id
	for _, s := range []*surface{m.rows, m.expanded} {
		if s == nil {
			continue
		}
		s.viz.Detach()
		m.attach(s)
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == EditorView && m.editor != nil && m.editor.naming {
		return m, m.handleNamingKeys(msg)
	}
	if m.filtering() {
		return m.updateLists(msg)
	}
	if key.Matches(msg, m.keys.quit) {
		m.Close()
		return m, tea.Quit
	}
	if cmd, ok := m.handlePlayerKeys(msg); ok {
		return m, cmd
	}

	switch m.view {
	case LibraryView:
		return m.handleLibraryKeys(msg)
	case PlaylistsView:
		return m.handlePlaylistsKeys(msg)
	case EditorView:
		return m, m.handleEditorKeys(msg)
	case ExpandedView:
		if key.Matches(msg, m.keys.back) {
			return m, m.setView(m.back)
		}
	}
	return m, nil
}

// handlePlayerKeys handles transport keys that work from every view.
func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	st := m.state
	switch {
	case key.Matches(msg, m.keys.toggle):
		m.session.TogglePlayPause()
	case key.Matches(msg, m.keys.next):
		m.session.PlayNextTrack()
	case key.Matches(msg, m.keys.prev):
		m.session.PlayPreviousTrack()
	case key.Matches(msg, m.keys.rewind):
		m.session.Seek(max(st.CurrentTime-seekStep, 0))
	case key.Matches(msg, m.keys.forward):
		m.session.Seek(st.CurrentTime + seekStep)
	case key.Matches(msg, m.keys.louder):
		m.session.SetVolume(shared.Clamp(st.Volume+volumeStep, 0, 1))
	case key.Matches(msg, m.keys.quieter):
		m.session.SetVolume(shared.Clamp(st.Volume-volumeStep, 0, 1))
	case key.Matches(msg, m.keys.mute):
		m.session.ToggleMute()
	case key.Matches(msg, m.keys.hide):
		m.session.SetPlayerVisible(false)
		if m.view == ExpandedView {
			return m.setView(m.back), true
		}
	case key.Matches(msg, m.keys.expand):
		if st.CurrentTrack == nil || m.view == ExpandedView {
			return nil, true
		}
		return m.setView(ExpandedView), true
	case key.Matches(msg, m.keys.viz):
		if s := m.activeSurface(); s != nil {
			s.viz.Toggle()
		}
	case key.Matches(msg, m.keys.tab):
		return m.setView(m.nextView()), true
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it, selected := m.trackList.SelectedItem().(trackItem)
	switch {
	case key.Matches(msg, m.keys.enter) && selected:
		m.session.PlayTrack(it.track)
		return m, nil
	case key.Matches(msg, m.keys.add) && selected:
		if m.editor == nil {
			m.editor = newEditor(m.tracks, nil)
			m.resize()
		}
		if m.editor.add(it.track) {
			m.editor.dirty = true
		}
		m.status = m.editor.status
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handlePlaylistsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it, selected := m.playlistList.SelectedItem().(playlistItem)
	switch {
	case key.Matches(msg, m.keys.enter) && selected:
		p := it.playlist
		m.session.PlayPlaylist(&p, 0)
		return m, nil
	case key.Matches(msg, m.keys.edit) && selected:
		p := it.playlist
		return m, m.openEditor(&p)
	case key.Matches(msg, m.keys.create):
		cmd := m.openEditor(nil)
		return m, tea.Batch(cmd, m.startNaming())
	}
	return m.updateLists(msg)
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) tea.Cmd {
	e := m.editor
	if e == nil {
		if key.Matches(msg, m.keys.back) {
			return m.setView(PlaylistsView)
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		if e.drag.Dragging() {
			if e.cancel() {
				return m.reordered()
			}
			return nil
		}
		return m.setView(PlaylistsView)
	case key.Matches(msg, m.keys.up):
		e.moveCursor(-1)
	case key.Matches(msg, m.keys.down):
		e.moveCursor(1)
	case key.Matches(msg, m.keys.raise):
		if e.shift(-1) {
			return m.reordered()
		}
	case key.Matches(msg, m.keys.lower):
		if e.shift(1) {
			return m.reordered()
		}
	case key.Matches(msg, m.keys.remove):
		if e.removeCurrent() {
			e.dirty = true
		}
	case key.Matches(msg, m.keys.enter):
		if p := e.playlist(); p.Len() > 0 {
			m.session.PlayPlaylist(p, e.cursor)
		}
	case key.Matches(msg, m.keys.rename):
		return m.startNaming()
	case key.Matches(msg, m.keys.save):
		return m.savePlaylist()
	}
	return nil
}

func (m *Model) handleNamingKeys(msg tea.KeyMsg) tea.Cmd {
	e := m.editor
	switch msg.Type {
	case tea.KeyEnter:
		if title := strings.TrimSpace(e.title.Value()); title != e.playlist().Title {
			e.builder.SetTitle(title)
			e.dirty = true
		}
		e.naming = false
		e.title.Blur()
		return nil
	case tea.KeyEsc:
		e.naming = false
		e.title.SetValue(e.playlist().Title)
		e.title.Blur()
		return nil
	}
	var cmd tea.Cmd
	e.title, cmd = e.title.Update(msg)
	return cmd
}

func (m *Model) startNaming() tea.Cmd {
	if m.editor == nil {
		return nil
	}
	m.editor.naming = true
	return tea.Batch(m.editor.title.Focus(), textinput.Blink)
}

func (m *Model) openEditor(p *models.Playlist) tea.Cmd {
	m.editor = newEditor(m.tracks, p)
	m.resize()
	return m.setView(EditorView)
}

// reordered propagates a committed reorder to the session and, for saved playlists without other
// pending edits, to the library.
func (m *Model) reordered() tea.Cmd {
	e := m.editor
	p := e.playlist()
	m.session.UpdateActivePlaylist(p)
	if p.ID == "" || m.reorderer == nil || e.dirty {
		e.dirty = true
		return nil
	}
	id, ids := p.ID, p.TrackIDs()
	return func() tea.Msg {
		return playlistReorderedMsg(m.reorderer.ReorderPlaylist(m.ctx, id, ids))
	}
}

func (m *Model) savePlaylist() tea.Cmd {
	e := m.editor
	draft, err := e.builder.Draft()
	if err != nil {
		e.status = err.Error()
		return nil
	}
	e.status = "Saving…"
	id := e.playlist().ID
	return func() tea.Msg {
		p, err := m.library.SavePlaylist(m.ctx, id, draft)
		return playlistSavedMsg(p, err)
	}
}

// setView switches views, mounting the visualizer of the view being entered and
// unmounting the one being left.
func (m *Model) setView(v ViewState) tea.Cmd {
	if v == m.view {
		return nil
	}
	prev := m.view
	m.view = v

	switch prev {
	case LibraryView:
		m.unmount(&m.rows)
	case ExpandedView:
		m.unmount(&m.expanded)
	}

	switch v {
	case LibraryView:
		return m.mount(&m.rows, rowConfig(m.vizConfig), rowWidth)
	case ExpandedView:
		m.back = prev
		return m.mount(&m.expanded, m.vizConfig, m.vizWidth())
	}
	return nil
}

func (m *Model) nextView() ViewState {
	switch m.view {
	case LibraryView:
		return PlaylistsView
	case PlaylistsView:
		if m.editor != nil {
			return EditorView
		}
		return LibraryView
	case ExpandedView:
		return m.back
	default:
		return LibraryView
	}
}

func (m *Model) mount(slot **surface, cfg visualizer.Config, width int) tea.Cmd {
	s, err := mountSurface(cfg, width, m.logger)
	if err != nil {
		m.logger.Warn("visualizer unavailable", "error", err)
		return nil
	}
	*slot = s
	m.attach(s)
	return s.wait()
}

func (m *Model) unmount(slot **surface) {
	if *slot == nil {
		return
	}
	(*slot).unmount()
	*slot = nil
}

// attach binds the session's analyzer when a track is loaded. Without one the surface keeps its placeholder.
func (m *Model) attach(s *surface) {
	if m.state.CurrentTrack == nil {
		return
	}
	a, err := m.session.Analyzer()
	if err != nil || a == nil {
		m.logger.Debug("analyzer unavailable", "error", err)
		return
	}
	s.viz.Attach(a)
}

func (m *Model) activeSurface() *surface {
	switch m.view {
	case LibraryView:
		return m.rows
	case ExpandedView:
		return m.expanded
	}
	return nil
}

func (m *Model) filtering() bool {
	switch m.view {
	case LibraryView:
		return m.trackList.FilterState() == list.Filtering
	case PlaylistsView:
		return m.playlistList.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) bodyHeight() int {
	h := m.height - 2
	if m.state.PlayerVisible {
		h -= playerBarHeight + 1
	}
	return max(h, 1)
}

func (m *Model) vizWidth() int {
	return max(m.width-4, 10)
}

func (m *Model) resize() {
	h := m.bodyHeight()
	m.trackList.SetSize(max(m.width-4, 0), h)
	m.playlistList.SetSize(max(m.width-4, 0), h)
	m.progress.Width = max(m.width-30, 10)
	if m.editor != nil {
		m.editor.setHeight(h - 5)
	}
	if m.expanded != nil {
		m.expanded.viz.SetWidth(m.vizWidth())
	}
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LibraryView:
		m.trackList, cmd = m.trackList.Update(msg)
	case PlaylistsView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchTracks() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.library.ListTracks(m.ctx, "")
		return tracksFetchedMsg(tracks, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.ListPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

// waitForState blocks on the next published session state. A closed subscription ends the loop.
func (m *Model) waitForState() tea.Cmd {
	ch := m.states
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateChangedMsg(st)
	}
}

// View renders the tab bar, the current view and the player bar.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.view {
	case LibraryView:
		b.WriteString(m.trackList.View())
	case PlaylistsView:
		b.WriteString(m.playlistList.View())
	case EditorView:
		if m.editor == nil {
			b.WriteString(styles.warn.Render("No playlist open. Press e on a playlist or N to start one."))
		} else {
			b.WriteString(m.editor.view(m.width))
		}
	case ExpandedView:
		b.WriteString(m.renderExpanded())
	}

	if m.state.PlayerVisible && m.view != ExpandedView {
		b.WriteString("\n")
		b.WriteString(m.renderPlayerBar())
	}
	return b.String()
}

// renderTabs draws the single-line view switcher, followed by the latest error or status.
func (m *Model) renderTabs() string {
	views := []ViewState{LibraryView, PlaylistsView, EditorView}
	if m.state.CurrentTrack != nil {
		views = append(views, ExpandedView)
	}

	tabs := make([]string, len(views))
	for i, v := range views {
		if v == m.view {
			tabs[i] = accent.Render("[" + v.String() + "]")
		} else {
			tabs[i] = styles.help.Render(" " + v.String() + " ")
		}
	}

	line := strings.Join(tabs, " ")
	switch {
	case m.err != nil:
		line += "  " + styles.err.Render(m.err.Error())
	case m.status != "":
		line += "  " + styles.ok.Render(m.status)
	}
	return line
}
