package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/session"
	tu "github.com/desertthunder/serenitune/internal/testing"
	"github.com/desertthunder/serenitune/internal/visualizer"
)

type fakeReorderer struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *fakeReorderer) ReorderPlaylist(_ context.Context, _ string, trackIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, slices.Clone(trackIDs))
	return r.err
}

func (r *fakeReorderer) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func newTestModel(t *testing.T) (*Model, *session.Controller, *tu.MockLibrary, *fakeReorderer) {
	t.Helper()
	ctx := context.Background()
	ctrl := session.New(session.Options{Device: tu.NewFakeDevice(), Volume: session.DefaultVolume})
	ctrl.Init(ctx)

	lib := tu.NewMockLibrary(tu.SampleTracks(3)...)
	reord := &fakeReorderer{}
	m := NewModel(ctx, Options{Session: ctrl, Library: lib, Reorderer: reord, Visualizer: visualizer.DefaultConfig()})
	t.Cleanup(func() {
		m.Close()
		ctrl.Dispose()
	})

	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	tracks, _ := lib.ListTracks(ctx, "")
	m.Update(tracksFetchedMsg(tracks, nil))
	return m, ctrl, lib, reord
}

func press(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func mouse(action tea.MouseAction, y int) tea.MouseMsg {
	return tea.MouseMsg{X: 4, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

// savedPlaylist stores the sample tracks as a playlist and opens it in the editor.
func openSavedPlaylist(t *testing.T, m *Model, lib *tu.MockLibrary) *models.Playlist {
	t.Helper()
	p := models.NewPlaylist("p1", "Focus", "", m.tracks...)
	lib.AddPlaylist(p)
	m.openEditor(p)
	if m.view != EditorView {
		t.Fatalf("view = %s, want editor", m.view)
	}
	return p
}

func TestViewStateString(t *testing.T) {
	tc := map[ViewState]string{
		LibraryView:   "Library",
		PlaylistsView: "Playlists",
		EditorView:    "Editor",
		ExpandedView:  "Now Playing",
		ViewState(9):  "Unknown",
	}
	for v, want := range tc {
		if got := v.String(); got != want {
			t.Errorf("ViewState(%d).String() = %q, want %q", v, got, want)
		}
	}
}

func TestEditorRowAt(t *testing.T) {
	e := newEditor(nil, models.NewPlaylist("p", "P", "", tu.SampleTracks(3)...))

	tc := []struct {
		name     string
		y        int
		wantIdx  int
		wantFrac float64
		wantOK   bool
	}{
		{name: "above rows", y: editorTop - 1, wantOK: false},
		{name: "first row top half", y: editorTop, wantIdx: 0, wantFrac: 0.25, wantOK: true},
		{name: "first row bottom half", y: editorTop + 1, wantIdx: 0, wantFrac: 0.75, wantOK: true},
		{name: "third row", y: editorTop + 4, wantIdx: 2, wantFrac: 0.25, wantOK: true},
		{name: "past last row", y: editorTop + 6, wantOK: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			idx, frac, ok := e.rowAt(tt.y)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if idx != tt.wantIdx || frac != tt.wantFrac {
				t.Errorf("rowAt(%d) = (%d, %v), want (%d, %v)", tt.y, idx, frac, tt.wantIdx, tt.wantFrac)
			}
		})
	}

	t.Run("scrolled", func(t *testing.T) {
		e.visible = 1
		e.cursor = 2
		e.scroll()
		idx, _, ok := e.rowAt(editorTop)
		if !ok || idx != 2 {
			t.Errorf("rowAt after scroll = (%d, %v), want (2, true)", idx, ok)
		}
	})
}

func TestEditorDrag(t *testing.T) {
	t.Run("drop persists new order and updates the session", func(t *testing.T) {
		m, ctrl, lib, reord := newTestModel(t)
		p := openSavedPlaylist(t, m, lib)
		ctrl.PlayPlaylist(p, 0)

		m.Update(mouse(tea.MouseActionPress, editorTop))
		if !m.editor.drag.Dragging() {
			t.Fatal("expected drag to begin on first row")
		}

		// The upper half of the next row does not commit a downward move.
		m.Update(mouse(tea.MouseActionMotion, editorTop+2))
		if got := m.editor.playlist().TrackIDs(); !slices.Equal(got, []string{"t1", "t2", "t3"}) {
			t.Fatalf("order after upper-half hover = %v", got)
		}

		m.Update(mouse(tea.MouseActionMotion, editorTop+3))
		if m.editor.cursor != 1 {
			t.Errorf("cursor = %d, want 1", m.editor.cursor)
		}

		_, cmd := m.Update(mouse(tea.MouseActionRelease, editorTop+3))
		if cmd == nil {
			t.Fatal("expected reorder command after drop")
		}
		m.Update(cmd())

		want := []string{"t2", "t1", "t3"}
		if got := reord.last(); !slices.Equal(got, want) {
			t.Errorf("reorder = %v, want %v", got, want)
		}
		if got := ctrl.State().ActivePlaylist.TrackIDs(); !slices.Equal(got, want) {
			t.Errorf("active playlist = %v, want %v", got, want)
		}
		if !m.editor.playlist().Valid() {
			t.Error("positions not restamped after drop")
		}
		if m.editor.status != "Order saved" {
			t.Errorf("status = %q", m.editor.status)
		}
	})

	t.Run("release without movement does nothing", func(t *testing.T) {
		m, _, lib, reord := newTestModel(t)
		openSavedPlaylist(t, m, lib)

		m.Update(mouse(tea.MouseActionPress, editorTop+2))
		_, cmd := m.Update(mouse(tea.MouseActionRelease, editorTop+2))
		if cmd != nil || reord.last() != nil {
			t.Error("expected no reorder")
		}
	})

	t.Run("escape keeps committed moves", func(t *testing.T) {
		m, _, lib, reord := newTestModel(t)
		openSavedPlaylist(t, m, lib)

		m.Update(mouse(tea.MouseActionPress, editorTop+4))
		m.Update(mouse(tea.MouseActionMotion, editorTop))
		_, cmd := m.Update(press("esc"))
		if m.editor.drag.Dragging() {
			t.Fatal("drag still active after esc")
		}
		if m.view != EditorView {
			t.Fatalf("esc during drag left the editor")
		}
		if cmd == nil {
			t.Fatal("expected reorder command")
		}
		cmd()
		if got, want := reord.last(), []string{"t3", "t1", "t2"}; !slices.Equal(got, want) {
			t.Errorf("reorder = %v, want %v", got, want)
		}
	})

	t.Run("unsaved playlist only marks dirty", func(t *testing.T) {
		m, _, _, reord := newTestModel(t)
		m.openEditor(models.NewPlaylist("", "Draft", "", m.tracks...))

		m.Update(mouse(tea.MouseActionPress, editorTop))
		m.Update(mouse(tea.MouseActionMotion, editorTop+5))
		_, cmd := m.Update(mouse(tea.MouseActionRelease, editorTop+5))
		if cmd != nil || reord.last() != nil {
			t.Error("unsaved playlist should not be reordered remotely")
		}
		if !m.editor.dirty {
			t.Error("expected dirty editor")
		}
		if got := m.editor.playlist().TrackIDs(); !slices.Equal(got, []string{"t2", "t3", "t1"}) {
			t.Errorf("order = %v", got)
		}
	})
}

func TestEditorKeys(t *testing.T) {
	m, _, lib, reord := newTestModel(t)
	openSavedPlaylist(t, m, lib)

	_, cmd := m.Update(press("J"))
	if cmd == nil {
		t.Fatal("expected reorder command after move down")
	}
	cmd()
	if got, want := reord.last(), []string{"t2", "t1", "t3"}; !slices.Equal(got, want) {
		t.Errorf("reorder = %v, want %v", got, want)
	}

	m.Update(press("d"))
	if got := m.editor.playlist().TrackIDs(); !slices.Equal(got, []string{"t2", "t3"}) {
		t.Errorf("after remove = %v", got)
	}
	if !m.editor.dirty {
		t.Error("remove should mark the editor dirty")
	}

	calls := len(reord.calls)
	m.Update(press("K"))
	if len(reord.calls) != calls {
		t.Error("dirty editor should not reorder remotely")
	}

	_, cmd = m.Update(press("s"))
	if cmd == nil {
		t.Fatal("expected save command")
	}
	m.Update(cmd())
	if m.editor.dirty || m.editor.status != "Saved" {
		t.Errorf("dirty = %v, status = %q", m.editor.dirty, m.editor.status)
	}
	saved, err := lib.GetPlaylist(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}
	if got := saved.TrackIDs(); !slices.Equal(got, m.editor.playlist().TrackIDs()) {
		t.Errorf("saved order = %v, want %v", got, m.editor.playlist().TrackIDs())
	}

	m.Update(press("esc"))
	if m.view != PlaylistsView {
		t.Errorf("view = %s, want playlists", m.view)
	}
}

func TestCreatePlaylist(t *testing.T) {
	m, _, lib, _ := newTestModel(t)
	m.setView(PlaylistsView)

	m.Update(press("N"))
	if m.view != EditorView || !m.editor.naming {
		t.Fatalf("view = %s, naming = %v", m.view, m.editor.naming)
	}

	m.Update(press("s"))
	if !m.editor.naming || lib.Saves() != 0 || m.editor.title.Value() != "s" {
		t.Error("keys while naming should go to the title input")
	}
	m.editor.title.SetValue("")
	m.Update(press("Evening"))
	m.Update(press("enter"))
	if got := m.editor.playlist().Title; got != "Evening" {
		t.Fatalf("title = %q", got)
	}

	_, cmd := m.Update(press("s"))
	if cmd != nil {
		t.Error("saving an empty playlist should fail validation")
	}
	if !strings.Contains(m.editor.status, "at least one track") {
		t.Errorf("status = %q", m.editor.status)
	}

	m.setView(LibraryView)
	m.Update(press("a"))
	m.Update(press("a"))
	if m.editor.playlist().Len() != 1 {
		t.Errorf("len = %d, duplicate add should be ignored", m.editor.playlist().Len())
	}
	if !strings.Contains(m.status, "already") {
		t.Errorf("status = %q", m.status)
	}

	m.setView(EditorView)
	_, cmd = m.Update(press("s"))
	if cmd == nil {
		t.Fatal("expected save command")
	}
	m.Update(cmd())
	if m.editor.playlist().ID == "" {
		t.Error("editor did not adopt saved id")
	}
	if lib.Saves() != 1 {
		t.Errorf("saves = %d, want 1", lib.Saves())
	}
}

func TestPlayerKeys(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)

	m.Update(press("enter"))
	st := ctrl.State()
	if !st.IsCurrent("t1") || st.Transport != session.Playing || !st.PlayerVisible {
		t.Fatalf("after enter: %+v", st)
	}
	m.applyState(st)

	tc := []struct {
		key   string
		check func(session.State) bool
	}{
		{key: "space", check: func(s session.State) bool { return s.Transport == session.Paused }},
		{key: "space", check: func(s session.State) bool { return s.Transport == session.Playing }},
		{key: "m", check: func(s session.State) bool { return s.Muted }},
		{key: "m", check: func(s session.State) bool { return !s.Muted }},
		{key: "-", check: func(s session.State) bool { return s.Volume < session.DefaultVolume }},
		{key: "]", check: func(s session.State) bool { return s.CurrentTime > 0 }},
		{key: "[", check: func(s session.State) bool { return s.CurrentTime == 0 }},
		{key: "x", check: func(s session.State) bool { return !s.PlayerVisible }},
	}
	for _, tt := range tc {
		m.Update(press(tt.key))
		st := ctrl.State()
		if !tt.check(st) {
			t.Errorf("after %q: %+v", tt.key, st)
		}
		m.applyState(st)
	}
}

func TestPlaylistsPlay(t *testing.T) {
	m, ctrl, lib, _ := newTestModel(t)
	lib.AddPlaylist(models.NewPlaylist("p1", "Focus", "", m.tracks[1], m.tracks[2]))
	playlists, _ := lib.ListPlaylists(context.Background())
	m.Update(playlistsFetchedMsg(playlists, nil))

	m.Update(press("tab"))
	if m.view != PlaylistsView {
		t.Fatalf("view = %s", m.view)
	}
	m.Update(press("enter"))

	st := ctrl.State()
	if st.ActivePlaylist == nil || st.ActivePlaylist.ID != "p1" || !st.IsCurrent("t2") {
		t.Errorf("state = %+v", st)
	}
}

func TestSurfaces(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)
	if m.rows == nil {
		t.Fatal("library view should mount the inline visualizer")
	}

	m.Update(press("f"))
	if m.view != LibraryView || m.expanded != nil {
		t.Error("expanded player requires a current track")
	}

	ctrl.PlayTrack(m.tracks[0])
	m.applyState(ctrl.State())
	if !m.rows.viz.Running() {
		t.Error("inline visualizer should run once a track is attached")
	}

	m.Update(press("f"))
	if m.view != ExpandedView || m.expanded == nil {
		t.Fatalf("view = %s, expanded = %v", m.view, m.expanded)
	}
	if m.rows != nil {
		t.Error("leaving the library should unmount the inline visualizer")
	}
	viz := m.expanded.viz

	m.Update(press("v"))
	if viz.Enabled() {
		t.Error("v should hide the visualizer")
	}
	if !strings.Contains(m.View(), "visualizer hidden") {
		t.Error("expanded view should note the hidden visualizer")
	}
	m.Update(press("v"))

	m.Update(press("esc"))
	if m.view != LibraryView || m.expanded != nil {
		t.Errorf("view = %s, expanded = %v", m.view, m.expanded)
	}
	if viz.Running() {
		t.Error("unmounted visualizer still running")
	}
	if m.rows == nil {
		t.Error("returning to the library should remount the inline visualizer")
	}
}

func TestTrackChangeReattaches(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)
	ctrl.PlayTrack(m.tracks[0])
	m.applyState(ctrl.State())
	if m.attachedID != "t1" {
		t.Fatalf("attachedID = %q", m.attachedID)
	}

	ctrl.PlayTrack(m.tracks[1])
	m.applyState(ctrl.State())
	if m.attachedID != "t2" || !m.rows.viz.Running() {
		t.Errorf("attachedID = %q, running = %v", m.attachedID, m.rows.viz.Running())
	}
}

func TestWaitForState(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)

	// The subscription delivers the current state first.
	msg := m.waitForState()()
	if got, ok := msg.(Msg); !ok || got.kind != MsgStateChanged {
		t.Fatalf("msg = %#v", msg)
	}

	ctrl.ToggleMute()
	_, cmd := m.Update(m.waitForState()())
	if !m.state.Muted {
		t.Error("model did not apply the published state")
	}
	if cmd == nil {
		t.Error("expected the state wait to be re-armed")
	}

	m.Close()
	if msg := m.waitForState()(); msg != nil {
		t.Errorf("closed subscription yielded %#v", msg)
	}
}

func TestFetchErrors(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.Update(playlistsFetchedMsg(nil, errors.New("backend down")))
	if m.err == nil || !strings.Contains(m.View(), "backend down") {
		t.Errorf("err = %v", m.err)
	}
}

func TestTrackFilter(t *testing.T) {
	tracks := tu.SampleTracks(4)
	filter := trackFilter(func() []models.Track { return tracks })
	targets := make([]string, len(tracks))
	for i, tr := range tracks {
		targets[i] = trackItem{track: tr}.FilterValue()
	}

	ranks := filter("nature", targets)
	var got []int
	for _, r := range ranks {
		got = append(got, r.Index)
	}
	if want := []int{0, 3}; !slices.Equal(got, want) {
		t.Errorf("ranks = %v, want %v", got, want)
	}

	if ranks := filter("", targets); len(ranks) != len(tracks) {
		t.Errorf("empty query matched %d of %d", len(ranks), len(tracks))
	}
}

func TestView(t *testing.T) {
	m, ctrl, _, _ := newTestModel(t)
	ctrl.PlayTrack(m.tracks[0])
	m.applyState(ctrl.State())

	view := m.View()
	for _, want := range []string{"Library", "Now Playing", "Track 1", "vol 70%", "0:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	ctrl.ToggleMute()
	m.applyState(ctrl.State())
	if !strings.Contains(m.View(), "muted") {
		t.Error("player bar should show muted")
	}
}
