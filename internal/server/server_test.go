package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/session"
	tu "github.com/desertthunder/serenitune/internal/testing"
)

type fakePlayer struct {
	mu    sync.Mutex
	state session.State
	calls []string
	subs  []chan session.State
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{state: session.State{Transport: session.Idle, Volume: 0.7}}
}

func (p *fakePlayer) record(call string, mutate func(*session.State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if mutate != nil {
		mutate(&p.state)
	}
	for _, ch := range p.subs {
		select {
		case ch <- p.state:
		default:
		}
	}
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlayer) State() session.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) Subscribe() (<-chan session.State, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan session.State, 1)
	p.subs = append(p.subs, ch)
	return ch, func() {}
}

func (p *fakePlayer) PlayTrack(track models.Track) {
	p.record("play:"+track.ID, func(s *session.State) {
		s.CurrentTrack = &track
		s.Transport = session.Playing
	})
}

func (p *fakePlayer) PlayPlaylist(pl *models.Playlist, start int) {
	p.record("playlist:"+pl.ID, func(s *session.State) {
		s.ActivePlaylist = pl
		track := pl.Entries[start].Track
		s.CurrentTrack = &track
	})
}

func (p *fakePlayer) TogglePlayPause() {
	p.record("toggle", func(s *session.State) { s.Transport = session.Paused })
}

func (p *fakePlayer) PlayNextTrack()     { p.record("next", nil) }
func (p *fakePlayer) PlayPreviousTrack() { p.record("previous", nil) }

func (p *fakePlayer) Seek(d time.Duration) {
	p.record("seek", func(s *session.State) { s.CurrentTime = d })
}

func (p *fakePlayer) SetVolume(level float64) {
	p.record("volume", func(s *session.State) { s.Volume = level })
}

func (p *fakePlayer) ToggleMute() {
	p.record("mute", func(s *session.State) { s.Muted = !s.Muted })
}

func (p *fakePlayer) SetPlayerVisible(visible bool) {
	p.record("hide", func(s *session.State) { s.PlayerVisible = visible })
}

func newTestServer(t *testing.T) (*Server, *fakePlayer) {
	t.Helper()
	tracks := tu.SampleTracks(3)
	lib := tu.NewMockLibrary(tracks...)
	lib.AddPlaylist(models.NewPlaylist("p1", "Calm", "", tracks...))

	player := newFakePlayer()
	srv, err := NewServer(ServerConfig{Player: player, Library: lib})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv, player
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, session.State) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var st session.State
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("invalid state body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, st
}

func TestNewServer(t *testing.T) {
	t.Run("Requires Player", func(t *testing.T) {
		if _, err := NewServer(ServerConfig{}); err == nil {
			t.Error("expected error without a player")
		}
	})

	t.Run("Default Addr", func(t *testing.T) {
		srv, _ := newTestServer(t)
		if srv.Addr() != DefaultAddr {
			t.Errorf("expected %s, got %s", DefaultAddr, srv.Addr())
		}
	})
}

func TestRemoteCommands(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		wantCall string
		check    func(t *testing.T, st session.State)
	}{
		{name: "state", method: http.MethodGet, target: "/state", check: func(t *testing.T, st session.State) {
			if st.Transport != session.Idle || st.Volume != 0.7 {
				t.Errorf("unexpected state %+v", st)
			}
		}},
		{name: "toggle", method: http.MethodPost, target: "/toggle", wantCall: "toggle", check: func(t *testing.T, st session.State) {
			if st.Transport != session.Paused {
				t.Errorf("expected paused, got %s", st.Transport)
			}
		}},
		{name: "next", method: http.MethodPost, target: "/next", wantCall: "next"},
		{name: "previous", method: http.MethodPost, target: "/previous", wantCall: "previous"},
		{name: "seek", method: http.MethodPost, target: "/seek?t=12.5", wantCall: "seek", check: func(t *testing.T, st session.State) {
			if st.CurrentTime != 12500*time.Millisecond {
				t.Errorf("expected 12.5s, got %s", st.CurrentTime)
			}
		}},
		{name: "volume", method: http.MethodPost, target: "/volume?level=0.25", wantCall: "volume", check: func(t *testing.T, st session.State) {
			if st.Volume != 0.25 {
				t.Errorf("expected 0.25, got %v", st.Volume)
			}
		}},
		{name: "mute", method: http.MethodPost, target: "/mute", wantCall: "mute", check: func(t *testing.T, st session.State) {
			if !st.Muted {
				t.Error("expected muted")
			}
		}},
		{name: "hide", method: http.MethodPost, target: "/hide", wantCall: "hide"},
		{name: "play track", method: http.MethodPost, target: "/tracks/t2/play", wantCall: "play:t2", check: func(t *testing.T, st session.State) {
			if !st.IsCurrent("t2") {
				t.Errorf("expected t2 current, got %+v", st.CurrentTrack)
			}
		}},
		{name: "play playlist", method: http.MethodPost, target: "/playlists/p1/play?start=2", wantCall: "playlist:p1", check: func(t *testing.T, st session.State) {
			if !st.IsCurrent("t3") {
				t.Errorf("expected t3 current, got %+v", st.CurrentTrack)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, player := newTestServer(t)

			rec, st := do(t, srv.Handler(), tt.method, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("expected JSON content type, got %s", ct)
			}
			if tt.wantCall != "" {
				calls := player.Calls()
				if len(calls) != 1 || calls[0] != tt.wantCall {
					t.Errorf("expected call %s, got %v", tt.wantCall, calls)
				}
			}
			if tt.check != nil {
				tt.check(t, st)
			}
		})
	}
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{name: "missing seek param", method: http.MethodPost, target: "/seek", want: http.StatusBadRequest},
		{name: "invalid volume", method: http.MethodPost, target: "/volume?level=loud", want: http.StatusBadRequest},
		{name: "invalid start", method: http.MethodPost, target: "/playlists/p1/play?start=x", want: http.StatusBadRequest},
		{name: "unknown track", method: http.MethodPost, target: "/tracks/nope/play", want: http.StatusNotFound},
		{name: "unknown playlist", method: http.MethodPost, target: "/playlists/nope/play", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, target: "/toggle", want: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, target: "/nowhere", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, player := newTestServer(t)

			rec, _ := do(t, srv.Handler(), tt.method, tt.target)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if calls := player.Calls(); len(calls) != 0 {
				t.Errorf("failed requests should not drive the player, got %v", calls)
			}
		})
	}

	t.Run("No Library", func(t *testing.T) {
		srv, err := NewServer(ServerConfig{Player: newFakePlayer()})
		if err != nil {
			t.Fatalf("NewServer failed: %v", err)
		}
		rec, _ := do(t, srv.Handler(), http.MethodPost, "/tracks/t1/play")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestEvents(t *testing.T) {
	srv, player := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() session.State {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var st session.State
				if err := json.Unmarshal([]byte(data), &st); err != nil {
					t.Fatalf("invalid event %q: %v", data, err)
				}
				return st
			}
		}
	}

	if st := next(); st.Transport != session.Idle {
		t.Errorf("expected initial idle state, got %s", st.Transport)
	}

	player.ToggleMute()
	if st := next(); !st.Muted {
		t.Error("expected muted state to be streamed")
	}
}

func TestServe(t *testing.T) {
	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/state")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBasicRouter(t *testing.T) {
	r := NewBasicRouter()
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}
	r.Use(mw("first"), mw("second"))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Body.String() != "pong" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware ran in order %v", order)
	}
}
