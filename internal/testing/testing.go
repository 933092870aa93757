// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
)

// FakeDevice is a test double for [audio.Device] that records every call.
//
// Tests drive device notifications with [FakeDevice.Emit].
type FakeDevice struct {
	mu sync.Mutex

	LoadErr error
	PlayErr error
	SeekErr error

	loads      []string
	generation uint64
	holds      map[string]chan struct{}
	plays      int
	pauses   int
	seeks    []time.Duration
	volume   float64
	position time.Duration
	playing  bool
	attaches int
	tapped   bool
	closed   bool

	events chan audio.Event
}

func NewFakeDevice() *FakeDevice {
	return &FakeDevice{volume: 1, events: make(chan audio.Event, 64)}
}

// Load records url and binds a new generation. A held url blocks until released or ctx is done.
func (d *FakeDevice) Load(ctx context.Context, url string) (audio.Media, error) {
	d.mu.Lock()
	d.loads = append(d.loads, url)
	hold := d.holds[url]
	d.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return audio.Media{}, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.LoadErr != nil {
		return audio.Media{}, d.LoadErr
	}
	d.generation++
	d.playing = false
	d.position = 0
	return audio.Media{Generation: d.generation}, nil
}

// Hold makes every Load of url block until the returned func is called.
func (d *FakeDevice) Hold(url string) (release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.holds == nil {
		d.holds = make(map[string]chan struct{})
	}
	ch := make(chan struct{})
	d.holds[url] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Generation reports the generation of the most recent successful Load.
func (d *FakeDevice) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

func (d *FakeDevice) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	if d.PlayErr != nil {
		return d.PlayErr
	}
	d.playing = true
	return nil
}

func (d *FakeDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	d.playing = false
}

func (d *FakeDevice) Seek(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, t)
	if d.SeekErr != nil {
		return d.SeekErr
	}
	d.position = t
	return nil
}

func (d *FakeDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *FakeDevice) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

func (d *FakeDevice) SetVolume(level float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = level
}

func (d *FakeDevice) Events() <-chan audio.Event { return d.events }

// AttachTap hands out a tap over silence once, then reports [shared.ErrTapConflict].
func (d *FakeDevice) AttachTap(size int) (*audio.Tap, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attaches++
	if d.tapped {
		return nil, shared.ErrTapConflict
	}
	d.tapped = true
	return audio.NewTap(silence{}, size), nil
}

func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

// Emit queues a device notification. Events without a generation belong to the current load.
func (d *FakeDevice) Emit(ev audio.Event) {
	if ev.Generation == 0 {
		ev.Generation = d.Generation()
	}
	d.events <- ev
}

func (d *FakeDevice) Loads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.loads)
}

func (d *FakeDevice) Seeks() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.seeks)
}

func (d *FakeDevice) Plays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays
}

func (d *FakeDevice) Pauses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauses
}

func (d *FakeDevice) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *FakeDevice) Attaches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attaches
}

func (d *FakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type silence struct{}

func (silence) Stream(samples [][2]float64) (int, bool) {
	clear(samples)
	return len(samples), true
}

func (silence) Err() error { return nil }

// MockLibrary is an in-memory track and playlist provider.
type MockLibrary struct {
	mu        sync.Mutex
	tracks    []models.Track
	playlists map[string]*models.Playlist
	order     []string
	Err       error
	saves     int
}

func NewMockLibrary(tracks ...models.Track) *MockLibrary {
	return &MockLibrary{tracks: tracks, playlists: map[string]*models.Playlist{}}
}

// AddPlaylist stores a copy of p.
func (m *MockLibrary) AddPlaylist(p *models.Playlist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.playlists[p.ID] = p.Clone()
}

func (m *MockLibrary) ListTracks(_ context.Context, category string) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Track
	for _, t := range m.tracks {
		if category == "" || strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockLibrary) GetTrack(_ context.Context, id string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.tracks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
}

func (m *MockLibrary) ListPlaylists(context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Playlist, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.playlists[id].Clone())
	}
	return out, nil
}

func (m *MockLibrary) GetPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p.Clone(), nil
}

// SavePlaylist resolves draft track ids against the library. An empty id creates a playlist.
func (m *MockLibrary) SavePlaylist(_ context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if id == "" {
		id = shared.GenerateID()
	}

	p := models.NewPlaylist(id, draft.Title, draft.Description)
	for _, tid := range draft.TrackIDs {
		idx := slices.IndexFunc(m.tracks, func(t models.Track) bool { return t.ID == tid })
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, tid)
		}
		p.Entries = append(p.Entries, models.PlaylistEntry{Track: m.tracks[idx]})
	}
	p.Restamp()

	if _, ok := m.playlists[id]; !ok {
		m.order = append(m.order, id)
	}
	m.playlists[id] = p
	m.saves++
	return p.Clone(), nil
}

func (m *MockLibrary) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SampleTracks returns n valid tracks with ids "t1".."tn".
func SampleTracks(n int) []models.Track {
	categories := []string{"Nature", "Ambient", "Binaural"}
	tracks := make([]models.Track, n)
	for i := range tracks {
		id := fmt.Sprintf("t%d", i+1)
		tracks[i] = models.Track{
			ID:       id,
			Title:    fmt.Sprintf("Track %d", i+1),
			Category: categories[i%len(categories)],
			Duration: 60 * (i + 1),
			AudioURL: "/audio/" + id + ".mp3",
		}
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
