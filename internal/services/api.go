// API service for the REST backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "http://127.0.0.1:8000/api"

// APIService is the REST implementation of [Library].
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// APIOpts configures an [APIService].
type APIOpts struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// RateLimit is the sustained requests per second. Non-positive disables limiting.
	RateLimit  float64
	HTTPClient *http.Client
}

// NewAPIService creates a new API service instance for the backend.
func NewAPIService(ctx context.Context, opts APIOpts) *APIService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, ts)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &APIService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Put performs a PUT request with the given JSON data and returns the raw response.
func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, data)
}

// Do performs a rate limited request and returns the raw response. Non-2xx statuses are not errors here.
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// errorDetail matches the backend's error body.
type errorDetail struct {
	Detail string `json:"detail"`
}

// check maps a non-2xx response onto a sentinel, using notFound for 404s.
func check(resp *APIResponse, notFound error) error {
	if resp.OK() {
		return nil
	}

	msg := fmt.Sprintf("status %d", resp.StatusCode)
	var detail errorDetail
	if json.Unmarshal(resp.Body, &detail) == nil && detail.Detail != "" {
		msg += ": " + detail.Detail
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return fmt.Errorf("%w: %s", notFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, msg)
	default:
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}
}

func (a *APIService) getJSON(ctx context.Context, path string, notFound error, out any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := check(resp, notFound); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", shared.ErrAPIRequest, path, err)
	}
	return nil
}

func (a *APIService) sendJSON(ctx context.Context, method, path string, in any, notFound error, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := a.Do(ctx, method, path, data)
	if err != nil {
		return err
	}
	if err := check(resp, notFound); err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", shared.ErrAPIRequest, path, err)
	}
	return nil
}

// ListTracks implements [TrackProvider].
func (a *APIService) ListTracks(ctx context.Context, category string) ([]models.Track, error) {
	path := "/tracks"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}

	var tracks []apiTrack
	if err := a.getJSON(ctx, path, nil, &tracks); err != nil {
		return nil, err
	}

	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = a.resolve(t.model())
	}
	return out, nil
}

// GetTrack implements [TrackProvider].
func (a *APIService) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	var t apiTrack
	if err := a.getJSON(ctx, "/tracks/"+url.PathEscape(id), shared.ErrTrackNotFound, &t); err != nil {
		return nil, err
	}
	track := a.resolve(t.model())
	return &track, nil
}

// ListCategories returns the distinct track categories known to the backend.
func (a *APIService) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := a.getJSON(ctx, "/tracks/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListPlaylists implements [PlaylistProvider].
func (a *APIService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []apiPlaylist
	if err := a.getJSON(ctx, "/playlists", nil, &playlists); err != nil {
		return nil, err
	}

	out := make([]models.Playlist, len(playlists))
	for i, p := range playlists {
		out[i] = *a.playlist(p)
	}
	return out, nil
}

// GetPlaylist implements [PlaylistProvider].
func (a *APIService) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var p apiPlaylist
	if err := a.getJSON(ctx, "/playlists/"+url.PathEscape(id), shared.ErrPlaylistNotFound, &p); err != nil {
		return nil, err
	}
	return a.playlist(p), nil
}

// SavePlaylist implements [PlaylistProvider]: POST for new playlists, PUT otherwise.
func (a *APIService) SavePlaylist(ctx context.Context, id string, draft models.PlaylistDraft) (*models.Playlist, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	body := newPlaylistPayload(draft)
	var saved apiPlaylist
	var err error
	if id == "" {
		err = a.sendJSON(ctx, http.MethodPost, "/playlists", body, nil, &saved)
	} else {
		err = a.sendJSON(ctx, http.MethodPut, "/playlists/"+url.PathEscape(id), body, shared.ErrPlaylistNotFound, &saved)
	}
	if err != nil {
		return nil, err
	}

	if saved.ID == "" {
		saved.ID = flexID(id)
	}
	return a.playlist(saved), nil
}

// ReorderPlaylist persists a new track order without touching title or description.
func (a *APIService) ReorderPlaylist(ctx context.Context, id string, trackIDs []string) error {
	body := reorderPayload{TrackOrder: trackIDs}
	return a.sendJSON(ctx, http.MethodPut, "/playlists/"+url.PathEscape(id)+"/reorder", body, shared.ErrPlaylistNotFound, nil)
}

// flexID accepts both numeric and string identifiers from the backend.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*f = flexID(n.String())
	return nil
}

type apiTrack struct {
	ID          flexID  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Duration    float64 `json:"duration"`
	AudioURL    string  `json:"audio_url"`
	Description string  `json:"description"`
}

func (t apiTrack) model() models.Track {
	return models.Track{
		ID:          string(t.ID),
		Title:       t.Title,
		Category:    t.Category,
		Duration:    int(t.Duration),
		AudioURL:    t.AudioURL,
		Description: t.Description,
	}
}

type apiEntry struct {
	Track    apiTrack `json:"track"`
	Position int      `json:"position"`
}

type apiPlaylist struct {
	ID          flexID     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tracks      []apiEntry `json:"tracks"`
}

// resolve makes a relative audio url absolute against the backend origin.
func (a *APIService) resolve(t models.Track) models.Track {
	ref, err := url.Parse(t.AudioURL)
	if err != nil || ref.IsAbs() || t.AudioURL == "" {
		return t
	}
	base, err := url.Parse(a.baseURL + "/")
	if err != nil {
		return t
	}
	t.AudioURL = base.ResolveReference(ref).String()
	return t
}

func (a *APIService) playlist(p apiPlaylist) *models.Playlist {
	out := p.model()
	for i := range out.Entries {
		out.Entries[i].Track = a.resolve(out.Entries[i].Track)
	}
	return out
}

// HTTPClient is the client requests go through, carrying the bearer token when one is configured.
func (a *APIService) HTTPClient() *http.Client { return a.httpClient }

// model orders entries by their server positions, then re-stamps them.
func (p apiPlaylist) model() *models.Playlist {
	entries := slices.Clone(p.Tracks)
	slices.SortStableFunc(entries, func(a, b apiEntry) int { return a.Position - b.Position })

	out := models.NewPlaylist(string(p.ID), p.Title, p.Description)
	for _, e := range entries {
		out.Entries = append(out.Entries, models.PlaylistEntry{Track: e.Track.model()})
	}
	out.Restamp()
	return out
}

type payloadEntry struct {
	TrackID  string `json:"track_id"`
	Position int    `json:"position"`
}

type playlistPayload struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tracks      []payloadEntry `json:"tracks"`
}

func newPlaylistPayload(d models.PlaylistDraft) playlistPayload {
	entries := make([]payloadEntry, len(d.TrackIDs))
	for i, id := range d.TrackIDs {
		entries[i] = payloadEntry{TrackID: id, Position: i}
	}
	return playlistPayload{Title: d.Title, Description: d.Description, Tracks: entries}
}

type reorderPayload struct {
	TrackOrder []string `json:"track_order"`
}
