package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/services"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/go-chi/chi/v5"
)

// Remote handles transport commands. Every command responds with the resulting session state.
type Remote struct {
	player  Player
	library services.Library
	logger  *log.Logger
}

// NewRemote creates the command handlers. library may be nil, which disables the play-by-id routes.
func NewRemote(player Player, library services.Library, logger *log.Logger) *Remote {
	return &Remote{player: player, library: library, logger: logger}
}

// State handles GET /state
func (h *Remote) State(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK)
}

// Toggle handles POST /toggle
func (h *Remote) Toggle(w http.ResponseWriter, r *http.Request) {
	h.player.TogglePlayPause()
	h.respond(w, http.StatusOK)
}

// Next handles POST /next
func (h *Remote) Next(w http.ResponseWriter, r *http.Request) {
	h.player.PlayNextTrack()
	h.respond(w, http.StatusOK)
}

// Previous handles POST /previous
func (h *Remote) Previous(w http.ResponseWriter, r *http.Request) {
	h.player.PlayPreviousTrack()
	h.respond(w, http.StatusOK)
}

// Seek handles POST /seek?t=<seconds>
func (h *Remote) Seek(w http.ResponseWriter, r *http.Request) {
	secs, err := floatParam(r, "t")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.player.Seek(time.Duration(secs * float64(time.Second)))
	h.respond(w, http.StatusOK)
}

// Volume handles POST /volume?level=<0..1>
func (h *Remote) Volume(w http.ResponseWriter, r *http.Request) {
	level, err := floatParam(r, "level")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.player.SetVolume(level)
	h.respond(w, http.StatusOK)
}

// Mute handles POST /mute
func (h *Remote) Mute(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleMute()
	h.respond(w, http.StatusOK)
}

// Hide handles POST /hide, the close button of the compact player.
func (h *Remote) Hide(w http.ResponseWriter, r *http.Request) {
	h.player.SetPlayerVisible(false)
	h.respond(w, http.StatusOK)
}

// PlayTrack handles POST /tracks/{id}/play
func (h *Remote) PlayTrack(w http.ResponseWriter, r *http.Request) {
	if h.library == nil {
		h.fail(w, fmt.Errorf("%w: no library configured", shared.ErrServiceUnavailable))
		return
	}

	track, err := h.library.GetTrack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.player.PlayTrack(*track)
	h.respond(w, http.StatusOK)
}

// PlayPlaylist handles POST /playlists/{id}/play?start=<index>
func (h *Remote) PlayPlaylist(w http.ResponseWriter, r *http.Request) {
	if h.library == nil {
		h.fail(w, fmt.Errorf("%w: no library configured", shared.ErrServiceUnavailable))
		return
	}

	start := 0
	if raw := r.URL.Query().Get("start"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: start must be an integer", shared.ErrInvalidArgument))
			return
		}
		start = n
	}

	p, err := h.library.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.player.PlayPlaylist(p, start)
	h.respond(w, http.StatusOK)
}

func (h *Remote) respond(w http.ResponseWriter, status int) {
	writeJSON(w, status, h.player.State())
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Remote) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrTrackNotFound), errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", shared.ErrInvalidArgument, name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
