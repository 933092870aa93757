package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/session"
)

// Events streams session state as server-sent events on /events.
//
// The current state is sent on connect; later states are delivered latest-wins, so a slow
// client sees fewer intermediate updates but never stalls the session.
type Events struct {
	player Player
	logger *log.Logger
}

// NewEvents creates the SSE handler.
func NewEvents(player Player, logger *log.Logger) *Events {
	return &Events{player: player, logger: logger}
}

// Routes implements [Handler].
func (h *Events) Routes() []string { return []string{"/events"} }

// ServeHTTP implements [Handler].
func (h *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	states, cancel := h.player.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, h.player.State()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := writeEvent(w, st); err != nil {
				h.logger.Debug("event stream closed", "err", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}
