// package server contains the router, middleware and handlers for the remote-control HTTP surface
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/services"
	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
)

const DefaultAddr = "127.0.0.1:4747"

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, request ids, compression, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Player is the part of the playback session the remote surface drives.
type Player interface {
	State() session.State
	Subscribe() (<-chan session.State, func())
	PlayTrack(track models.Track)
	PlayPlaylist(p *models.Playlist, start int)
	TogglePlayPause()
	PlayNextTrack()
	PlayPreviousTrack()
	Seek(d time.Duration)
	SetVolume(level float64)
	ToggleMute()
	SetPlayerVisible(visible bool)
}

var _ Player = (*session.Controller)(nil)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr    string
	Player  Player
	Library services.Library
	Logger  *log.Logger
}

// Server is the remote-control HTTP server.
type Server struct {
	router *BasicRouter
	server *http.Server
	logger *log.Logger
}

// NewServer creates a new remote-control server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Player == nil {
		return nil, fmt.Errorf("%w: player is required", shared.ErrInvalidConfig)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	logger = shared.WithLogger(logger, "component", "server")

	s := &Server{router: NewBasicRouter(), logger: logger}
	s.setupMiddleware()
	s.setupRoutes(NewRemote(cfg.Player, cfg.Library, logger), NewEvents(cfg.Player, logger))

	// no write timeout: /events streams for as long as the client stays
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(s.logger),
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(remote *Remote, events *Events) {
	s.router.Handle(http.MethodGet, "/state", http.HandlerFunc(remote.State))
	s.router.Handle(http.MethodPost, "/toggle", http.HandlerFunc(remote.Toggle))
	s.router.Handle(http.MethodPost, "/next", http.HandlerFunc(remote.Next))
	s.router.Handle(http.MethodPost, "/previous", http.HandlerFunc(remote.Previous))
	s.router.Handle(http.MethodPost, "/seek", http.HandlerFunc(remote.Seek))
	s.router.Handle(http.MethodPost, "/volume", http.HandlerFunc(remote.Volume))
	s.router.Handle(http.MethodPost, "/mute", http.HandlerFunc(remote.Mute))
	s.router.Handle(http.MethodPost, "/hide", http.HandlerFunc(remote.Hide))
	s.router.Handle(http.MethodPost, "/tracks/{id}/play", http.HandlerFunc(remote.PlayTrack))
	s.router.Handle(http.MethodPost, "/playlists/{id}/play", http.HandlerFunc(remote.PlayPlaylist))
	s.router.Handler(events)
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// RequestLogger logs each request through the structured logger.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
