package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/desertthunder/serenitune/internal/server"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs a playback session on this machine and exposes it over HTTP until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	}

	ctrl := r.Session(ctx)
	defer ctrl.Dispose()

	srv, err := server.NewServer(server.ServerConfig{
		Addr:    addr,
		Player:  ctrl,
		Library: lib,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr(), err)
	}

	url := "http://" + ln.Addr().String() + "/state"
	r.writePlain("Remote control listening on http://%s\n", ln.Addr())
	if cmd.Bool("open") {
		if err := shared.OpenURL(ctx, url); err != nil {
			r.logger.Warn("could not open browser", "url", url, "error", err)
		}
	}

	return srv.Serve(ctx, ln)
}
