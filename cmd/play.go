package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play plays one track, or a playlist on repeat, until it finishes or the command is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	playlistID := cmd.String("playlist")
	trackID := cmd.StringArg("track")
	if playlistID == "" && trackID == "" {
		return fmt.Errorf("%w: a track id or --playlist is required", shared.ErrMissingArgument)
	}

	ctrl := r.Session(ctx)
	defer ctrl.Dispose()

	if v := cmd.Float("volume"); v >= 0 {
		ctrl.SetVolume(v)
	}

	states, cancel := ctrl.Subscribe()
	defer cancel()

	if playlistID != "" {
		p, err := lib.GetPlaylist(ctx, playlistID)
		if err != nil {
			return err
		}
		r.writePlain("♫ %s (%d tracks)\n", p.Title, p.Len())
		ctrl.PlayPlaylist(p, int(cmd.Int("start")))
	} else {
		t, err := lib.GetTrack(ctx, trackID)
		if err != nil {
			return err
		}
		ctrl.PlayTrack(*t)
	}

	return r.follow(ctx, states)
}

// follow prints track changes and the playback position until playback stops or ctx is done.
func (r *Runner) follow(ctx context.Context, states <-chan session.State) error {
	var current string
	for {
		select {
		case <-ctx.Done():
			r.writePlain("\n")
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if st.CurrentTrack != nil && st.CurrentTrack.ID != current {
				if current != "" {
					r.writePlain("\n")
				}
				current = st.CurrentTrack.ID
				r.writePlain("▶ %s\n", st.CurrentTrack.Title)
			}

			switch st.Transport {
			case session.Playing:
				r.writePlain("\r  %s / %s ", session.FormatTime(st.CurrentTime), session.FormatTime(st.Duration))
			case session.Error:
				r.writePlain("\n")
				return fmt.Errorf("%w: playback of %s failed", shared.ErrDevice, current)
			case session.Ended, session.Idle:
				if current != "" {
					r.writePlain("\n■ done\n")
					return nil
				}
			}
		}
	}
}
