package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/serenitune/internal/formatter"
	"github.com/desertthunder/serenitune/internal/models"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/tasks"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints every playlist with its length.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	playlists, err := lib.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found.\n")
	}
	for _, p := range playlists {
		r.writePlain("%-28s %3d tracks %7s  [%s]\n", p.Title, p.Len(), shared.FormatDuration(p.TotalDuration()), p.ID)
	}
	return nil
}

// PlaylistsShow renders one playlist in the requested export format.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}
	p, err := lib.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	var render func(*models.Playlist) ([]byte, error)
	switch format := cmd.String("format"); format {
	case "json":
		return r.writeJSON(p, true)
	case "m3u":
		render = formatter.ExportToM3U
	case "csv":
		render = formatter.ExportToCSV
	case "markdown", "md":
		render = formatter.ExportToMarkdown
	case "txt", "":
		render = formatter.ExportToText
	default:
		return fmt.Errorf("%w: format must be one of %v, got %q", shared.ErrInvalidFlag, formatter.Formats, format)
	}

	out, err := render(p)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// PlaylistsCreate saves a new playlist from an ordered list of track ids.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	draft := models.PlaylistDraft{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		TrackIDs:    cmd.StringSlice("track"),
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	p, err := lib.SavePlaylist(ctx, "", draft)
	if err != nil {
		return err
	}
	r.logger.Info("playlist created", "id", p.ID, "tracks", p.Len())
	return r.writePlain("✓ Created %q with %d tracks [%s]\n", p.Title, p.Len(), p.ID)
}

// PlaylistsReorder persists a new order for an existing playlist. The ids must be a permutation of its tracks.
func (r *Runner) PlaylistsReorder(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	order := cmd.StringSlice("track")

	reorderer := r.Reorderer(ctx)
	if reorderer == nil {
		return fmt.Errorf("%w: library cannot reorder playlists", shared.ErrNotImplemented)
	}
	if dupes := lo.FindDuplicates(order); len(dupes) > 0 {
		return fmt.Errorf("%w: duplicate track ids %v", shared.ErrInvalidArgument, dupes)
	}

	if err := reorderer.ReorderPlaylist(ctx, id, order); err != nil {
		return err
	}
	return r.writePlain("✓ Reordered playlist %s\n", id)
}

// PlaylistsExport writes playlists to disk with a manifest, defaulting to every playlist.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("id")
	if len(ids) == 0 {
		lib, _ := r.Library(ctx)
		playlists, err := lib.ListPlaylists(ctx)
		if err != nil {
			return err
		}
		ids = lo.Map(playlists, func(p models.Playlist, _ int) string { return p.ID })
	}
	if len(ids) == 0 {
		return r.writePlain("No playlists to export.\n")
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := engine.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", lo.CoalesceOrEmpty(res.PlaylistTitle, res.PlaylistID), res.Error)
		}
	}
	return nil
}
