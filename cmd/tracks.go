package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// categoryLister is implemented by both library sources.
type categoryLister interface {
	ListCategories(ctx context.Context) ([]string, error)
}

// TracksList prints the library's tracks in sequence order.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	tracks, err := lib.ListTracks(ctx, cmd.String("category"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		return r.writePlain("No tracks found.\n")
	}
	for i, t := range tracks {
		r.writePlain("%3d. %-36s %-12s %6s  [%s]\n", i+1, t.Title, t.Category, shared.FormatDuration(t.Duration), t.ID)
	}
	return r.writePlainln("%d tracks", len(tracks))
}

// TracksCategories prints the distinct track categories.
func (r *Runner) TracksCategories(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	lister, ok := lib.(categoryLister)
	if !ok {
		return fmt.Errorf("%w: library cannot list categories", shared.ErrNotImplemented)
	}
	categories, err := lister.ListCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		r.writePlain("%s\n", c)
	}
	return nil
}

// TracksImport reads audio files into the local library, reporting progress as it goes.
func (r *Runner) TracksImport(ctx context.Context, cmd *cli.Command) error {
	root := cmd.StringArg("path")
	if root == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("importing tracks", "path", root)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ScanFiles:
				r.writePlain("📂 %s\n", update.Message)
			case tasks.ReadMetadata:
				r.writePlain("   ✗ %s\n", update.Message)
			case tasks.StoreTracks:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := engine.Import(ctx, progressCh, root, tasks.ImportOpts{
		Category:   cmd.String("category"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Scanned: %d files\n", result.Scanned)
	r.writePlain("Created: %d tracks\n", result.Created)
	r.writePlain("Updated: %d tracks\n", result.Updated)

	if len(result.Failures) > 0 {
		r.writePlain("\nFailed to import %d files:\n", len(result.Failures))
		for _, f := range result.Failures {
			r.writePlain("  - %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}
