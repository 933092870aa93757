package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/ui"
	"github.com/desertthunder/serenitune/internal/visualizer"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	lib, err := r.Library(ctx)
	if err != nil {
		return err
	}

	ctrl := r.Session(ctx)
	defer ctrl.Dispose()

	model := ui.NewModel(ctx, ui.Options{
		Session:    ctrl,
		Library:    lib,
		Reorderer:  r.Reorderer(ctx),
		Visualizer: visualizer.FromShared(r.config.Visualizer),
		Logger:     shared.WithLogger(fileLogger, "component", "ui"),
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
