package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/visualizer"
)

// surface is a visualizer mounted for the lifetime of one view.
//
// unmount closes the visualizer and releases the pending frame wait.
type surface struct {
	viz  *visualizer.Visualizer
	done chan struct{}
}

func mountSurface(cfg visualizer.Config, width int, logger *log.Logger) (*surface, error) {
	v, err := visualizer.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	v.SetWidth(width)
	return &surface{viz: v, done: make(chan struct{})}, nil
}

// wait blocks until the next rendered frame or until the surface is unmounted.
func (s *surface) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.viz.Updates():
			return frameMsg(s)
		case <-s.done:
			return nil
		}
	}
}

func (s *surface) unmount() {
	s.viz.Close()
	close(s.done)
}

// rowConfig derives the single-line inline visualizer from the configured one.
func rowConfig(cfg visualizer.Config) visualizer.Config {
	cfg.Height = 1
	cfg.BarWidth = 1
	cfg.BarGap = 0
	cfg.Mirrored = false
	return cfg
}

// rowWidth is the inline visualizer width in cells.
const rowWidth = 12
