package visualizer

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/spectrum"
)

// Bars reach at most this share of the drawing height.
const headroom = 0.8

var blocks = []rune(" ▁▂▃▄▅▆▇█")

// placeholderLevels is the static pattern shown before an analyzer is attached.
var placeholderLevels = []float64{0.35, 0.6, 0.85, 0.5, 0.7, 1, 0.55, 0.8, 0.45, 0.3}

// Config holds renderer settings.
type Config struct {
	BarWidth int
	BarGap   int
	Height   int
	Scheme   string
	Mirrored bool
	FPS      int
}

func DefaultConfig() Config {
	return Config{BarWidth: 2, BarGap: 1, Height: 8, Scheme: SchemeGradient, FPS: 30}
}

// FromShared converts the visualizer section of the application config.
func FromShared(c shared.VisualizerConfig) Config {
	return Config{
		BarWidth: c.BarWidth,
		BarGap:   c.BarGap,
		Height:   c.Height,
		Scheme:   c.Scheme,
		Mirrored: c.Mirrored,
		FPS:      c.FPS,
	}
}

// Renderer draws frames as rows of block characters.
type Renderer struct {
	cfg    Config
	scheme scheme
}

func NewRenderer(cfg Config) (*Renderer, error) {
	def := DefaultConfig()
	if cfg.BarWidth < 1 {
		cfg.BarWidth = def.BarWidth
	}
	if cfg.BarGap < 0 {
		cfg.BarGap = def.BarGap
	}
	if cfg.Height < 1 {
		cfg.Height = def.Height
	}
	if cfg.FPS < 1 {
		cfg.FPS = def.FPS
	}
	s, err := parseScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, scheme: s}, nil
}

func (r *Renderer) Config() Config { return r.cfg }

// Capacity is the number of bars that fit in width columns. A non-positive width is unbounded.
func (r *Renderer) Capacity(width int) int {
	if width <= 0 {
		return math.MaxInt
	}
	return max((width+r.cfg.BarGap)/(r.cfg.BarWidth+r.cfg.BarGap), 0)
}

// Render draws one bar per frequency bin, centered in width columns.
// Bins that do not fit are clipped from the high end.
func (r *Renderer) Render(frame spectrum.Frame, width int) string {
	n := min(len(frame), r.Capacity(width))
	return r.draw(frame[:n], r.scheme.colors(n), width)
}

// Placeholder draws the static ten bar pattern.
func (r *Renderer) Placeholder(width int) string {
	levels := placeholderLevels[:min(len(placeholderLevels), r.Capacity(width))]
	colors := make([]lipgloss.Color, len(levels))
	for i := range colors {
		colors[i] = r.scheme.placeholder()
	}
	return r.draw(levels, colors, width)
}

func (r *Renderer) draw(levels []float64, colors []lipgloss.Color, width int) string {
	h := r.cfg.Height
	bw, gap := r.cfg.BarWidth, r.cfg.BarGap

	styles := make([]lipgloss.Style, len(colors))
	for i, c := range colors {
		styles[i] = lipgloss.NewStyle().Foreground(c)
	}

	pad := 0
	if total := len(levels)*(bw+gap) - gap; width > 0 && total < width {
		pad = (width - total) / 2
	}

	rows := make([]string, h)
	for row := range h {
		var line strings.Builder
		line.WriteString(strings.Repeat(" ", pad))
		for i, v := range levels {
			ch := r.cell(shared.Clamp(v, 0, 1), row)
			if ch == ' ' {
				line.WriteString(strings.Repeat(" ", bw))
			} else {
				line.WriteString(styles[i].Render(strings.Repeat(string(ch), bw)))
			}
			if i < len(levels)-1 {
				line.WriteString(strings.Repeat(" ", gap))
			}
		}
		rows[row] = line.String()
	}
	return strings.Join(rows, "\n")
}

// cell picks the block for one bar at one row, where row 0 is the top.
func (r *Renderer) cell(v float64, row int) rune {
	h := r.cfg.Height
	if r.cfg.Mirrored {
		cells := int(math.Round(v * headroom * float64(h)))
		top := (h - cells) / 2
		if row >= top && row < top+cells {
			return blocks[len(blocks)-1]
		}
		return ' '
	}

	eighths := int(math.Round(v * headroom * float64(h) * 8))
	fromBottom := h - 1 - row
	fill := shared.Clamp(eighths-fromBottom*8, 0, 8)
	return blocks[fill]
}
