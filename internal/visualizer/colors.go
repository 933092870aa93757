package visualizer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	Indigo       = "#1F3A8A"
	Lilac        = "#939CE2"
	SoftLavender = "#B9A0E2"
)

const (
	SchemeGradient  = "gradient"
	SchemeSolid     = "solid"
	SchemePrimary   = "primary"
	SchemeSecondary = "secondary"
	SchemeAccent    = "accent"
)

var gradientStops = []string{Indigo, Lilac, SoftLavender}

// scheme resolves a color scheme name, or a custom hex color, into per-bar colors.
type scheme struct {
	name  string
	solid string
	stops []colorful.Color
}

func parseScheme(name string) (scheme, error) {
	switch strings.ToLower(name) {
	case "", SchemeGradient:
		stops := make([]colorful.Color, len(gradientStops))
		for i, hex := range gradientStops {
			stops[i], _ = colorful.Hex(hex)
		}
		return scheme{name: SchemeGradient, stops: stops}, nil
	case SchemeSolid, SchemePrimary:
		return scheme{name: name, solid: Indigo}, nil
	case SchemeSecondary:
		return scheme{name: name, solid: Lilac}, nil
	case SchemeAccent:
		return scheme{name: name, solid: SoftLavender}, nil
	}

	if _, err := colorful.Hex(name); err != nil {
		return scheme{}, fmt.Errorf("%w: unknown color scheme %q", shared.ErrInvalidConfig, name)
	}
	return scheme{name: name, solid: name}, nil
}

// placeholder is the color used by the static pattern; gradients fall back to their middle stop.
func (s scheme) placeholder() lipgloss.Color {
	if s.solid != "" {
		return lipgloss.Color(s.solid)
	}
	return lipgloss.Color(Lilac)
}

// colors returns one color per bar, blending across the gradient stops left to right.
func (s scheme) colors(n int) []lipgloss.Color {
	out := make([]lipgloss.Color, n)
	if s.solid != "" {
		for i := range out {
			out[i] = lipgloss.Color(s.solid)
		}
		return out
	}

	segments := len(s.stops) - 1
	for i := range out {
		if n == 1 {
			out[i] = lipgloss.Color(gradientStops[0])
			continue
		}
		t := float64(i) / float64(n-1) * float64(segments)
		k := min(int(t), segments-1)
		local := t - float64(k)
		switch {
		case local == 0:
			out[i] = lipgloss.Color(gradientStops[k])
		case local == 1:
			out[i] = lipgloss.Color(gradientStops[k+1])
		default:
			out[i] = lipgloss.Color(s.stops[k].BlendLab(s.stops[k+1], local).Clamped().Hex())
		}
	}
	return out
}
