// Package colorsource supplies per-region colors for streaming and
// probing. The screen-capture extractor lives outside this module; the
// built-in sources generate the fixed test patterns used to judge strip
// coverage by eye.
package colorsource

import (
	"fmt"

	"lumiprobe/internal/protocol"
	"lumiprobe/internal/sampling"
)

// Source produces one color per sampling region.
type Source interface {
	Colors(geometry sampling.Geometry) ([]protocol.RGB, error)
}

// Pattern is a deterministic built-in source.
type Pattern struct {
	kind string
}

// NewPattern returns a built-in pattern source: "white" (solid white,
// easiest to judge coverage by) or "rgb" (red/green/blue cycle, makes
// segment boundaries visible).
func NewPattern(kind string) (*Pattern, error) {
	switch kind {
	case "white", "rgb":
		return &Pattern{kind: kind}, nil
	default:
		return nil, fmt.Errorf("colorsource: unknown pattern %q", kind)
	}
}

// Colors returns one color per region.
func (p *Pattern) Colors(geometry sampling.Geometry) ([]protocol.RGB, error) {
	n := len(geometry.Regions)
	colors := make([]protocol.RGB, n)
	for i := range colors {
		colors[i] = p.colorAt(i)
	}
	return colors, nil
}

func (p *Pattern) colorAt(i int) protocol.RGB {
	if p.kind == "white" {
		return protocol.RGB{R: 255, G: 255, B: 255}
	}
	switch i % 3 {
	case 0:
		return protocol.RGB{R: 255}
	case 1:
		return protocol.RGB{G: 255}
	default:
		return protocol.RGB{B: 255}
	}
}

// Scale applies a brightness multiplier to a color set. Values are
// clamped to [0,1] and each channel rounds down.
func Scale(colors []protocol.RGB, brightness float64) []protocol.RGB {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 1 {
		brightness = 1
	}
	scaled := make([]protocol.RGB, len(colors))
	for i, c := range colors {
		scaled[i] = protocol.RGB{
			R: uint8(float64(c.R) * brightness),
			G: uint8(float64(c.G) * brightness),
			B: uint8(float64(c.B) * brightness),
		}
	}
	return scaled
}
