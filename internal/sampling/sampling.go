// Package sampling maps a confirmed segment count onto a screen
// sampling geometry for the color-extraction stage.
//
// Small counts get corner-weighted regions: four segments represent
// screen quadrants better than grid midpoints do, and the corners are
// where the visually loud content sits. Larger counts get an evenly
// spaced near-square grid. The mapping is pure and knows nothing about
// why a count was confirmed.
package sampling

import "math"

// CornerThreshold is the largest segment count that still uses the
// corner strategy.
const CornerThreshold = 4

// Strategy names the sampling layout family.
type Strategy int

const (
	// StrategyCorner samples fixed corner/edge positions.
	StrategyCorner Strategy = iota
	// StrategyGrid samples the centers of a near-square grid.
	StrategyGrid
)

func (s Strategy) String() string {
	switch s {
	case StrategyCorner:
		return "corner"
	case StrategyGrid:
		return "grid"
	default:
		return "unknown"
	}
}

// Region is a sampling point as fractions of the frame, both in [0,1].
type Region struct {
	X float64
	Y float64
}

// Geometry is the full sampling layout for one segment count.
type Geometry struct {
	Strategy Strategy
	Regions  []Region
}

// SelectGeometry derives the sampling geometry for a segment count.
// Counts at or below CornerThreshold use fixed strategic positions;
// larger counts get exactly one grid-cell-center region per segment.
func SelectGeometry(segments int) Geometry {
	if segments <= CornerThreshold {
		return cornerGeometry(segments)
	}
	return gridGeometry(segments)
}

func cornerGeometry(segments int) Geometry {
	var regions []Region
	switch {
	case segments <= 1:
		regions = []Region{{0.5, 0.5}}
	case segments == 2:
		regions = []Region{{0.25, 0.5}, {0.75, 0.5}}
	case segments == 3:
		regions = []Region{{0.25, 0.25}, {0.75, 0.25}, {0.5, 0.75}}
	default:
		regions = []Region{
			{0.2, 0.2}, // top-left
			{0.8, 0.2}, // top-right
			{0.2, 0.8}, // bottom-left
			{0.8, 0.8}, // bottom-right
		}
	}
	return Geometry{Strategy: StrategyCorner, Regions: regions}
}

func gridGeometry(segments int) Geometry {
	cols := int(math.Sqrt(float64(segments)))
	rows := (segments + cols - 1) / cols

	regions := make([]Region, 0, segments)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if len(regions) >= segments {
				break
			}
			regions = append(regions, Region{
				X: (float64(col) + 0.5) / float64(cols),
				Y: (float64(row) + 0.5) / float64(rows),
			})
		}
	}
	return Geometry{Strategy: StrategyGrid, Regions: regions}
}
