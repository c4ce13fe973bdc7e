package detection

import (
	"fmt"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// BaselineOptions controls DetectBaseline. Zero values select the
// HoughOptions defaults.
type BaselineOptions struct {
	MaxTiltDeg float64
	MinVotes   int
	Tolerance  float64
}

// BaselineResult is the substrate line under a sessile drop, in image
// coordinates.
type BaselineResult struct {
	Baseline     geometry.Line `json:"baseline"`
	Slope        float64       `json:"slope"`
	Intercept    float64       `json:"intercept"`
	AngleDegrees float64       `json:"angle_degrees"`
	Votes        int           `json:"votes"`
	Inliers      int           `json:"inliers"`
}

// DetectBaseline returns the strongest near-horizontal line among the edge
// points. The substrate spans the frame, so it outvotes the short flat
// stretch at the apex of the drop.
func DetectBaseline(points []geometry.Point, opts BaselineOptions) (*BaselineResult, error) {
	lines := HoughLines(points, HoughOptions{
		Orientation: NearHorizontal,
		MaxTiltDeg:  opts.MaxTiltDeg,
		MinVotes:    opts.MinVotes,
		Tolerance:   opts.Tolerance,
		MaxLines:    1,
	})
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no baseline among %d edge points", ErrNotFound, len(points))
	}

	best := lines[0]
	return &BaselineResult{
		Baseline:     best.Line,
		Slope:        best.Line.Slope(),
		Intercept:    best.Line.Intercept(),
		AngleDegrees: best.AngleDegrees,
		Votes:        best.Votes,
		Inliers:      len(best.Inliers),
	}, nil
}

// AboveBaseline keeps the points lying more than margin pixels above the
// baseline in the image, which removes the substrate itself and any
// reflection of the drop below it.
func AboveBaseline(points []geometry.Point, baseline geometry.Line, margin float64) []geometry.Point {
	out := make([]geometry.Point, 0, len(points))
	for _, p := range points {
		if p.Y < baseline.YAt(p.X)-margin {
			out = append(out, p)
		}
	}
	return out
}
