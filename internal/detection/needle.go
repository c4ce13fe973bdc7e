package detection

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// NeedleOptions controls DetectNeedle.
type NeedleOptions struct {
	// MaxY limits the search to points with Y <= MaxY, the part of the
	// frame above the drop. Zero searches every point.
	MaxY float64
	// MinSeparation is the minimum distance in pixels between the two
	// needle sides. Zero means 5.
	MinSeparation float64

	MaxTiltDeg float64
	MinVotes   int
	Tolerance  float64
}

// NeedleResult holds the two sides of a needle silhouette. Left and Right
// are the edge points on each side sorted top to bottom, ready for
// needle.Calibrate.
type NeedleResult struct {
	Left      []geometry.Point `json:"left"`
	Right     []geometry.Point `json:"right"`
	LeftLine  HoughLine        `json:"left_line"`
	RightLine HoughLine        `json:"right_line"`
	// WidthPx is the horizontal distance between the sides at the height
	// of the midpoint of the left side.
	WidthPx float64 `json:"width_px"`
}

// DetectNeedle finds the two parallel, near-vertical sides of the needle a
// pendant drop hangs from.
func DetectNeedle(points []geometry.Point, opts NeedleOptions) (*NeedleResult, error) {
	if opts.MinSeparation <= 0 {
		opts.MinSeparation = 5
	}

	search := points
	if opts.MaxY > 0 {
		search = make([]geometry.Point, 0, len(points))
		for _, p := range points {
			if p.Y <= opts.MaxY {
				search = append(search, p)
			}
		}
	}

	lines := HoughLines(search, HoughOptions{
		Orientation: NearVertical,
		MaxTiltDeg:  opts.MaxTiltDeg,
		MinVotes:    opts.MinVotes,
		Tolerance:   opts.Tolerance,
	})
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: needle needs two sides, found %d", ErrNotFound, len(lines))
	}

	first := lines[0]
	firstX := meanX(first.Inliers)
	var second *HoughLine
	for i := 1; i < len(lines); i++ {
		l := lines[i]
		if math.Abs(meanX(l.Inliers)-firstX) < opts.MinSeparation {
			continue
		}
		if math.Abs(l.AngleDegrees-first.AngleDegrees) > 3 && 180-math.Abs(l.AngleDegrees-first.AngleDegrees) > 3 {
			continue
		}
		second = &lines[i]
		break
	}
	if second == nil {
		return nil, fmt.Errorf("%w: no second needle side parallel to x=%.1f", ErrNotFound, firstX)
	}

	left, right := first, *second
	if meanX(right.Inliers) < meanX(left.Inliers) {
		left, right = right, left
	}

	result := &NeedleResult{
		Left:      sortedByY(left.Inliers),
		Right:     sortedByY(right.Inliers),
		LeftLine:  left,
		RightLine: right,
	}
	midY := (left.Start.Y + left.End.Y) / 2
	result.WidthPx = xAt(right.Line, midY) - xAt(left.Line, midY)
	return result, nil
}

func meanX(points []geometry.Point) float64 {
	return geometry.Centroid(points).X
}

func sortedByY(points []geometry.Point) []geometry.Point {
	out := append([]geometry.Point(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y < out[j].Y })
	return out
}

// xAt returns the x coordinate of l at height y. l must not be horizontal.
func xAt(l geometry.Line, y float64) float64 {
	d := l.B.Sub(l.A)
	return l.A.X + (y-l.A.Y)*d.X/d.Y
}
