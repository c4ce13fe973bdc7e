package contour

import (
	"errors"
	"math"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// ErrEmptyInput is returned when ordering is requested on zero points.
var ErrEmptyInput = errors.New("contour: empty input")

// DefaultJumpPixels is the literal jump threshold used when none is chosen.
const DefaultJumpPixels = 5.0

const (
	// calibratedFactor scales the mean top-region spacing into a threshold.
	calibratedFactor = 1.5
	// topFraction is the share of the contour height, measured from the
	// baseline end, excluded from the calibration region.
	topFraction = 0.3
)

type jumpKind int

const (
	jumpDefault jumpKind = iota
	jumpLiteral
	jumpCalibrated
	jumpNone
)

// JumpThreshold selects how the maximum allowed gap between consecutive
// ordered points is determined. The zero value is LiteralJump(DefaultJumpPixels).
type JumpThreshold struct {
	kind   jumpKind
	pixels float64
}

// LiteralJump truncates at the first gap longer than px pixels.
func LiteralJump(px float64) JumpThreshold {
	return JumpThreshold{kind: jumpLiteral, pixels: px}
}

// CalibratedJump derives the threshold from the contour itself: 1.5 times
// the mean spacing of the ordered top region.
func CalibratedJump() JumpThreshold {
	return JumpThreshold{kind: jumpCalibrated}
}

// NoJump disables truncation.
func NoJump() JumpThreshold {
	return JumpThreshold{kind: jumpNone}
}

// String describes the threshold for logs and results.
func (j JumpThreshold) String() string {
	switch j.kind {
	case jumpCalibrated:
		return "calibrated"
	case jumpNone:
		return "none"
	case jumpLiteral:
		return "literal"
	default:
		return "default"
	}
}

// Options control Order.
type Options struct {
	// Start is the point the path begins at. The input point nearest to it
	// is used so every returned point comes from the input. Nil means the
	// first input point.
	Start *geometry.Point

	// Jump selects the truncation threshold.
	Jump JumpThreshold

	// YUp tells the calibrated threshold that larger y is further from the
	// baseline. Image coordinates (y down) are assumed otherwise.
	YUp bool
}

// Result is an ordered path together with what truncation did to it.
type Result struct {
	Points    []geometry.Point `json:"points"`
	Threshold float64          `json:"threshold"`
	Discarded int              `json:"discarded"`
	Length    float64          `json:"length"`
}

// Order arranges points into a travel path by repeatedly stepping to the
// nearest unvisited point, then cuts the path at its first large jump.
// Points equal to the last appended point are consumed without being
// appended. The input slice is not modified.
func Order(points []geometry.Point, opts Options) ([]geometry.Point, error) {
	res, err := OrderDetailed(points, opts)
	if err != nil {
		return nil, err
	}
	return res.Points, nil
}

// OrderDetailed is Order but also reports the threshold used and how many
// points were discarded.
func OrderDetailed(points []geometry.Point, opts Options) (*Result, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}

	startIdx := 0
	if opts.Start != nil {
		startIdx = nearestIndex(points, *opts.Start)
	}
	path := nearestNeighbourPath(points, startIdx)

	threshold := math.Inf(1)
	switch opts.Jump.kind {
	case jumpDefault:
		threshold = DefaultJumpPixels
	case jumpLiteral:
		threshold = opts.Jump.pixels
	case jumpCalibrated:
		threshold = calibratedThreshold(path, opts.YUp)
	}

	kept := truncateAtJump(path, threshold)
	return &Result{
		Points:    kept,
		Threshold: threshold,
		Discarded: len(points) - len(kept),
		Length:    geometry.PathLength(kept),
	}, nil
}

func nearestIndex(points []geometry.Point, target geometry.Point) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range points {
		if d := p.Distance(target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// nearestNeighbourPath is O(n²); contours are a few thousand points at most.
func nearestNeighbourPath(points []geometry.Point, startIdx int) []geometry.Point {
	pool := make([]geometry.Point, len(points))
	copy(pool, points)
	pool[startIdx], pool[len(pool)-1] = pool[len(pool)-1], pool[startIdx]

	last := pool[len(pool)-1]
	pool = pool[:len(pool)-1]
	path := make([]geometry.Point, 0, len(points))
	path = append(path, last)

	for len(pool) > 0 {
		best, bestDist := 0, math.Inf(1)
		for i, p := range pool {
			dx, dy := p.X-last.X, p.Y-last.Y
			if d := dx*dx + dy*dy; d < bestDist {
				best, bestDist = i, d
			}
		}
		next := pool[best]
		pool[best] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		if next.Equal(last) {
			continue
		}
		path = append(path, next)
		last = next
	}
	return path
}

func truncateAtJump(path []geometry.Point, threshold float64) []geometry.Point {
	for i := 1; i < len(path); i++ {
		if path[i].Distance(path[i-1]) > threshold {
			return path[:i]
		}
	}
	return path
}

// calibratedThreshold orders the region away from the baseline on its own
// and returns 1.5 times its mean spacing. Short regions fall back to the
// default literal threshold.
func calibratedThreshold(path []geometry.Point, yUp bool) float64 {
	lo, hi := geometry.Bounds(path)
	span := hi.Y - lo.Y

	top := make([]geometry.Point, 0, len(path))
	for _, p := range path {
		if yUp && p.Y > lo.Y+span*topFraction {
			top = append(top, p)
		}
		if !yUp && p.Y < hi.Y-span*topFraction {
			top = append(top, p)
		}
	}
	if len(top) < 2 {
		return DefaultJumpPixels
	}

	ordered := nearestNeighbourPath(top, leftmostIndex(top))
	if len(ordered) < 2 {
		return DefaultJumpPixels
	}
	mean := geometry.PathLength(ordered) / float64(len(ordered)-1)
	return calibratedFactor * mean
}

func leftmostIndex(points []geometry.Point) int {
	best := 0
	for i, p := range points {
		if p.X < points[best].X {
			best = i
		}
	}
	return best
}
