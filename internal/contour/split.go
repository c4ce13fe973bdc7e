package contour

import (
	"fmt"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// HalfDrops are the two sides of a sessile drop contour after splitting at
// the apex. Both halves are in y-up coordinates, translated so the apex sits
// on x = 0, and the left half is mirrored so both open towards +x. Each half
// is ordered from the apex towards its contact point.
type HalfDrops struct {
	Left  []geometry.Point `json:"left"`
	Right []geometry.Point `json:"right"`
	// ApexX is the apex column in the input coordinates.
	ApexX float64 `json:"apex_x"`
}

// SplitAtApex splits an image-space sessile drop contour at the apex.
// The apex column is the midpoint of the horizontal extent of the contour
// region away from the baseline. Points exactly on the apex column belong to
// both halves.
func SplitAtApex(points []geometry.Point, opts Options) (*HalfDrops, error) {
	if len(points) == 0 {
		return nil, ErrEmptyInput
	}
	up := geometry.NegateY(points)

	lo, hi := geometry.Bounds(up)
	cut := lo.Y + (hi.Y-lo.Y)*topFraction
	minX, maxX := hi.X, lo.X
	found := false
	for _, p := range up {
		if p.Y > cut {
			found = true
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
		}
	}
	if !found {
		minX, maxX = lo.X, hi.X
	}
	apexX := (minX + maxX) / 2

	var left, right []geometry.Point
	for _, p := range up {
		if p.X <= apexX {
			left = append(left, geometry.Point{X: apexX - p.X, Y: p.Y})
		}
		if p.X >= apexX {
			right = append(right, geometry.Point{X: p.X - apexX, Y: p.Y})
		}
	}

	opts.YUp = true
	var err error
	if left, err = orderFromApex(left, opts); err != nil {
		return nil, fmt.Errorf("left half: %w", err)
	}
	if right, err = orderFromApex(right, opts); err != nil {
		return nil, fmt.Errorf("right half: %w", err)
	}
	return &HalfDrops{Left: left, Right: right, ApexX: apexX}, nil
}

// orderFromApex starts the path at the point closest to the apex column,
// preferring the highest such point.
func orderFromApex(half []geometry.Point, opts Options) ([]geometry.Point, error) {
	if len(half) == 0 {
		return nil, ErrEmptyInput
	}
	start := half[0]
	for _, p := range half[1:] {
		if p.X < start.X || (p.X == start.X && p.Y > start.Y) {
			start = p
		}
	}
	opts.Start = &start
	return Order(half, opts)
}
