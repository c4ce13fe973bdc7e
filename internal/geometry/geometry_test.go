package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlipYRoundTrip(t *testing.T) {
	pts := []Point{{X: 1, Y: 2}, {X: 3, Y: 40}}
	flipped := FlipY(pts, 100)
	assert.Equal(t, []Point{{X: 1, Y: 98}, {X: 3, Y: 60}}, flipped)
	assert.Equal(t, pts, FlipY(flipped, 100))
	// input untouched
	assert.Equal(t, 2.0, pts[0].Y)
}

func TestPathLength(t *testing.T) {
	pts := []Point{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11.0, PathLength(pts), 1e-12)
	assert.Zero(t, PathLength(nil))
}

func TestBoundsAndCentroid(t *testing.T) {
	pts := []Point{{-1, 2}, {3, -4}, {1, 5}}
	lo, hi := Bounds(pts)
	assert.Equal(t, Point{X: -1, Y: -4}, lo)
	assert.Equal(t, Point{X: 3, Y: 5}, hi)
	assert.Equal(t, Point{X: 1, Y: 1}, Centroid(pts))
}

func TestLine(t *testing.T) {
	_, err := NewLine(Point{1, 1}, Point{1, 1})
	require.ErrorIs(t, err, ErrDegenerateLine)

	l := LineFromSlope(2, 1)
	assert.InDelta(t, 2.0, l.Slope(), 1e-12)
	assert.InDelta(t, 1.0, l.Intercept(), 1e-12)
	assert.InDelta(t, 7.0, l.YAt(3), 1e-12)
	assert.InDelta(t, math.Atan(2), l.Angle(), 1e-12)

	h := Horizontal(5)
	assert.InDelta(t, -2.0, h.SignedDistance(Point{X: 10, Y: 3}), 1e-12)
	assert.Equal(t, Point{X: 10, Y: 5}, h.Project(Point{X: 10, Y: 3}))

	v := Line{A: Point{2, 0}, B: Point{2, 1}}
	assert.True(t, v.IsVertical())
	assert.True(t, math.IsInf(v.Slope(), 1))
	assert.InDelta(t, math.Pi/2, v.Angle(), 1e-12)
}

func TestFitCircle(t *testing.T) {
	var pts []Point
	for i := 0; i < 12; i++ {
		a := float64(i) * math.Pi / 11
		pts = append(pts, Point{X: 4 + 7*math.Cos(a), Y: -2 + 7*math.Sin(a)})
	}
	c, err := FitCircle(pts)
	require.NoError(t, err)
	assert.InDelta(t, 4, c.Center.X, 1e-9)
	assert.InDelta(t, -2, c.Center.Y, 1e-9)
	assert.InDelta(t, 7, c.Radius, 1e-9)
	assert.InDelta(t, 1, c.Distance(Point{X: 4, Y: 6}), 1e-9)
}

func TestFitCircleDegenerate(t *testing.T) {
	_, err := FitCircle([]Point{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrDegenerateCircle)

	_, err = FitCircle([]Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
	assert.ErrorIs(t, err, ErrDegenerateCircle)
}

func TestCircleIntersectLine(t *testing.T) {
	c := Circle{Center: Point{X: 0, Y: 0}, Radius: 5}
	got := c.IntersectLine(Horizontal(3))
	require.Len(t, got, 2)
	assert.InDelta(t, -4, got[0].X, 1e-12)
	assert.InDelta(t, 4, got[1].X, 1e-12)
	assert.Nil(t, c.IntersectLine(Horizontal(6)))
}
