package contour

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

func circlePoints(cx, cy, r float64, n int) []geometry.Point {
	pts := make([]geometry.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geometry.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

func shuffled(pts []geometry.Point, seed int64) []geometry.Point {
	out := append([]geometry.Point(nil), pts...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestOrderEmpty(t *testing.T) {
	_, err := Order(nil, Options{})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestOrderSinglePoint(t *testing.T) {
	got, err := Order([]geometry.Point{{X: 3, Y: 4}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []geometry.Point{{X: 3, Y: 4}}, got)
}

func TestOrderCircleLength(t *testing.T) {
	const r = 50.0
	pts := shuffled(circlePoints(100, 100, r, 360), 7)

	res, err := OrderDetailed(pts, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Points, len(pts))
	assert.Zero(t, res.Discarded)

	circumference := 2 * math.Pi * r
	assert.InEpsilon(t, circumference, res.Length, 0.02)
}

func TestOrderTruncatesAtFirstJump(t *testing.T) {
	var pts []geometry.Point
	for i := 0; i < 10; i++ {
		pts = append(pts, geometry.Point{X: float64(i)})
	}
	pts = append(pts, geometry.Point{X: 30}, geometry.Point{X: 31})

	res, err := OrderDetailed(pts, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Points, 10)
	assert.Equal(t, 2, res.Discarded)
	assert.Equal(t, DefaultJumpPixels, res.Threshold)

	all, err := Order(pts, Options{Jump: NoJump()})
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestOrderStartAndDuplicates(t *testing.T) {
	pts := []geometry.Point{{X: 2}, {X: 0}, {X: 1}, {X: 1}, {X: 3}, {X: 0}}
	start := geometry.Point{X: 3.2}
	got, err := Order(pts, Options{Start: &start})
	require.NoError(t, err)
	assert.Equal(t, []geometry.Point{{X: 3}, {X: 2}, {X: 1}, {X: 0}}, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Equal(got[i-1]), "duplicate adjacent point at %d", i)
	}
}

func TestOrderCalibratedJump(t *testing.T) {
	// a vertical run of points 1 px apart, then a 4 px gap at the baseline end
	var pts []geometry.Point
	for i := 0; i <= 20; i++ {
		pts = append(pts, geometry.Point{X: 10, Y: float64(i)})
	}
	pts = append(pts, geometry.Point{X: 10, Y: 24})

	literal, err := Order(pts, Options{})
	require.NoError(t, err)
	assert.Len(t, literal, 22)

	res, err := OrderDetailed(pts, Options{Jump: CalibratedJump()})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, res.Threshold, 1e-9)
	assert.Len(t, res.Points, 21)
}

func TestLiteralJump(t *testing.T) {
	pts := []geometry.Point{{X: 0}, {X: 2}, {X: 4}}
	got, err := Order(pts, Options{Jump: LiteralJump(1.5)})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "literal", LiteralJump(1).String())
}
