package needle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// edge returns points on x = x0 + y·cot θ for y in [y0, y0+n).
func edge(x0, theta, y0 float64, n int) []geometry.Point {
	cot := math.Cos(theta) / math.Sin(theta)
	pts := make([]geometry.Point, n)
	for i := range pts {
		y := y0 + float64(i)
		pts[i] = geometry.Point{X: x0 + y*cot, Y: y}
	}
	return pts
}

func TestCalibrateVerticalNeedle(t *testing.T) {
	left := edge(40, math.Pi/2, 0, 30)
	right := edge(50, math.Pi/2, 0, 30)

	cal, err := Calibrate(left, right, config.DefaultTolerances())
	require.NoError(t, err)
	assert.True(t, cal.Converged)
	assert.InDelta(t, 10.0, cal.Diameter, 1e-9)
	assert.InDelta(t, math.Pi/2, cal.Theta, 1e-9)
	assert.InDelta(t, 40.0, cal.XLeft, 1e-9)
	assert.InDelta(t, 50.0, cal.XRight, 1e-9)
}

func TestCalibrateTiltedNeedle(t *testing.T) {
	theta := math.Pi/2 - 0.05
	left := edge(100, theta, 10, 40)
	right := edge(120, theta, 10, 40)

	cal, err := Calibrate(left, right, config.DefaultTolerances())
	require.NoError(t, err)
	assert.True(t, cal.Converged)
	assert.InDelta(t, theta, cal.Theta, 1e-6)
	assert.InDelta(t, 20*math.Sin(theta), cal.Diameter, 1e-6)
	assert.InDelta(t, 100.0, cal.XLeft, 1e-6)
	assert.InDelta(t, 120.0, cal.XRight, 1e-6)
}

func TestCalibrateInsufficientData(t *testing.T) {
	_, err := Calibrate([]geometry.Point{{X: 1}}, edge(5, math.Pi/2, 0, 5), config.DefaultTolerances())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCalibrateSingular(t *testing.T) {
	// two coincident points per edge at y = 0 leave θ unconstrained
	left := []geometry.Point{{X: 0}, {X: 0}}
	right := []geometry.Point{{X: 0}, {X: 0}}
	_, err := Calibrate(left, right, config.DefaultTolerances())
	assert.ErrorIs(t, err, ErrSingular)
}

func TestCalibrateIllConditioned(t *testing.T) {
	// edges only 1e-7 px tall barely constrain θ
	left := []geometry.Point{{X: 0, Y: 0}, {X: 0, Y: 1e-7}}
	right := []geometry.Point{{X: 10, Y: 0}, {X: 10, Y: 1e-7}}
	_, err := Calibrate(left, right, config.DefaultTolerances())
	assert.ErrorIs(t, err, ErrSingular)
}

func TestCalibrateInvalidTolerances(t *testing.T) {
	left := edge(40, math.Pi/2, 0, 30)
	right := edge(50, math.Pi/2, 0, 30)

	tol := config.DefaultTolerances()
	tol.NeedleSteps = 0
	_, err := Calibrate(left, right, tol)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	tol = config.DefaultTolerances()
	tol.NeedleTol = -1
	_, err = Calibrate(left, right, tol)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestScale(t *testing.T) {
	cal := &Calibration{Diameter: 200}
	assert.InDelta(t, 1.27e-3/200, cal.Scale(1.27), 1e-15)
	assert.Zero(t, (&Calibration{}).Scale(1))
}
