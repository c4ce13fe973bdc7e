package younglaplace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

const (
	// defaultBond is used when the contour does not reach two apex radii.
	defaultBond = 0.15
	// apexFraction of the drop height is used for the apex circle fit.
	apexFraction = 0.2
	// maxGuessRotation bounds the axis tilt taken from the point spread.
	maxGuessRotation = math.Pi / 6
)

// Guess is a starting point for the optimizer.
type Guess struct {
	Params Params  `json:"params"`
	MaxS   float64 `json:"max_s"`
}

// InitialGuess estimates drop parameters from a y-up pendant contour.
// The apex radius and position come from a circle fit to the lowest part of
// the contour, the tilt from the principal axis of the points, and the Bond
// number from the drop half-width two apex radii above the apex.
func InitialGuess(contour []geometry.Point) (*Guess, error) {
	if len(contour) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 contour points, got %d", ErrInvalidArgument, len(contour))
	}
	lo, hi := geometry.Bounds(contour)
	height := hi.Y - lo.Y

	var apexPts []geometry.Point
	for _, p := range contour {
		if p.Y <= lo.Y+apexFraction*height {
			apexPts = append(apexPts, p)
		}
	}
	if len(apexPts) < 3 {
		apexPts = contour
	}
	circle, err := geometry.FitCircle(apexPts)
	if err != nil {
		return nil, fmt.Errorf("%w: apex circle: %v", ErrInvalidArgument, err)
	}

	var p Params
	p[ParamX0] = circle.Center.X
	p[ParamY0] = circle.Center.Y - circle.Radius
	p[ParamRadius] = circle.Radius
	p[ParamRotation] = guessRotation(contour)
	p[ParamBond] = guessBond(contour, p)

	return &Guess{Params: p, MaxS: guessMaxS(contour, p.Radius())}, nil
}

// guessRotation returns the tilt of the major principal axis from vertical,
// or zero when the spread is nearly isotropic or the axis is far from
// vertical.
func guessRotation(contour []geometry.Point) float64 {
	xs, ys := geometry.XY(contour)
	sxx := stat.Variance(xs, nil)
	syy := stat.Variance(ys, nil)
	sxy := stat.Covariance(xs, ys, nil)

	// eigenvalues of the 2x2 covariance
	mean := (sxx + syy) / 2
	diff := math.Hypot((sxx-syy)/2, sxy)
	major, minor := mean+diff, mean-diff
	if minor <= 0 || major/minor < 1.2 {
		return 0
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	ax, ay := math.Cos(theta), math.Sin(theta)
	if ay < 0 {
		ax, ay = -ax, -ay
	}
	w := math.Atan2(ax, ay)
	if math.Abs(w) > maxGuessRotation {
		return 0
	}
	return w
}

// guessBond reads the half-width r (in apex radii) of the contour in the
// band 1.95R to 2.05R above the apex and maps it through
// Bo ≈ 0.1756 r² + 0.5234 r³ − 0.2563 r⁴.
func guessBond(contour []geometry.Point, p Params) float64 {
	radius := p.Radius()
	var widths []float64
	for _, pt := range contour {
		r, z := localFrame(pt, p)
		if z >= 1.95*radius && z <= 2.05*radius {
			widths = append(widths, math.Abs(r))
		}
	}
	if len(widths) == 0 {
		return defaultBond
	}
	r := stat.Mean(widths, nil) / radius
	bond := 0.1756*r*r + 0.5234*r*r*r - 0.2563*r*r*r*r
	if !(bond > 0) {
		return defaultBond
	}
	return bond
}

// guessMaxS scales the drop height into a dimensionless arclength, treating
// the drop as a sphere of the apex radius, with 20% headroom.
func guessMaxS(contour []geometry.Point, radius float64) float64 {
	lo, hi := geometry.Bounds(contour)
	if !(radius > 0) {
		return 4
	}
	s := domainGrowth * (hi.Y - lo.Y) / radius * math.Pi / 2
	return math.Max(s, 1)
}
