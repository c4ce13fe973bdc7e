package younglaplace

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/drop-shape-mcp/internal/ode"
)

// ErrInvalidArgument is wrapped by every input validation failure.
var ErrInvalidArgument = errors.New("younglaplace: invalid argument")

// Profile columns.
const (
	ColX = iota
	ColY
	ColPhi
	ColXBond
	ColYBond
	ColPhiBond
	profileCols
)

// apexRadius is the starting x, kept off zero where sin φ / x is singular.
const apexRadius = 1e-6

// ProfileRow is one sample (x, y, φ, ∂x/∂Bo, ∂y/∂Bo, ∂φ/∂Bo).
type ProfileRow [profileCols]float64

// Profile is a dimensionless Young–Laplace drop profile sampled at
// SPoints+1 evenly spaced arclengths in [0, MaxS]. Row 0 is the apex.
type Profile struct {
	Bond    float64      `json:"bond"`
	MaxS    float64      `json:"max_s"`
	SPoints int          `json:"s_points"`
	Rows    []ProfileRow `json:"rows"`
}

// youngLaplace evaluates the axisymmetric shape equations together with
// their sensitivities to the Bond number.
func youngLaplace(bond float64) ode.Func {
	return func(_ float64, v, d []float64) {
		x, y, phi := v[ColX], v[ColY], v[ColPhi]
		xB, yB, phiB := v[ColXBond], v[ColYBond], v[ColPhiBond]
		sin, cos := math.Sincos(phi)
		d[ColX] = cos
		d[ColY] = sin
		d[ColPhi] = 2 - bond*y - sin/x
		d[ColXBond] = -sin * phiB
		d[ColYBond] = cos * phiB
		d[ColPhiBond] = sin*xB/(x*x) - cos*phiB/x - y - bond*yB
	}
}

// ValidateDomain checks a maximum arclength and sample count.
func ValidateDomain(maxS float64, sPoints int) error {
	if !(maxS > 0) || math.IsInf(maxS, 0) {
		return fmt.Errorf("%w: max_s must be positive and finite, got %g", ErrInvalidArgument, maxS)
	}
	if sPoints <= 1 {
		return fmt.Errorf("%w: s_points must be greater than 1, got %d", ErrInvalidArgument, sPoints)
	}
	return nil
}

// ParseSPoints converts a decoded JSON number into a sample count,
// rejecting fractional values.
func ParseSPoints(v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: s_points must be an integer, got %g", ErrInvalidArgument, v)
	}
	n := int(v)
	if err := ValidateDomain(1, n); err != nil {
		return 0, err
	}
	return n, nil
}

// Generate integrates the Young–Laplace equations for the given Bond number.
// Integration starts at x = 1e-6 with every other state zero.
func Generate(bond, maxS float64, sPoints int) (*Profile, error) {
	if err := ValidateDomain(maxS, sPoints); err != nil {
		return nil, err
	}
	if math.IsNaN(bond) || math.IsInf(bond, 0) {
		return nil, fmt.Errorf("%w: bond number must be finite, got %g", ErrInvalidArgument, bond)
	}

	s := ode.Linspace(0, maxS, sPoints+1)
	y0 := []float64{apexRadius, 0, 0, 0, 0, 0}
	out, err := ode.Solve(youngLaplace(bond), y0, s, ode.Options{})
	if err != nil {
		return nil, fmt.Errorf("integrate profile (Bo=%g, max_s=%g): %w", bond, maxS, err)
	}

	p := &Profile{Bond: bond, MaxS: maxS, SPoints: sPoints, Rows: make([]ProfileRow, len(out))}
	for i, row := range out {
		copy(p.Rows[i][:], row)
	}
	return p, nil
}

// Step returns the arclength spacing between samples.
func (p *Profile) Step() float64 { return p.MaxS / float64(p.SPoints) }

// Arclength returns the arclength of sample i.
func (p *Profile) Arclength(i int) float64 { return float64(i) * p.Step() }

// At interpolates the profile at arclength s in [0, MaxS] with cubic
// Hermite splines whose slopes come from the shape equations.
func (p *Profile) At(s float64) ProfileRow {
	ds := p.Step()
	n1 := int(s / ds)
	if n1 < 0 {
		n1 = 0
	}
	if n1 > p.SPoints-1 {
		n1 = p.SPoints - 1
	}
	t := s/ds - float64(n1)

	v1, v2 := p.Rows[n1], p.Rows[n1+1]
	var d1, d2 ProfileRow
	f := youngLaplace(p.Bond)
	f(0, v1[:], d1[:])
	f(0, v2[:], d2[:])

	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	var out ProfileRow
	for i := range out {
		out[i] = h00*v1[i] + h10*ds*d1[i] + h01*v2[i] + h11*ds*d2[i]
	}
	return out
}

// Nearest returns the arclength of the sample closest to the local point
// (r, z), where r is measured from the axis and z above the apex.
func (p *Profile) Nearest(r, z, radius float64) float64 {
	best, bestDist := 0, math.Inf(1)
	for i, row := range p.Rows {
		dr := r - radius*row[ColX]
		dz := z - radius*row[ColY]
		if d := dr*dr + dz*dz; d < bestDist {
			best, bestDist = i, d
		}
	}
	return p.Arclength(best)
}
