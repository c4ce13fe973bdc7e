package younglaplace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

const (
	// domainGrowth expands the profile when a point maps past its end.
	domainGrowth = 1.2
	// maxBumps is how often the arclength search may be clamped at the apex.
	maxBumps = 2
)

// evaluation is the residual vector and Jacobian of one parameter vector
// against the observed contour.
type evaluation struct {
	params     Params
	profile    *Profile
	ssr        float64
	residuals  []float64
	arclengths []float64
	maxArc     float64
	jac        *mat.Dense
}

// localFrame maps an observed point into the drop frame: r across the axis,
// z up the axis from the apex.
func localFrame(pt geometry.Point, p Params) (r, z float64) {
	sin, cos := math.Sincos(p.Rotation())
	dx, dy := pt.X-p.X0(), pt.Y-p.Y0()
	return dx*cos - dy*sin, dx*sin + dy*cos
}

// Curve maps prof into the observed frame under p as one open path: the
// left half from the last sample up to the apex, then the right half back
// down. It is the inverse of the transform the residuals are measured in.
func Curve(prof *Profile, p Params) []geometry.Point {
	sin, cos := math.Sincos(p.Rotation())
	radius := p.Radius()
	toFrame := func(r, z float64) geometry.Point {
		return geometry.Point{X: p.X0() + r*cos + z*sin, Y: p.Y0() - r*sin + z*cos}
	}

	n := len(prof.Rows)
	if n == 0 {
		return nil
	}
	out := make([]geometry.Point, 0, 2*n-1)
	for i := n - 1; i >= 1; i-- {
		row := prof.Rows[i]
		out = append(out, toFrame(-radius*row[ColX], radius*row[ColY]))
	}
	for _, row := range prof.Rows {
		out = append(out, toFrame(radius*row[ColX], radius*row[ColY]))
	}
	return out
}

// closestArclength runs Newton's method on the arclength of the profile
// point nearest to (r, z). The profile is regenerated over a longer domain
// when the search leaves it; if that fails the search stops at the end of
// the current domain.
func closestArclength(r, z float64, p Params, prof *Profile, s float64, tol config.Tolerances) (float64, *Profile) {
	radius, bond := p.Radius(), p.Bond()
	absR := math.Abs(r)
	bumps := 0
	for step := 0; step < tol.MaximumArclengthSteps; step++ {
		if s > prof.MaxS {
			grown, err := Generate(bond, domainGrowth*s, prof.SPoints)
			if err != nil {
				s = prof.MaxS
				break
			}
			prof = grown
		}
		row := prof.At(s)
		xs, ys, phi := row[ColX], row[ColY], row[ColPhi]
		er := absR - radius*xs
		ez := z - radius*ys
		sin, cos := math.Sincos(phi)
		dphi := 2 - bond*ys - sin/xs

		den := radius + dphi*(er*sin-ez*cos)
		if den == 0 {
			break
		}
		next := s + (er*cos+ez*sin)/den
		if next < 0 {
			next = 0
			bumps++
		}
		done := math.Abs(next-s) < tol.ArclengthTol || bumps >= maxBumps
		s = next
		if done {
			break
		}
	}
	if s > prof.MaxS {
		s = prof.MaxS
	}
	return s, prof
}

// evaluate computes signed point-to-profile distances and their Jacobian
// with respect to [x0, y0, R, Bo, ω]. Arclength searches warm start from the
// previous point on the same side of the axis.
func evaluate(points []geometry.Point, p Params, prof *Profile, tol config.Tolerances) (*evaluation, error) {
	n := len(points)
	ev := &evaluation{
		params:     p,
		residuals:  make([]float64, n),
		arclengths: make([]float64, n),
		jac:        mat.NewDense(n, NumParams, nil),
	}
	radius, rot := p.Radius(), p.Rotation()
	sinW, cosW := math.Sincos(rot)

	var warm [2]float64
	var seeded [2]bool
	for i, pt := range points {
		r, z := localFrame(pt, p)
		side := 0
		sgn := -1.0
		if r >= 0 {
			side, sgn = 1, 1.0
		}
		if !seeded[side] {
			warm[side] = prof.Nearest(math.Abs(r), z, radius)
			seeded[side] = true
		}

		var s float64
		s, prof = closestArclength(r, z, p, prof, warm[side], tol)
		warm[side] = s

		row := prof.At(s)
		xs, ys, phi := row[ColX], row[ColY], row[ColPhi]
		er := math.Abs(r) - radius*xs
		ez := z - radius*ys

		dist := math.Hypot(er, ez)
		e := math.Copysign(dist, er)
		var ur, uz float64
		if dist < 1e-12 {
			// on the curve: use the outward normal
			sinP, cosP := math.Sincos(phi)
			ur, uz = sinP, -cosP
			if ur < 0 {
				ur, uz = -ur, -uz
			}
		} else {
			ur, uz = er/e, ez/e
		}

		dx, dy := pt.X-p.X0(), pt.Y-p.Y0()
		ev.jac.Set(i, ParamX0, -(ur*sgn*cosW + uz*sinW))
		ev.jac.Set(i, ParamY0, -(-ur*sgn*sinW + uz*cosW))
		ev.jac.Set(i, ParamRadius, -(ur*xs + uz*ys))
		ev.jac.Set(i, ParamBond, -radius*(ur*row[ColXBond]+uz*row[ColYBond]))
		ev.jac.Set(i, ParamRotation, ur*sgn*(-dx*sinW-dy*cosW)+uz*(dx*cosW-dy*sinW))

		ev.residuals[i] = e
		ev.arclengths[i] = s
		ev.ssr += e * e
		if s > ev.maxArc {
			ev.maxArc = s
		}
	}
	if math.IsNaN(ev.ssr) || math.IsInf(ev.ssr, 0) {
		return nil, fmt.Errorf("residuals are not finite for params %v", p)
	}
	ev.profile = prof
	return ev, nil
}
