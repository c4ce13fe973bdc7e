package needle

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/monitoring"
)

var (
	// ErrInsufficientData is returned when an edge has fewer than two points.
	ErrInsufficientData = errors.New("needle: each edge needs at least two points")
	// ErrSingular is returned when the normal equations cannot be solved.
	ErrSingular = errors.New("needle: singular normal equations")
)

// maxCondition bounds the 2-norm condition number of JᵀJ.
const maxCondition = 1e12

// Calibration is a fitted needle silhouette. The edges are the lines
// (x - X)·sin θ = y·cos θ, so X is where each edge crosses y = 0 and θ is
// the needle inclination from the image x axis.
type Calibration struct {
	XLeft     float64 `json:"x_left"`
	XRight    float64 `json:"x_right"`
	Theta     float64 `json:"theta"`
	Diameter  float64 `json:"diameter_px"`
	Steps     int     `json:"steps"`
	Converged bool    `json:"converged"`
}

// Scale returns metres per pixel for a needle of the given physical
// diameter in millimetres.
func (c *Calibration) Scale(diameterMM float64) float64 {
	if c.Diameter == 0 {
		return 0
	}
	return diameterMM * 1e-3 / c.Diameter
}

// Calibrate fits two straight parallel edges, each ordered top to bottom,
// by Gauss–Newton on (x_left, x_right, θ). It starts from a vertical needle
// through the first point of each edge and stops once every relative
// parameter change is below NeedleTol or after NeedleSteps iterations.
// Tolerances are validated before any fitting.
func Calibrate(left, right []geometry.Point, tol config.Tolerances) (*Calibration, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	if len(left) < 2 || len(right) < 2 {
		return nil, fmt.Errorf("%w: got %d and %d", ErrInsufficientData, len(left), len(right))
	}

	// work relative to the first left point to keep JᵀJ well scaled
	origin := left[0]
	shift := func(pts []geometry.Point) []geometry.Point {
		out := make([]geometry.Point, len(pts))
		for i, p := range pts {
			out[i] = p.Sub(origin)
		}
		return out
	}
	l, r := shift(left), shift(right)

	params := []float64{l[0].X, r[0].X, math.Pi / 2}
	n := len(l) + len(r)
	jac := mat.NewDense(n, 3, nil)
	res := mat.NewVecDense(n, nil)

	cal := &Calibration{}
	for cal.Steps < tol.NeedleSteps {
		cal.Steps++
		fillResiduals(jac, res, params, l, r)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), res)

		if c := mat.Cond(&jtj, 2); !(c <= maxCondition) {
			return nil, fmt.Errorf("%w: condition number %.3g", ErrSingular, c)
		}
		var delta mat.VecDense
		if err := delta.SolveVec(&jtj, &jtr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}

		maxRel := 0.0
		for i := range params {
			d := -delta.AtVec(i)
			params[i] += d
			maxRel = math.Max(maxRel, math.Abs(d)/math.Max(math.Abs(params[i]), 1))
		}
		if maxRel < tol.NeedleTol {
			cal.Converged = true
			break
		}
	}
	if !cal.Converged {
		monitoring.Logf("needle: no convergence after %d steps", cal.Steps)
	}

	theta := params[2]
	cot := math.Cos(theta) / math.Sin(theta)
	cal.XLeft = params[0] + origin.X - origin.Y*cot
	cal.XRight = params[1] + origin.X - origin.Y*cot
	cal.Theta = theta
	cal.Diameter = math.Abs((params[1] - params[0]) * math.Sin(theta))
	return cal, nil
}

// fillResiduals writes r_i = (x_i - X)·sin θ - y_i·cos θ for both edges and
// the matching Jacobian rows.
func fillResiduals(jac *mat.Dense, res *mat.VecDense, params []float64, left, right []geometry.Point) {
	sin, cos := math.Sincos(params[2])
	row := 0
	for side, pts := range [2][]geometry.Point{left, right} {
		x0 := params[side]
		for _, p := range pts {
			res.SetVec(row, (p.X-x0)*sin-p.Y*cos)
			jac.Set(row, side, -sin)
			jac.Set(row, 1-side, 0)
			jac.Set(row, 2, (p.X-x0)*cos+p.Y*sin)
			row++
		}
	}
}
