package contactangle

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// sampleFactor is how many curve samples per fitted point the polynomial
// error search uses.
const sampleFactor = 5

// LocalFit is a polynomial fitted to the contour next to one contact point,
// in baseline coordinates centred on that point: the offset along the
// baseline is Σ Coeffs[k]·hᵏ where h is the height above it.
type LocalFit struct {
	Coeffs  []float64        `json:"coeffs"`
	Tangent geometry.Line    `json:"tangent"`
	Points  []geometry.Point `json:"points"`
}

// TangentResult holds the straight lines fitted at each contact point.
type TangentResult struct {
	Left  LocalFit `json:"left"`
	Right LocalFit `json:"right"`
}

// PolynomialResult holds the quadratics fitted at each contact point.
type PolynomialResult struct {
	Degree int      `json:"degree"`
	Left   LocalFit `json:"left"`
	Right  LocalFit `json:"right"`
}

type side struct {
	cp      geometry.Point
	indices []int
}

// fitLocal fits a polynomial of the given degree to the points next to each
// contact point and reads the angle off its slope there. Fitting the offset
// as a function of height keeps near-vertical contacts well posed.
func fitLocal(method Method, degree int, points []geometry.Point, f frame, opts Options) (*Result, error) {
	start := time.Now()
	left, right, err := localSides(points, f, opts.Strategy, opts.points())
	if err != nil {
		return nil, err
	}

	lf, err := fitSide(points, left, f, degree)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rf, err := fitSide(points, right, f, degree)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}

	// tangent direction (c₁, 1): inwards is +u on the left, -u on the right
	res := &Result{
		Angles:        newAngles(math.Atan2(1, lf.Coeffs[1]), math.Atan2(1, -rf.Coeffs[1])),
		ContactPoints: [2]geometry.Point{left.cp, right.cp},
	}
	res.Timings.FitTime = time.Since(start).Seconds()

	res.Errors = Summarise(append(localDistances(lf, f), localDistances(rf, f)...))
	if method == MethodTangent {
		res.Tangent = &TangentResult{Left: lf, Right: rf}
	} else {
		res.Polynomial = &PolynomialResult{Degree: degree, Left: lf, Right: rf}
	}
	return res, nil
}

// localSides picks the contact points and the contour indices next to them,
// each side running from its contact point towards the apex.
func localSides(points []geometry.Point, f frame, strategy ContactPointStrategy, n int) (left, right side, err error) {
	last := len(points) - 1
	a, b := 0, last
	if strategy == BaselineNearest {
		a, b, err = nearestToBaseline(points, f)
		if err != nil {
			return side{}, side{}, err
		}
	}
	ua, _ := f.coords(points[a])
	ub, _ := f.coords(points[b])
	if ua > ub {
		a, b = b, a
	}
	left = side{cp: points[a], indices: walk(a, b, n)}
	right = side{cp: points[b], indices: walk(b, a, n)}
	return left, right, nil
}

// walk returns up to n indices from from towards to, inclusive.
func walk(from, to, n int) []int {
	step := 1
	if to < from {
		step = -1
	}
	span := (to-from)*step + 1
	if n > span {
		n = span
	}
	out := make([]int, n)
	for i := range out {
		out[i] = from + i*step
	}
	return out
}

// nearestToBaseline returns, on either side of the apex (the point furthest
// from the baseline), the index of the point closest to the baseline.
func nearestToBaseline(points []geometry.Point, f frame) (a, b int, err error) {
	apex, apexV := 0, math.Inf(-1)
	for i, p := range points {
		if _, v := f.coords(p); v > apexV {
			apex, apexV = i, v
		}
	}
	if apex == 0 || apex == len(points)-1 {
		return 0, 0, fmt.Errorf("%w: apex is at a contour end", ErrDegenerate)
	}
	closest := func(lo, hi int) int {
		best, bestV := lo, math.Inf(1)
		for i := lo; i <= hi; i++ {
			if _, v := f.coords(points[i]); math.Abs(v) < bestV {
				best, bestV = i, math.Abs(v)
			}
		}
		return best
	}
	return closest(0, apex-1), closest(apex+1, len(points)-1), nil
}

func fitSide(points []geometry.Point, s side, f frame, degree int) (LocalFit, error) {
	if len(s.indices) < degree+1 {
		return LocalFit{}, fmt.Errorf("%w: need %d points, got %d", ErrDegenerate, degree+1, len(s.indices))
	}
	cu, cv := f.coords(s.cp)

	vand := mat.NewDense(len(s.indices), degree+1, nil)
	rhs := mat.NewVecDense(len(s.indices), nil)
	pts := make([]geometry.Point, len(s.indices))
	for row, idx := range s.indices {
		pts[row] = points[idx]
		u, v := f.coords(points[idx])
		h := v - cv
		for k := 0; k <= degree; k++ {
			vand.Set(row, k, math.Pow(h, float64(k)))
		}
		rhs.SetVec(row, u-cu)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(vand, rhs); err != nil {
		return LocalFit{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	c := make([]float64, degree+1)
	for k := range c {
		c[k] = coef.AtVec(k)
	}
	if floats.HasNaN(c) {
		return LocalFit{}, fmt.Errorf("%w: polynomial coefficients are not finite", ErrDegenerate)
	}

	dir := f.u.Scale(c[1]).Add(f.n)
	return LocalFit{
		Coeffs:  c,
		Tangent: geometry.Line{A: s.cp, B: s.cp.Add(dir)},
		Points:  pts,
	}, nil
}

func (lf LocalFit) eval(h float64) float64 {
	var u float64
	for k := len(lf.Coeffs) - 1; k >= 0; k-- {
		u = u*h + lf.Coeffs[k]
	}
	return u
}

// localDistances samples the fitted curve over the height range of its
// points and returns each point's distance to the nearest sample.
func localDistances(lf LocalFit, f frame) []float64 {
	cu, cv := f.coords(lf.Tangent.A)
	hs := make([]float64, len(lf.Points))
	for i, p := range lf.Points {
		_, v := f.coords(p)
		hs[i] = v - cv
	}
	samples := make([]geometry.Point, sampleFactor*len(lf.Points))
	lo, hi := floats.Min(hs), floats.Max(hs)
	for i := range samples {
		h := lo
		if len(samples) > 1 {
			h += (hi - lo) * float64(i) / float64(len(samples)-1)
		}
		samples[i] = f.point(cu+lf.eval(h), cv+h)
	}
	return nearestDistances(lf.Points, samples)
}
