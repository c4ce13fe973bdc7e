package contactangle

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// ellipseSamples is the angular resolution of the ellipse distance search.
const ellipseSamples = 1000

// Ellipse is a centre, semi-major axis A, semi-minor axis B and the angle
// Theta of the major axis from +x, in [0, π).
type Ellipse struct {
	Center geometry.Point `json:"center"`
	A      float64        `json:"a"`
	B      float64        `json:"b"`
	Theta  float64        `json:"theta"`
}

// EllipseResult holds the fitted ellipse.
type EllipseResult struct {
	Ellipse  Ellipse `json:"ellipse"`
	ThetaDeg float64 `json:"theta_deg"`
}

// At returns the point at parametric angle t.
func (e Ellipse) At(t float64) geometry.Point {
	sinT, cosT := math.Sincos(t)
	sinW, cosW := math.Sincos(e.Theta)
	return geometry.Point{
		X: e.Center.X + e.A*cosT*cosW - e.B*sinT*sinW,
		Y: e.Center.Y + e.A*cosT*sinW + e.B*sinT*cosW,
	}
}

// toLocal rotates p into the ellipse axes.
func (e Ellipse) toLocal(p geometry.Point) geometry.Point {
	sinW, cosW := math.Sincos(e.Theta)
	return geometry.Point{X: p.X*cosW + p.Y*sinW, Y: -p.X*sinW + p.Y*cosW}
}

// Gradient returns the gradient of (x/a)² + (y/b)² - 1 in image axes.
func (e Ellipse) Gradient(p geometry.Point) geometry.Point {
	q := e.toLocal(p.Sub(e.Center))
	gx, gy := 2*q.X/(e.A*e.A), 2*q.Y/(e.B*e.B)
	sinW, cosW := math.Sincos(e.Theta)
	return geometry.Point{X: gx*cosW - gy*sinW, Y: gx*sinW + gy*cosW}
}

// IntersectLine returns the crossings of l with the ellipse, ordered along
// l's direction, or nil when it misses.
func (e Ellipse) IntersectLine(l geometry.Line) []geometry.Point {
	d := l.Direction()
	q0 := e.toLocal(l.A.Sub(e.Center))
	qd := e.toLocal(d)
	a2, b2 := e.A*e.A, e.B*e.B
	qa := qd.X*qd.X/a2 + qd.Y*qd.Y/b2
	qb := 2 * (q0.X*qd.X/a2 + q0.Y*qd.Y/b2)
	qc := q0.X*q0.X/a2 + q0.Y*q0.Y/b2 - 1
	disc := qb*qb - 4*qa*qc
	if disc < 0 || qa == 0 {
		return nil
	}
	root := math.Sqrt(disc)
	t1, t2 := (-qb-root)/(2*qa), (-qb+root)/(2*qa)
	return []geometry.Point{l.A.Add(d.Scale(t1)), l.A.Add(d.Scale(t2))}
}

// Distances returns each point's distance to the nearest of 1000 samples
// taken evenly in parametric angle.
func (e Ellipse) Distances(points []geometry.Point) []float64 {
	samples := make([]geometry.Point, ellipseSamples)
	for i := range samples {
		samples[i] = e.At(2 * math.Pi * float64(i) / float64(ellipseSamples-1))
	}
	return nearestDistances(points, samples)
}

// FitEllipse fits an ellipse directly to points (Fitzgibbon, Pilu and Fisher)
// using the Halir–Flusser partition of the scatter matrix. The points are
// centred and scaled first.
func FitEllipse(points []geometry.Point) (Ellipse, error) {
	if len(points) < 5 {
		return Ellipse{}, fmt.Errorf("%w: need at least 5 points, got %d", ErrDegenerate, len(points))
	}
	xs, ys := geometry.XY(points)
	mx, my := stat.Mean(xs, nil), stat.Mean(ys, nil)
	var ss float64
	for i := range xs {
		xs[i] -= mx
		ys[i] -= my
		ss += xs[i]*xs[i] + ys[i]*ys[i]
	}
	scale := math.Sqrt(ss / float64(len(xs)))
	if scale == 0 {
		return Ellipse{}, fmt.Errorf("%w: points coincide", ErrDegenerate)
	}

	n := len(points)
	d1 := mat.NewDense(n, 3, nil)
	d2 := mat.NewDense(n, 3, nil)
	for i := range xs {
		x, y := xs[i]/scale, ys[i]/scale
		d1.SetRow(i, []float64{x * x, x * y, y * y})
		d2.SetRow(i, []float64{x, y, 1})
	}
	var s1, s2, s3 mat.Dense
	s1.Mul(d1.T(), d1)
	s2.Mul(d1.T(), d2)
	s3.Mul(d2.T(), d2)

	var s3inv mat.Dense
	if err := s3inv.Inverse(&s3); err != nil {
		return Ellipse{}, fmt.Errorf("%w: linear scatter matrix: %v", ErrDegenerate, err)
	}
	// t = -S3⁻¹ S2ᵀ maps quadratic to linear coefficients
	var t mat.Dense
	t.Mul(&s3inv, s2.T())
	t.Scale(-1, &t)

	var m mat.Dense
	m.Mul(&s2, &t)
	m.Add(&s1, &m)
	// premultiply by the inverse of the constraint 4ac - b² = 1
	reduced := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		reduced.Set(0, j, m.At(2, j)/2)
		reduced.Set(1, j, -m.At(1, j))
		reduced.Set(2, j, m.At(0, j)/2)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(reduced, mat.EigenRight); !ok {
		return Ellipse{}, fmt.Errorf("%w: eigen decomposition failed", ErrDegenerate)
	}
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	var a1 []float64
	for k := 0; k < 3; k++ {
		v := []float64{real(vecs.At(0, k)), real(vecs.At(1, k)), real(vecs.At(2, k))}
		if 4*v[0]*v[2]-v[1]*v[1] > 0 {
			a1 = v
			break
		}
	}
	if a1 == nil {
		return Ellipse{}, fmt.Errorf("%w: no elliptical solution", ErrDegenerate)
	}
	var a2 mat.VecDense
	a2.MulVec(&t, mat.NewVecDense(3, a1))

	conic := [6]float64{a1[0], a1[1], a1[2], a2.AtVec(0), a2.AtVec(1), a2.AtVec(2)}
	e, err := conicToEllipse(conic)
	if err != nil {
		return Ellipse{}, err
	}
	e.Center = geometry.Point{X: mx + scale*e.Center.X, Y: my + scale*e.Center.Y}
	e.A *= scale
	e.B *= scale
	return e, nil
}

// conicToEllipse converts ax² + bxy + cy² + dx + ey + f = 0 into centre,
// axes and rotation. The centre removes the linear term; the eigenvectors
// of the remaining quadratic form give the axes.
func conicToEllipse(c [6]float64) (Ellipse, error) {
	q := mat.NewSymDense(2, []float64{c[0], c[1] / 2, c[1] / 2, c[2]})
	lin := mat.NewVecDense(2, []float64{c[3], c[4]})

	var twoQ mat.Dense
	twoQ.Scale(2, q)
	var t mat.VecDense
	if err := t.SolveVec(&twoQ, lin); err != nil {
		return Ellipse{}, fmt.Errorf("%w: conic centre: %v", ErrDegenerate, err)
	}
	// centre is -t; the constant becomes f - tᵀ lin + tᵀ Q t
	var qt mat.VecDense
	qt.MulVec(q, &t)
	cnew := c[5] - mat.Dot(&t, lin) + mat.Dot(&t, &qt)
	if cnew == 0 {
		return Ellipse{}, fmt.Errorf("%w: conic passes through its centre", ErrDegenerate)
	}

	var norm mat.SymDense
	norm.ScaleSym(-1/cnew, q)
	var es mat.EigenSym
	if ok := es.Factorize(&norm, true); !ok {
		return Ellipse{}, fmt.Errorf("%w: conic eigen decomposition failed", ErrDegenerate)
	}
	vals := es.Values(nil)
	if !(vals[0] > 0) || !(vals[1] > 0) {
		return Ellipse{}, fmt.Errorf("%w: conic is not an ellipse (eigenvalues %v)", ErrDegenerate, vals)
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// the smaller eigenvalue belongs to the major axis
	theta := math.Atan2(vecs.At(1, 0), vecs.At(0, 0))
	theta = math.Mod(theta+math.Pi, math.Pi)
	if theta >= math.Pi {
		theta -= math.Pi
	}
	return Ellipse{
		Center: geometry.Point{X: -t.AtVec(0), Y: -t.AtVec(1)},
		A:      1 / math.Sqrt(vals[0]),
		B:      1 / math.Sqrt(vals[1]),
		Theta:  theta,
	}, nil
}

func fitEllipse(points []geometry.Point, f frame) (*Result, error) {
	start := time.Now()
	e, err := FitEllipse(points)
	if err != nil {
		return nil, err
	}
	hits := e.IntersectLine(geometry.Line{A: f.origin, B: f.origin.Add(f.u)})
	if hits == nil {
		return nil, ErrNoIntersection
	}
	left, right := f.orderByU(hits[0], hits[1])

	angle := func(p geometry.Point) float64 {
		g := e.Gradient(p)
		return f.classify(geometry.Point{X: -g.Y, Y: g.X}, e.Center)
	}
	res := &Result{
		Angles:        newAngles(angle(left), angle(right)),
		ContactPoints: [2]geometry.Point{left, right},
		Ellipse:       &EllipseResult{Ellipse: e, ThetaDeg: e.Theta * 180 / math.Pi},
	}
	res.Timings.FitTime = time.Since(start).Seconds()
	res.Errors = Summarise(e.Distances(points))
	return res, nil
}
