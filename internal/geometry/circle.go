package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateCircle is returned when no unique circle fits the points,
// for example when they are collinear.
var ErrDegenerateCircle = errors.New("geometry: degenerate circle fit")

// Circle is a centre and radius.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// FitCircle returns the algebraic least-squares circle through points,
// minimising Σ(x² + y² + Dx + Ey + F)². Points are centred on their centroid
// before solving to keep the system well conditioned.
func FitCircle(points []Point) (Circle, error) {
	if len(points) < 3 {
		return Circle{}, fmt.Errorf("%w: need at least 3 points, got %d", ErrDegenerateCircle, len(points))
	}
	c := Centroid(points)

	a := mat.NewDense(len(points), 3, nil)
	b := mat.NewVecDense(len(points), nil)
	for i, p := range points {
		q := p.Sub(c)
		a.Set(i, 0, q.X)
		a.Set(i, 1, q.Y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(q.X*q.X + q.Y*q.Y))
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return Circle{}, fmt.Errorf("%w: %v", ErrDegenerateCircle, err)
	}
	d, e, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	cx, cy := -d/2, -e/2
	r2 := cx*cx + cy*cy - f
	if !(r2 > 0) || math.IsInf(r2, 0) {
		return Circle{}, fmt.Errorf("%w: radius² = %g", ErrDegenerateCircle, r2)
	}
	return Circle{Center: Point{X: cx + c.X, Y: cy + c.Y}, Radius: math.Sqrt(r2)}, nil
}

// Distance returns the distance from p to the nearest point on the circle.
func (c Circle) Distance(p Point) float64 {
	return math.Abs(p.Distance(c.Center) - c.Radius)
}

// IntersectLine returns the points where l crosses the circle, ordered
// along l's direction. It returns nil when the line misses the circle.
func (c Circle) IntersectLine(l Line) []Point {
	d := l.Direction()
	f := l.A.Sub(c.Center)
	// |f + t·d|² = r², with |d| = 1
	bHalf := f.Dot(d)
	disc := bHalf*bHalf - (f.Dot(f) - c.Radius*c.Radius)
	if disc < 0 {
		return nil
	}
	root := math.Sqrt(disc)
	t1, t2 := -bHalf-root, -bHalf+root
	return []Point{l.A.Add(d.Scale(t1)), l.A.Add(d.Scale(t2))}
}
