package geometry

import (
	"errors"
	"math"
)

// ErrDegenerateLine is returned when a line is requested through two
// coincident points.
var ErrDegenerateLine = errors.New("geometry: line endpoints coincide")

// Line is an infinite line through two distinct points A and B. It is used
// for the solid baseline of a sessile drop and for fitted tangents.
type Line struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// NewLine returns the line through a and b.
func NewLine(a, b Point) (Line, error) {
	if a.Equal(b) {
		return Line{}, ErrDegenerateLine
	}
	return Line{A: a, B: b}, nil
}

// Horizontal returns the line y = y0.
func Horizontal(y0 float64) Line {
	return Line{A: Point{X: 0, Y: y0}, B: Point{X: 1, Y: y0}}
}

// LineFromSlope returns the line y = m*x + c.
func LineFromSlope(m, c float64) Line {
	return Line{A: Point{X: 0, Y: c}, B: Point{X: 1, Y: m + c}}
}

// Direction returns the unit vector from A towards B.
func (l Line) Direction() Point {
	d := l.B.Sub(l.A)
	n := d.Norm()
	if n == 0 {
		return Point{}
	}
	return d.Scale(1 / n)
}

// Normal returns the unit normal obtained by rotating Direction by +90°.
func (l Line) Normal() Point {
	d := l.Direction()
	return Point{X: -d.Y, Y: d.X}
}

// IsVertical reports whether the line has no finite slope.
func (l Line) IsVertical() bool { return l.A.X == l.B.X }

// Slope returns dy/dx. It is ±Inf for vertical lines.
func (l Line) Slope() float64 {
	dx := l.B.X - l.A.X
	if dx == 0 {
		return math.Copysign(math.Inf(1), l.B.Y-l.A.Y)
	}
	return (l.B.Y - l.A.Y) / dx
}

// Intercept returns c in y = m*x + c. It is NaN for vertical lines.
func (l Line) Intercept() float64 {
	if l.IsVertical() {
		return math.NaN()
	}
	return l.A.Y - l.Slope()*l.A.X
}

// YAt evaluates the line at x.
func (l Line) YAt(x float64) float64 {
	return l.Slope()*x + l.Intercept()
}

// SignedDistance returns the perpendicular distance from p to the line,
// positive on the side the Normal points to.
func (l Line) SignedDistance(p Point) float64 {
	return p.Sub(l.A).Dot(l.Normal())
}

// Project returns the foot of the perpendicular from p onto the line.
func (l Line) Project(p Point) Point {
	d := l.Direction()
	return l.A.Add(d.Scale(p.Sub(l.A).Dot(d)))
}

// Angle returns the inclination of the line in radians in (-π/2, π/2].
func (l Line) Angle() float64 {
	d := l.B.Sub(l.A)
	a := math.Atan2(d.Y, d.X)
	if a > math.Pi/2 {
		a -= math.Pi
	} else if a <= -math.Pi/2 {
		a += math.Pi
	}
	return a
}
