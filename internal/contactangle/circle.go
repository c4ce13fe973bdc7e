package contactangle

import (
	"fmt"
	"time"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// CircleResult holds the fitted circle.
type CircleResult struct {
	Circle geometry.Circle `json:"circle"`
}

func fitCircle(points []geometry.Point, f frame) (*Result, error) {
	start := time.Now()
	c, err := geometry.FitCircle(points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	hits := c.IntersectLine(geometry.Line{A: f.origin, B: f.origin.Add(f.u)})
	if hits == nil {
		return nil, ErrNoIntersection
	}
	left, right := f.orderByU(hits[0], hits[1])

	angle := func(p geometry.Point) float64 {
		r := p.Sub(c.Center)
		return f.classify(geometry.Point{X: -r.Y, Y: r.X}, c.Center)
	}
	res := &Result{
		Angles:        newAngles(angle(left), angle(right)),
		ContactPoints: [2]geometry.Point{left, right},
		Circle:        &CircleResult{Circle: c},
	}
	res.Timings.FitTime = time.Since(start).Seconds()

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = c.Distance(p)
	}
	res.Errors = Summarise(dist)
	return res, nil
}
