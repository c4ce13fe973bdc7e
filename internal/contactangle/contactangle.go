package contactangle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ironsheep/drop-shape-mcp/internal/contour"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

var (
	// ErrNoIntersection is returned when the baseline misses the fitted curve.
	ErrNoIntersection = errors.New("contactangle: baseline does not intersect the fitted curve")
	// ErrDegenerate wraps failures of the underlying fit, such as collinear
	// input or a singular scatter matrix.
	ErrDegenerate = errors.New("contactangle: degenerate fit")
)

// DefaultPoints is how many contour points next to each contact point the
// tangent and polynomial methods use.
const DefaultPoints = 15

// Method selects a fitting algorithm.
type Method int

const (
	MethodTangent Method = iota
	MethodPolynomial
	MethodCircle
	MethodEllipse
)

// AllMethods lists every method in a stable order.
var AllMethods = []Method{MethodTangent, MethodPolynomial, MethodCircle, MethodEllipse}

var methodNames = [...]string{
	MethodTangent:    "tangent",
	MethodPolynomial: "polynomial",
	MethodCircle:     "circle",
	MethodEllipse:    "ellipse",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("method(%d)", int(m))
	}
	return methodNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMethod maps a method name to a Method.
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if strings.EqualFold(s, name) {
			return Method(i), nil
		}
	}
	return 0, fmt.Errorf("unknown contact angle method %q", s)
}

// ContactPointStrategy decides where the tangent and polynomial methods
// anchor. Circle and ellipse contact points always come from the baseline
// intersection.
type ContactPointStrategy int

const (
	// ContourEnds uses the first and last contour points.
	ContourEnds ContactPointStrategy = iota
	// BaselineNearest uses, on each side of the apex, the contour point
	// closest to the baseline.
	BaselineNearest
)

func (s ContactPointStrategy) String() string {
	if s == BaselineNearest {
		return "baseline_nearest"
	}
	return "contour_ends"
}

// ParseStrategy maps a strategy name to a ContactPointStrategy. The empty
// string selects ContourEnds.
func ParseStrategy(s string) (ContactPointStrategy, error) {
	switch strings.ToLower(s) {
	case "", "contour_ends":
		return ContourEnds, nil
	case "baseline_nearest":
		return BaselineNearest, nil
	}
	return 0, fmt.Errorf("unknown contact point strategy %q", s)
}

// Options tunes a fit. The zero value is usable.
type Options struct {
	// Points per side for the tangent and polynomial methods.
	Points   int
	Strategy ContactPointStrategy
	// Order runs nearest-neighbour ordering on the contour first, for raw
	// edge point sets.
	Order bool
}

func (o Options) points() int {
	if o.Points <= 0 {
		return DefaultPoints
	}
	return o.Points
}

// Angles are the left and right contact angles.
type Angles struct {
	Left     float64 `json:"left_rad"`
	Right    float64 `json:"right_rad"`
	LeftDeg  float64 `json:"left_deg"`
	RightDeg float64 `json:"right_deg"`
}

func newAngles(left, right float64) Angles {
	return Angles{Left: left, Right: right, LeftDeg: left * 180 / math.Pi, RightDeg: right * 180 / math.Pi}
}

// Timings are in seconds. FitTime covers the fit and angle calculation,
// AnalysisTime also includes the error metrics.
type Timings struct {
	FitTime      float64 `json:"fit_time"`
	AnalysisTime float64 `json:"analysis_time"`
}

// Result is the outcome of one method on one contour. Exactly one of the
// method-specific fields is set, matching Method.
type Result struct {
	Method        Method            `json:"method"`
	Angles        Angles            `json:"angles"`
	ContactPoints [2]geometry.Point `json:"contact_points"`
	Baseline      geometry.Line     `json:"baseline"`
	Errors        Errors            `json:"errors"`
	Timings       Timings           `json:"timings"`

	Tangent    *TangentResult    `json:"tangent,omitempty"`
	Polynomial *PolynomialResult `json:"polynomial,omitempty"`
	Circle     *CircleResult     `json:"circle,omitempty"`
	Ellipse    *EllipseResult    `json:"ellipse,omitempty"`
}

// Fit measures the contact angles of points against baseline with the
// given method.
func Fit(method Method, points []geometry.Point, baseline geometry.Line, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Order {
		ordered, err := contour.Order(points, contour.Options{})
		if err != nil {
			return nil, err
		}
		points = ordered
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 contour points, got %d", ErrDegenerate, len(points))
	}
	f, err := newFrame(baseline, points)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch method {
	case MethodTangent:
		res, err = fitLocal(method, 1, points, f, opts)
	case MethodPolynomial:
		res, err = fitLocal(method, 2, points, f, opts)
	case MethodCircle:
		res, err = fitCircle(points, f)
	case MethodEllipse:
		res, err = fitEllipse(points, f)
	default:
		return nil, fmt.Errorf("unknown contact angle method %d", int(method))
	}
	if err != nil {
		return nil, fmt.Errorf("%s fit: %w", method, err)
	}
	res.Method = method
	res.Baseline = baseline
	res.Timings.AnalysisTime = time.Since(start).Seconds()
	return res, nil
}

// Outcome pairs a method with its result or failure.
type Outcome struct {
	Method Method  `json:"method"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// FitAll runs each method in turn. A failing method is recorded in its
// Outcome and does not stop the others.
func FitAll(methods []Method, points []geometry.Point, baseline geometry.Line, opts Options) []Outcome {
	if len(methods) == 0 {
		methods = AllMethods
	}
	out := make([]Outcome, len(methods))
	for i, m := range methods {
		res, err := Fit(m, points, baseline, opts)
		out[i] = Outcome{Method: m, Result: res, Err: err}
		if err != nil {
			out[i].Error = err.Error()
		}
	}
	return out
}

// frame is the baseline coordinate system: u runs along the baseline from
// image left to right, v is the distance towards the drop.
type frame struct {
	origin geometry.Point
	u, n   geometry.Point
}

func newFrame(baseline geometry.Line, points []geometry.Point) (frame, error) {
	if baseline.A.Equal(baseline.B) {
		return frame{}, fmt.Errorf("%w: %v", ErrDegenerate, geometry.ErrDegenerateLine)
	}
	u := baseline.Direction()
	if u.X < 0 || (u.X == 0 && u.Y < 0) {
		u = u.Scale(-1)
	}
	side := baseline.SignedDistance(geometry.Centroid(points))
	if side == 0 {
		return frame{}, fmt.Errorf("%w: contour centroid lies on the baseline", ErrDegenerate)
	}
	n := baseline.Normal()
	if side < 0 {
		n = n.Scale(-1)
	}
	return frame{origin: baseline.A, u: u, n: n}, nil
}

func (f frame) coords(p geometry.Point) (u, v float64) {
	d := p.Sub(f.origin)
	return d.Dot(f.u), d.Dot(f.n)
}

func (f frame) point(u, v float64) geometry.Point {
	return f.origin.Add(f.u.Scale(u)).Add(f.n.Scale(v))
}

// classify turns the acute angle between a tangent and the baseline into a
// contact angle: obtuse when the curve centre is on the drop side.
func (f frame) classify(tangent, center geometry.Point) float64 {
	norm := tangent.Norm()
	if norm == 0 {
		return math.NaN()
	}
	alpha := math.Acos(math.Min(1, math.Abs(tangent.Dot(f.u))/norm))
	if _, v := f.coords(center); v > 0 {
		return math.Pi - alpha
	}
	return alpha
}

// orderByU returns a and b sorted along the baseline.
func (f frame) orderByU(a, b geometry.Point) (left, right geometry.Point) {
	ua, _ := f.coords(a)
	ub, _ := f.coords(b)
	if ua <= ub {
		return a, b
	}
	return b, a
}
