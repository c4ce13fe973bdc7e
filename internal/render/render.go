package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // DecodeConfig of the rendered plot
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ironsheep/drop-shape-mcp/internal/contactangle"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/younglaplace"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("render: no points to plot")

const (
	defaultObserved = "#1f1f1f"
	defaultFit      = "#d62728"
	defaultBaseline = "#2ca02c"
	defaultSize     = 6.0
	curveSamples    = 400
)

// Options controls the size and colours of an overlay. Colours are hex
// strings such as "#d62728"; empty fields select the defaults.
type Options struct {
	Title string
	// Width and Height are in inches. Zero means 6.
	Width  float64
	Height float64

	ObservedColor string
	FitColor      string
	BaselineColor string
}

// Result is a rendered overlay.
type Result struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Pendant plots an observed pendant contour, in the same y-up frame the
// fit was run in, against the profile described by fit.
func Pendant(observed []geometry.Point, fit *younglaplace.FitResult, opts Options) (*Result, error) {
	if len(observed) == 0 {
		return nil, ErrNoData
	}
	if fit == nil {
		return nil, errors.New("render: nil fit result")
	}
	colors, err := opts.colors()
	if err != nil {
		return nil, err
	}

	maxS := fit.MaxS
	if fit.MaxArclength > maxS {
		maxS = fit.MaxArclength
	}
	prof, err := younglaplace.Generate(fit.Params.Bond(), maxS, curveSamples)
	if err != nil {
		return nil, fmt.Errorf("render: fitted profile: %w", err)
	}
	curve := younglaplace.Curve(prof, fit.Params)

	p := newPlot(opts, fmt.Sprintf("Pendant drop, Bo = %.4f", fit.Params.Bond()))
	if err := addPoints(p, "observed", observed, colors.observed); err != nil {
		return nil, err
	}
	if err := addPath(p, "Young-Laplace", curve, colors.fit, 1.5); err != nil {
		return nil, err
	}
	equalAspect(p, observed, curve)
	return encode(p, opts)
}

// ContactAngles plots a sessile contour in image coordinates, y down,
// with the baseline, the contact points and the fitted geometry of each
// result. Several results are drawn in distinct colours.
func ContactAngles(points []geometry.Point, results []*contactangle.Result, opts Options) (*Result, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}
	colors, err := opts.colors()
	if err != nil {
		return nil, err
	}

	p := newPlot(opts, "Sessile drop")
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}
	if err := addPoints(p, "observed", points, colors.observed); err != nil {
		return nil, err
	}

	extent := append([]geometry.Point(nil), points...)
	fitColors := []color.Color{colors.fit}
	if len(results) > 1 {
		fitColors = palette(len(results))
	}

	baselineDrawn := false
	for i, res := range results {
		if res == nil {
			continue
		}
		c := fitColors[i%len(fitColors)]
		if !baselineDrawn {
			lo, hi := geometry.Bounds(points)
			pad := 0.1 * (hi.X - lo.X)
			segment := lineSegment(res.Baseline, res.ContactPoints[0], res.ContactPoints[1], pad)
			if err := addPath(p, "baseline", segment, colors.baseline, 1); err != nil {
				return nil, err
			}
			baselineDrawn = true
		}

		label := fmt.Sprintf("%s %.1f° / %.1f°", res.Method, res.Angles.LeftDeg, res.Angles.RightDeg)
		shapes := fittedShapes(res, points)
		for j, shape := range shapes {
			name := ""
			if j == 0 {
				name = label
			}
			if err := addPath(p, name, shape, c, 1.5); err != nil {
				return nil, err
			}
			extent = append(extent, shape...)
		}
		if err := addMarkers(p, res.ContactPoints[:], c); err != nil {
			return nil, err
		}
	}

	equalAspect(p, extent)
	return encode(p, opts)
}

// fittedShapes returns the drawable geometry of one contact-angle result.
func fittedShapes(res *contactangle.Result, points []geometry.Point) [][]geometry.Point {
	lo, hi := geometry.Bounds(points)
	reach := 0.25 * math.Max(hi.X-lo.X, hi.Y-lo.Y)

	switch {
	case res.Circle != nil:
		c := res.Circle.Circle
		path := make([]geometry.Point, curveSamples+1)
		for i := range path {
			a := 2 * math.Pi * float64(i) / curveSamples
			path[i] = geometry.Point{X: c.Center.X + c.Radius*math.Cos(a), Y: c.Center.Y + c.Radius*math.Sin(a)}
		}
		return [][]geometry.Point{path}
	case res.Ellipse != nil:
		e := res.Ellipse.Ellipse
		path := make([]geometry.Point, curveSamples+1)
		for i := range path {
			path[i] = e.At(2 * math.Pi * float64(i) / curveSamples)
		}
		return [][]geometry.Point{path}
	case res.Tangent != nil:
		return tangentShapes(res, res.Tangent.Left, res.Tangent.Right, reach)
	case res.Polynomial != nil:
		return tangentShapes(res, res.Polynomial.Left, res.Polynomial.Right, reach)
	}
	return nil
}

// tangentShapes draws each side's tangent from its contact point into the
// drop, followed by the points the local fit used.
func tangentShapes(res *contactangle.Result, left, right contactangle.LocalFit, reach float64) [][]geometry.Point {
	shapes := make([][]geometry.Point, 0, 4)
	for i, lf := range []contactangle.LocalFit{left, right} {
		cp := res.ContactPoints[i]
		d := lf.Tangent.Direction()
		// point the tangent away from the baseline, into the drop
		if len(lf.Points) > 0 && res.Baseline.SignedDistance(cp.Add(d))*res.Baseline.SignedDistance(lf.Points[len(lf.Points)/2]) < 0 {
			d = d.Scale(-1)
		}
		shapes = append(shapes, []geometry.Point{cp, cp.Add(d.Scale(reach))})
	}
	for _, lf := range []contactangle.LocalFit{left, right} {
		if len(lf.Points) > 1 {
			shapes = append(shapes, lf.Points)
		}
	}
	return shapes
}

// lineSegment returns the part of l between the projections of a and b,
// extended by pad at both ends.
func lineSegment(l geometry.Line, a, b geometry.Point, pad float64) []geometry.Point {
	d := l.Direction()
	pa, pb := l.Project(a), l.Project(b)
	if pb.Sub(pa).Dot(d) < 0 {
		pa, pb = pb, pa
	}
	return []geometry.Point{pa.Sub(d.Scale(pad)), pb.Add(d.Scale(pad))}
}

type scheme struct {
	observed, fit, baseline color.Color
}

func (o Options) colors() (scheme, error) {
	var out scheme
	var err error
	if out.observed, err = parseColor(o.ObservedColor, defaultObserved); err != nil {
		return out, err
	}
	if out.fit, err = parseColor(o.FitColor, defaultFit); err != nil {
		return out, err
	}
	if out.baseline, err = parseColor(o.BaselineColor, defaultBaseline); err != nil {
		return out, err
	}
	return out, nil
}

func parseColor(hex, fallback string) (color.Color, error) {
	if hex == "" {
		hex = fallback
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("render: invalid colour %q: %w", hex, err)
	}
	return c, nil
}

// palette spaces n hues evenly at constant chroma and luminance.
func palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = colorful.Hcl(float64(i)*360/float64(n), 0.6, 0.55).Clamped()
	}
	return out
}

func newPlot(opts Options, fallbackTitle string) *plot.Plot {
	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fallbackTitle
	}
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func toXYs(points []geometry.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

func addPoints(p *plot.Plot, name string, points []geometry.Point, c color.Color) error {
	s, err := plotter.NewScatter(toXYs(points))
	if err != nil {
		return fmt.Errorf("render: scatter: %w", err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(1)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	if name != "" {
		p.Legend.Add(name, s)
	}
	return nil
}

func addMarkers(p *plot.Plot, points []geometry.Point, c color.Color) error {
	s, err := plotter.NewScatter(toXYs(points))
	if err != nil {
		return fmt.Errorf("render: markers: %w", err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(4)
	s.GlyphStyle.Shape = draw.CrossGlyph{}
	p.Add(s)
	return nil
}

func addPath(p *plot.Plot, name string, points []geometry.Point, c color.Color, width float64) error {
	l, err := plotter.NewLine(toXYs(points))
	if err != nil {
		return fmt.Errorf("render: line: %w", err)
	}
	l.Color = c
	l.Width = vg.Points(width)
	p.Add(l)
	if name != "" {
		p.Legend.Add(name, l)
	}
	return nil
}

// equalAspect gives both axes the same span around the data so circles
// stay round on a square canvas.
func equalAspect(p *plot.Plot, sets ...[]geometry.Point) {
	var all []geometry.Point
	for _, s := range sets {
		all = append(all, s...)
	}
	lo, hi := geometry.Bounds(all)
	span := 1.1 * math.Max(hi.X-lo.X, hi.Y-lo.Y)
	if span == 0 {
		span = 1
	}
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	p.X.Min, p.X.Max = cx-span/2, cx+span/2
	p.Y.Min, p.Y.Max = cy-span/2, cy+span/2
}

func encode(p *plot.Plot, opts Options) (*Result, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = defaultSize
	}
	if h <= 0 {
		h = defaultSize
	}

	wt, err := p.WriterTo(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render: write png: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("render: decode png: %w", err)
	}
	return &Result{
		Width:       cfg.Width,
		Height:      cfg.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
