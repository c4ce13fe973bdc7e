package server

import (
	"encoding/json"

	"github.com/ironsheep/drop-shape-mcp/internal/contactangle"
	"github.com/ironsheep/drop-shape-mcp/internal/contour"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/render"
	"github.com/ironsheep/drop-shape-mcp/internal/younglaplace"
)

type renderFitArgs struct {
	Mode   string           `json:"mode"`
	Points []geometry.Point `json:"points"`

	// pendant
	ImageHeight  float64   `json:"image_height"`
	Params       []float64 `json:"params"`
	MaxArclength float64   `json:"max_arclength"`

	// sessile
	contactAngleArgs

	Title    string  `json:"title"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FitColor string  `json:"fit_color"`
}

func (s *Server) handleRenderFit(args json.RawMessage) (interface{}, error) {
	var a renderFitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	// the embedded sessile arguments share the points field
	a.contactAngleArgs.Points = a.Points
	opts := render.Options{Title: a.Title, Width: a.Width, Height: a.Height, FitColor: a.FitColor}
	if a.Width < 0 || a.Height < 0 {
		return nil, invalidArgs("width and height must not be negative")
	}

	switch a.Mode {
	case "pendant":
		if !(a.ImageHeight > 0) {
			return nil, invalidArgs("image_height must be positive, got %g", a.ImageHeight)
		}
		params, err := younglaplace.ParamsFromSlice(a.Params)
		if err != nil {
			return nil, &argumentError{err: err}
		}
		if !(a.MaxArclength > 0) {
			return nil, invalidArgs("max_arclength must be positive, got %g", a.MaxArclength)
		}
		fit := &younglaplace.FitResult{Params: params, MaxArclength: a.MaxArclength, MaxS: a.MaxArclength}
		return render.Pendant(geometry.FlipY(a.Points, a.ImageHeight), fit, opts)

	case "sessile":
		if a.Baseline == nil {
			return nil, invalidArgs("baseline is required")
		}
		fitOpts, err := a.options()
		if err != nil {
			return nil, err
		}
		points := a.Points
		if fitOpts.Order {
			// render the same ordered contour the fits see
			ordered, err := contour.Order(points, contour.Options{})
			if err != nil {
				return nil, err
			}
			points = ordered
			fitOpts.Order = false
		}
		outcomes := contactangle.FitAll(a.Methods, points, *a.Baseline, fitOpts)
		results := make([]*contactangle.Result, 0, len(outcomes))
		for _, o := range outcomes {
			if o.Result != nil {
				results = append(results, o.Result)
			}
		}
		return render.ContactAngles(points, results, opts)

	default:
		return nil, invalidArgs("mode must be pendant or sessile, got %q", a.Mode)
	}
}
