package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/drop-shape-mcp/internal/analysis"
	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/contactangle"
	"github.com/ironsheep/drop-shape-mcp/internal/contour"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/monitoring"
	"github.com/ironsheep/drop-shape-mcp/internal/needle"
	"github.com/ironsheep/drop-shape-mcp/internal/younglaplace"
)

// defaultProfileMaxS is the arclength pendant_profile integrates to when
// the caller gives none.
const defaultProfileMaxS = 4.0

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "contour_order", "pendant_fit").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// argumentError marks a tool call whose arguments could not be decoded or
// are out of range. It is reported as JSON-RPC -32602.
type argumentError struct {
	err error
}

func (e *argumentError) Error() string { return e.err.Error() }

func (e *argumentError) Unwrap() error { return e.err }

func invalidArgs(format string, a ...interface{}) error {
	return &argumentError{err: fmt.Errorf(format, a...)}
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &argumentError{err: err}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602; tool execution errors return -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	monitoring.Logf("tools/call %s", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var argErr *argumentError
		if errors.As(err, &argErr) {
			return s.errorResponse(req.ID, -32602, "Invalid arguments", err.Error())
		}
		monitoring.Logf("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Contours
	case "contour_order":
		return s.handleContourOrder(args)
	case "contour_split":
		return s.handleContourSplit(args)

	// Needle
	case "needle_calibrate":
		return s.handleNeedleCalibrate(args)

	// Pendant drop
	case "pendant_profile":
		return s.handlePendantProfile(args)
	case "pendant_fit":
		return s.handlePendantFit(ctx, args)
	case "pendant_properties":
		return s.handlePendantProperties(args)

	// Sessile drop
	case "contact_angle_fit":
		return s.handleContactAngleFit(args)

	// Images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_extract_edges":
		return s.handleImageExtractEdges(args)
	case "image_detect_baseline":
		return s.handleImageDetectBaseline(args)
	case "image_detect_needle":
		return s.handleImageDetectNeedle(args)

	// Output
	case "render_fit":
		return s.handleRenderFit(args)

	// Batch
	case "analyze_frames":
		return s.handleAnalyzeFrames(ctx, args)

	default:
		return nil, invalidArgs("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON marshals v to indented JSON, ignoring errors.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// config returns the server configuration with per-call overrides applied.
func (s *Server) config(override *config.Config) (*config.Config, error) {
	merged := s.cfg.Merge(override)
	if err := merged.Validate(); err != nil {
		return nil, &argumentError{err: err}
	}
	return merged, nil
}

// === Contour Handlers ===

type contourOrderArgs struct {
	Points []geometry.Point `json:"points"`
	Start  *geometry.Point  `json:"start"`
	Jump   string           `json:"jump"`
	JumpPx float64          `json:"jump_px"`
	YUp    bool             `json:"y_up"`
}

func (s *Server) handleContourOrder(args json.RawMessage) (interface{}, error) {
	var a contourOrderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	opts := contour.Options{Start: a.Start, YUp: a.YUp}
	switch a.Jump {
	case "", "calibrated":
		opts.Jump = contour.CalibratedJump()
	case "literal":
		if !(a.JumpPx > 0) {
			return nil, invalidArgs("jump_px must be positive for a literal jump, got %g", a.JumpPx)
		}
		opts.Jump = contour.LiteralJump(a.JumpPx)
	case "none":
		opts.Jump = contour.NoJump()
	default:
		return nil, invalidArgs("unknown jump mode %q", a.Jump)
	}

	return contour.OrderDetailed(a.Points, opts)
}

type contourSplitArgs struct {
	Points []geometry.Point `json:"points"`
}

func (s *Server) handleContourSplit(args json.RawMessage) (interface{}, error) {
	var a contourSplitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return contour.SplitAtApex(a.Points, contour.Options{})
}

// === Needle Handlers ===

type needleCalibrateArgs struct {
	Left             []geometry.Point `json:"left"`
	Right            []geometry.Point `json:"right"`
	NeedleDiameterMM float64          `json:"needle_diameter_mm"`
	Config           *config.Config   `json:"config"`
}

// needleCalibrateResult adds the pixel scale to a calibration.
type needleCalibrateResult struct {
	*needle.Calibration
	MetresPerPixel float64 `json:"metres_per_pixel,omitempty"`
}

func (s *Server) handleNeedleCalibrate(args json.RawMessage) (interface{}, error) {
	var a needleCalibrateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.config(a.Config)
	if err != nil {
		return nil, err
	}

	cal, err := needle.Calibrate(a.Left, a.Right, cfg.GetTolerances())
	if err != nil {
		return nil, err
	}
	result := needleCalibrateResult{Calibration: cal}
	diameter := a.NeedleDiameterMM
	if diameter == 0 {
		diameter = cfg.GetPhysical().NeedleDiameterMM
	}
	if diameter > 0 {
		result.MetresPerPixel = cal.Scale(diameter)
	}
	return result, nil
}

// === Pendant Drop Handlers ===

type pendantProfileArgs struct {
	Bond    *float64 `json:"bond"`
	MaxS    float64  `json:"max_s"`
	SPoints *float64 `json:"s_points"`
}

// profileSample is one row of a generated profile.
type profileSample struct {
	S   float64 `json:"s"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Phi float64 `json:"phi"`
}

type pendantProfileResult struct {
	Bond    float64         `json:"bond"`
	MaxS    float64         `json:"max_s"`
	SPoints int             `json:"s_points"`
	Samples []profileSample `json:"samples"`
}

func (s *Server) handlePendantProfile(args json.RawMessage) (interface{}, error) {
	var a pendantProfileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Bond == nil {
		return nil, invalidArgs("bond is required")
	}
	maxS := a.MaxS
	if maxS == 0 {
		maxS = defaultProfileMaxS
	}
	sPoints := younglaplace.DefaultSPoints
	if a.SPoints != nil {
		n, err := younglaplace.ParseSPoints(*a.SPoints)
		if err != nil {
			return nil, &argumentError{err: err}
		}
		sPoints = n
	}
	if err := younglaplace.ValidateDomain(maxS, sPoints); err != nil {
		return nil, &argumentError{err: err}
	}

	prof, err := younglaplace.Generate(*a.Bond, maxS, sPoints)
	if err != nil {
		return nil, err
	}
	result := pendantProfileResult{
		Bond:    prof.Bond,
		MaxS:    prof.MaxS,
		SPoints: prof.SPoints,
		Samples: make([]profileSample, len(prof.Rows)),
	}
	for i, row := range prof.Rows {
		result.Samples[i] = profileSample{
			S:   prof.Arclength(i),
			X:   row[younglaplace.ColX],
			Y:   row[younglaplace.ColY],
			Phi: row[younglaplace.ColPhi],
		}
	}
	return result, nil
}

type pendantFitArgs struct {
	Points        []geometry.Point `json:"points"`
	ImageHeight   float64          `json:"image_height"`
	Order         bool             `json:"order"`
	InitialParams []float64        `json:"initial_params"`
	MaxS          float64          `json:"max_s"`
	SPoints       *float64         `json:"s_points"`
	Config        *config.Config   `json:"config"`
}

type pendantFitResult struct {
	Ordering        *contour.Result          `json:"ordering,omitempty"`
	Fit             *younglaplace.FitResult   `json:"fit"`
	Properties      *younglaplace.Properties `json:"properties,omitempty"`
	PropertiesError string                   `json:"properties_error,omitempty"`
}

func (s *Server) handlePendantFit(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pendantFitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if !(a.ImageHeight > 0) {
		return nil, invalidArgs("image_height must be positive, got %g", a.ImageHeight)
	}
	cfg, err := s.config(a.Config)
	if err != nil {
		return nil, err
	}

	opts := []younglaplace.Option{younglaplace.WithLogf(monitoring.Logf)}
	if a.InitialParams != nil {
		p, err := younglaplace.ParamsFromSlice(a.InitialParams)
		if err != nil {
			return nil, &argumentError{err: err}
		}
		opts = append(opts, younglaplace.WithInitialParams(p))
	}
	if a.MaxS != 0 {
		opts = append(opts, younglaplace.WithMaxS(a.MaxS))
	}
	if a.SPoints != nil {
		n, err := younglaplace.ParseSPoints(*a.SPoints)
		if err != nil {
			return nil, &argumentError{err: err}
		}
		opts = append(opts, younglaplace.WithSPoints(n))
	}

	result := &pendantFitResult{}
	points := a.Points
	if a.Order {
		ordered, err := contour.OrderDetailed(points, contour.Options{Jump: contour.CalibratedJump()})
		if err != nil {
			return nil, err
		}
		result.Ordering = ordered
		points = ordered.Points
	}

	opt, err := younglaplace.NewOptimizer(geometry.FlipY(points, a.ImageHeight), cfg.GetTolerances(), opts...)
	if err != nil {
		return nil, err
	}
	fit, err := opt.Fit(ctx)
	if fit == nil {
		return nil, err
	}
	// a fault inside the fit is reported through its state and error fields
	result.Fit = fit
	if fit.State == younglaplace.StateUnexpectedException {
		monitoring.Logf("pendant_fit: %v", err)
		return result, nil
	}

	phys := cfg.GetPhysical()
	if phys.MetresPerPixel > 0 && phys.DeltaRho != 0 {
		props, err := younglaplace.ComputeProperties(fit, phys, s.volsur)
		if err != nil {
			result.PropertiesError = err.Error()
		} else {
			result.Properties = props
		}
	}
	return result, nil
}

type pendantPropertiesArgs struct {
	Params       []float64      `json:"params"`
	MaxArclength float64        `json:"max_arclength"`
	Config       *config.Config `json:"config"`
}

func (s *Server) handlePendantProperties(args json.RawMessage) (interface{}, error) {
	var a pendantPropertiesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	params, err := younglaplace.ParamsFromSlice(a.Params)
	if err != nil {
		return nil, &argumentError{err: err}
	}
	if !(a.MaxArclength > 0) {
		return nil, invalidArgs("max_arclength must be positive, got %g", a.MaxArclength)
	}
	cfg, err := s.config(a.Config)
	if err != nil {
		return nil, err
	}

	fit := &younglaplace.FitResult{Params: params, MaxArclength: a.MaxArclength, MaxS: a.MaxArclength}
	return younglaplace.ComputeProperties(fit, cfg.GetPhysical(), s.volsur)
}

// === Sessile Drop Handlers ===

type contactAngleArgs struct {
	Points        []geometry.Point      `json:"points"`
	Baseline      *geometry.Line        `json:"baseline"`
	Methods       []contactangle.Method `json:"methods"`
	PointsPerSide int                   `json:"points_per_side"`
	Strategy      string                `json:"strategy"`
	Order         bool                  `json:"order"`
}

func (a *contactAngleArgs) options() (contactangle.Options, error) {
	strategy, err := contactangle.ParseStrategy(a.Strategy)
	if err != nil {
		return contactangle.Options{}, &argumentError{err: err}
	}
	if a.PointsPerSide < 0 {
		return contactangle.Options{}, invalidArgs("points_per_side must not be negative, got %d", a.PointsPerSide)
	}
	return contactangle.Options{Points: a.PointsPerSide, Strategy: strategy, Order: a.Order}, nil
}

func (s *Server) handleContactAngleFit(args json.RawMessage) (interface{}, error) {
	var a contactAngleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Baseline == nil {
		return nil, invalidArgs("baseline is required")
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"results": contactangle.FitAll(a.Methods, a.Points, *a.Baseline, opts),
	}, nil
}

// === Batch Handlers ===

type analyzeFramesArgs struct {
	Frames  []analysis.Frame `json:"frames"`
	Workers int              `json:"workers"`
	Config  *config.Config   `json:"config"`
}

type analyzeFramesResult struct {
	Frames    []analysis.FrameResult `json:"frames"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
}

func (s *Server) handleAnalyzeFrames(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeFramesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Frames) == 0 {
		return nil, invalidArgs("frames must not be empty")
	}
	if a.Workers < 0 {
		return nil, invalidArgs("workers must not be negative, got %d", a.Workers)
	}
	cfg, err := s.config(a.Config)
	if err != nil {
		return nil, err
	}

	opts := []analysis.Option{analysis.WithCache(s.volsur)}
	if a.Workers > 0 {
		opts = append(opts, analysis.WithWorkers(a.Workers))
	}
	analyzer, err := analysis.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	result := analyzeFramesResult{Frames: analyzer.Run(ctx, a.Frames)}
	for i := range result.Frames {
		if result.Frames[i].Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}
