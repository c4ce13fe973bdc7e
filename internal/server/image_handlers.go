package server

import (
	"encoding/json"
	"image"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/detection"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/imaging"
	"github.com/ironsheep/drop-shape-mcp/internal/needle"
)

// baselineMargin is how far above the substrate a point must lie to count
// as part of the drop.
const baselineMargin = 2.0

// regionArgs is a rectangular region of interest in source coordinates.
type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// sourceFrame loads path and crops it to region when one is given. The
// returned crop maps points found in the working image back to the source;
// it is nil when no region was requested.
func (s *Server) sourceFrame(path string, region *regionArgs) (image.Image, *imaging.CropResult, error) {
	if path == "" {
		return nil, nil, invalidArgs("path is required")
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if region == nil {
		return img, nil, nil
	}
	crop, err := imaging.CropImage(img, region.X1, region.Y1, region.X2, region.Y2, 1)
	if err != nil {
		return nil, nil, &argumentError{err: err}
	}
	return crop.Image, crop, nil
}

// edgePoints runs default Canny over the frame and returns the edges in
// source coordinates.
func (s *Server) edgePoints(path string, region *regionArgs) ([]geometry.Point, error) {
	img, crop, err := s.sourceFrame(path, region)
	if err != nil {
		return nil, err
	}
	edges, err := imaging.ExtractEdges(img, imaging.EdgeOptions{})
	if err != nil {
		return nil, err
	}
	if crop != nil {
		return crop.ToSource(edges.Points), nil
	}
	return edges.Points, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidArgs("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Region Handlers ===

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

// === Edge Handlers ===

type imageExtractEdgesArgs struct {
	Path             string      `json:"path"`
	Method           string      `json:"method"`
	Low              int         `json:"low"`
	High             int         `json:"high"`
	BlurRadius       float64     `json:"blur_radius"`
	Level            int         `json:"level"`
	Region           *regionArgs `json:"region"`
	LargestComponent bool        `json:"largest_component"`
	IncludeImage     bool        `json:"include_image"`
}

// edgesResult is the common shape of both extraction methods.
type edgesResult struct {
	Method      string           `json:"method"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Low         int              `json:"low,omitempty"`
	High        int              `json:"high,omitempty"`
	Level       uint8            `json:"level,omitempty"`
	OffsetX     int              `json:"offset_x"`
	OffsetY     int              `json:"offset_y"`
	Points      []geometry.Point `json:"points"`
	Count       int              `json:"count"`
	ImageBase64 string           `json:"image_base64,omitempty"`
	MimeType    string           `json:"mime_type,omitempty"`
}

func (s *Server) handleImageExtractEdges(args json.RawMessage) (interface{}, error) {
	var a imageExtractEdgesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Low < 0 || a.High < 0 {
		return nil, invalidArgs("thresholds must not be negative")
	}
	if a.Level < 0 || a.Level > 255 {
		return nil, invalidArgs("level must be between 0 and 255, got %d", a.Level)
	}

	img, crop, err := s.sourceFrame(a.Path, a.Region)
	if err != nil {
		return nil, err
	}

	var result edgesResult
	switch a.Method {
	case "", "canny":
		edges, err := imaging.ExtractEdges(img, imaging.EdgeOptions{
			Low:          a.Low,
			High:         a.High,
			BlurRadius:   a.BlurRadius,
			IncludeImage: a.IncludeImage,
		})
		if err != nil {
			return nil, err
		}
		result = edgesResult{
			Method:      "canny",
			Width:       edges.Width,
			Height:      edges.Height,
			Low:         edges.Low,
			High:        edges.High,
			Points:      edges.Points,
			ImageBase64: edges.ImageBase64,
			MimeType:    edges.MimeType,
		}
	case "threshold":
		sil, err := imaging.ExtractSilhouette(img, uint8(a.Level), a.IncludeImage)
		if err != nil {
			return nil, err
		}
		result = edgesResult{
			Method:      "threshold",
			Width:       sil.Width,
			Height:      sil.Height,
			Level:       sil.Level,
			Points:      sil.Points,
			ImageBase64: sil.ImageBase64,
			MimeType:    sil.MimeType,
		}
	default:
		return nil, invalidArgs("unknown edge method %q", a.Method)
	}

	if crop != nil {
		result.OffsetX, result.OffsetY = crop.OffsetX, crop.OffsetY
		result.Points = crop.ToSource(result.Points)
	}
	if a.LargestComponent {
		result.Points = detection.LargestComponent(result.Points)
	}
	result.Count = len(result.Points)
	return result, nil
}

// === Detection Handlers ===

type imageDetectBaselineArgs struct {
	Path       string      `json:"path"`
	Region     *regionArgs `json:"region"`
	MaxTiltDeg float64     `json:"max_tilt_deg"`
	MinVotes   int         `json:"min_votes"`
	Tolerance  float64     `json:"tolerance"`
	DropPoints bool        `json:"drop_points"`
}

type baselineResult struct {
	*detection.BaselineResult
	DropPoints []geometry.Point `json:"drop_points,omitempty"`
}

func (s *Server) handleImageDetectBaseline(args json.RawMessage) (interface{}, error) {
	var a imageDetectBaselineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	points, err := s.edgePoints(a.Path, a.Region)
	if err != nil {
		return nil, err
	}
	found, err := detection.DetectBaseline(points, detection.BaselineOptions{
		MaxTiltDeg: a.MaxTiltDeg,
		MinVotes:   a.MinVotes,
		Tolerance:  a.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	result := baselineResult{BaselineResult: found}
	if a.DropPoints {
		above := detection.AboveBaseline(points, found.Baseline, baselineMargin)
		result.DropPoints = detection.LargestComponent(above)
	}
	return result, nil
}

type imageDetectNeedleArgs struct {
	Path             string         `json:"path"`
	Region           *regionArgs    `json:"region"`
	MaxY             float64        `json:"max_y"`
	MinSeparation    float64        `json:"min_separation"`
	MaxTiltDeg       float64        `json:"max_tilt_deg"`
	MinVotes         int            `json:"min_votes"`
	NeedleDiameterMM float64        `json:"needle_diameter_mm"`
	Config           *config.Config `json:"config"`
}

type needleResult struct {
	Needle         *detection.NeedleResult `json:"needle"`
	Calibration    *needle.Calibration     `json:"calibration,omitempty"`
	MetresPerPixel float64                 `json:"metres_per_pixel,omitempty"`
	// CalibrationError is set when the edges were found but the line fit
	// failed.
	CalibrationError string `json:"calibration_error,omitempty"`
}

func (s *Server) handleImageDetectNeedle(args json.RawMessage) (interface{}, error) {
	var a imageDetectNeedleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.config(a.Config)
	if err != nil {
		return nil, err
	}

	points, err := s.edgePoints(a.Path, a.Region)
	if err != nil {
		return nil, err
	}
	found, err := detection.DetectNeedle(points, detection.NeedleOptions{
		MaxY:          a.MaxY,
		MinSeparation: a.MinSeparation,
		MaxTiltDeg:    a.MaxTiltDeg,
		MinVotes:      a.MinVotes,
	})
	if err != nil {
		return nil, err
	}

	result := needleResult{Needle: found}
	cal, err := needle.Calibrate(found.Left, found.Right, cfg.GetTolerances())
	if err != nil {
		result.CalibrationError = err.Error()
		return result, nil
	}
	result.Calibration = cal
	diameter := a.NeedleDiameterMM
	if diameter == 0 {
		diameter = cfg.GetPhysical().NeedleDiameterMM
	}
	if diameter > 0 {
		result.MetresPerPixel = cal.Scale(diameter)
	}
	return result, nil
}
