package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/younglaplace"
)

// writeTestImage encodes img as a PNG in a temporary directory and returns
// its path.
func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// paint returns a white width×height frame with every pixel for which dark
// reports true set to black.
func paint(width, height int, dark func(x, y int) bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if dark(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func inDisc(x, y int, cx, cy, r float64) bool {
	return math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) < r
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response into v.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v, want one item", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

// wantError checks that resp failed with the given JSON-RPC code.
func wantError(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()

	if resp.Error == nil {
		t.Fatalf("Expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("Error code: got %d, want %d (%v)", resp.Error.Code, code, resp.Error.Data)
	}
}

// arc samples (cx + r cos t, cy - r sin t) from t = π down to 0, the top of
// a circle in image coordinates from left to right.
func arc(cx, cy, r float64, n int) []geometry.Point {
	pts := make([]geometry.Point, n)
	for i := range pts {
		theta := math.Pi * (1 - float64(i)/float64(n-1))
		pts[i] = geometry.Point{X: cx + r*math.Cos(theta), Y: cy - r*math.Sin(theta)}
	}
	return pts
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"not an object"`)}

	resp := s.handleRequest(context.Background(), req)
	wantError(t, resp, -32602)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "image_sample_color", map[string]interface{}{})
	wantError(t, resp, -32602)
}

func TestHandleToolsCall_ContourOrder(t *testing.T) {
	s := newTestServer(t)

	t.Run("orders shuffled points", func(t *testing.T) {
		xs := []float64{4, 0, 7, 2, 9, 1, 5, 3, 8, 6}
		points := make([]geometry.Point, len(xs))
		for i, x := range xs {
			points[i] = geometry.Point{X: x, Y: 10}
		}

		var got struct {
			Points    []geometry.Point `json:"points"`
			Discarded int              `json:"discarded"`
		}
		decodeResult(t, callTool(t, s, "contour_order", map[string]interface{}{
			"points": points,
			"start":  map[string]float64{"x": 0, "y": 10},
			"jump":   "none",
		}), &got)

		if len(got.Points) != len(xs) {
			t.Fatalf("Points: got %d, want %d", len(got.Points), len(xs))
		}
		for i, p := range got.Points {
			if p.X != float64(i) {
				t.Errorf("Points[%d].X: got %v, want %d", i, p.X, i)
			}
		}
		if got.Discarded != 0 {
			t.Errorf("Discarded: got %d, want 0", got.Discarded)
		}
	})

	t.Run("literal jump truncates", func(t *testing.T) {
		points := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 20, Y: 0}}
		var got struct {
			Points    []geometry.Point `json:"points"`
			Discarded int              `json:"discarded"`
		}
		decodeResult(t, callTool(t, s, "contour_order", map[string]interface{}{
			"points":  points,
			"jump":    "literal",
			"jump_px": 5,
		}), &got)
		if len(got.Points) != 3 || got.Discarded != 1 {
			t.Errorf("got %d points and %d discarded, want 3 and 1", len(got.Points), got.Discarded)
		}
	})

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"literal without jump_px", map[string]interface{}{"points": []geometry.Point{{X: 1}}, "jump": "literal"}, -32602},
		{"unknown jump mode", map[string]interface{}{"points": []geometry.Point{{X: 1}}, "jump": "sometimes"}, -32602},
		{"malformed points", map[string]interface{}{"points": "abc"}, -32602},
		{"empty contour", map[string]interface{}{"points": []geometry.Point{}}, -32000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, callTool(t, s, "contour_order", tt.args), tt.code)
		})
	}
}

func TestHandleToolsCall_ContourSplit(t *testing.T) {
	s := newTestServer(t)
	var got struct {
		Left  []geometry.Point `json:"left"`
		Right []geometry.Point `json:"right"`
		ApexX float64          `json:"apex_x"`
	}
	decodeResult(t, callTool(t, s, "contour_split", map[string]interface{}{
		"points": arc(50, 40, 20, 201),
	}), &got)

	if math.Abs(got.ApexX-50) > 0.5 {
		t.Errorf("ApexX: got %v, want 50", got.ApexX)
	}
	if len(got.Left) == 0 || len(got.Right) == 0 {
		t.Errorf("halves: got %d and %d points", len(got.Left), len(got.Right))
	}
}

func TestHandleToolsCall_NeedleCalibrate(t *testing.T) {
	s := newTestServer(t)
	var left, right []geometry.Point
	for y := 0; y < 30; y++ {
		left = append(left, geometry.Point{X: 40, Y: float64(y)})
		right = append(right, geometry.Point{X: 60, Y: float64(y)})
	}

	var got struct {
		Diameter       float64 `json:"diameter_px"`
		Converged      bool    `json:"converged"`
		MetresPerPixel float64 `json:"metres_per_pixel"`
	}
	decodeResult(t, callTool(t, s, "needle_calibrate", map[string]interface{}{
		"left":               left,
		"right":              right,
		"needle_diameter_mm": 1.0,
	}), &got)

	if math.Abs(got.Diameter-20) > 1e-6 {
		t.Errorf("Diameter: got %v, want 20", got.Diameter)
	}
	if !got.Converged {
		t.Error("calibration did not converge")
	}
	if math.Abs(got.MetresPerPixel-5e-5) > 1e-12 {
		t.Errorf("MetresPerPixel: got %g, want 5e-5", got.MetresPerPixel)
	}

	wantError(t, callTool(t, s, "needle_calibrate", map[string]interface{}{
		"left":  left[:1],
		"right": right,
	}), -32000)
}

func TestHandleToolsCall_PendantProfile(t *testing.T) {
	s := newTestServer(t)

	t.Run("sphere", func(t *testing.T) {
		var got struct {
			SPoints int `json:"s_points"`
			Samples []struct {
				S float64 `json:"s"`
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"samples"`
		}
		decodeResult(t, callTool(t, s, "pendant_profile", map[string]interface{}{
			"bond": 0, "max_s": 1.0, "s_points": 10,
		}), &got)

		if got.SPoints != 10 || len(got.Samples) != 11 {
			t.Fatalf("got %d intervals and %d samples, want 10 and 11", got.SPoints, len(got.Samples))
		}
		last := got.Samples[10]
		if math.Abs(last.S-1) > 1e-12 {
			t.Errorf("last s: got %v, want 1", last.S)
		}
		if math.Abs(last.X-math.Sin(1)) > 1e-4 || math.Abs(last.Y-(1-math.Cos(1))) > 1e-4 {
			t.Errorf("last sample: got (%v, %v), want (%v, %v)", last.X, last.Y, math.Sin(1), 1-math.Cos(1))
		}
	})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing bond", map[string]interface{}{"max_s": 1.0}},
		{"fractional s_points", map[string]interface{}{"bond": 0.1, "s_points": 10.5}},
		{"single interval", map[string]interface{}{"bond": 0.1, "s_points": 1}},
		{"negative max_s", map[string]interface{}{"bond": 0.1, "max_s": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, callTool(t, s, "pendant_profile", tt.args), -32602)
		})
	}
}

// pendantContour samples a Bo = 0.5 drop scaled to radius pixels with its
// apex at (x0, apexY) in y-up coordinates, then flips it into an image of
// the given height.
func pendantContour(t *testing.T, x0, apexY, radius, height float64) []geometry.Point {
	t.Helper()

	prof, err := younglaplace.Generate(0.5, 3, 60)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var pts []geometry.Point
	for i := 60; i >= 1; i-- {
		row := prof.Rows[i]
		pts = append(pts, geometry.Point{X: x0 - radius*row[younglaplace.ColX], Y: apexY + radius*row[younglaplace.ColY]})
	}
	for i := 1; i <= 60; i++ {
		row := prof.Rows[i]
		pts = append(pts, geometry.Point{X: x0 + radius*row[younglaplace.ColX], Y: apexY + radius*row[younglaplace.ColY]})
	}
	return geometry.FlipY(pts, height)
}

func TestHandleToolsCall_PendantFit(t *testing.T) {
	s := newTestServer(t)
	points := pendantContour(t, 100, 20, 50, 200)

	var got struct {
		Fit struct {
			State     string    `json:"state"`
			Params    []float64 `json:"params"`
			StopFlags []string  `json:"stop_flags"`
		} `json:"fit"`
		Properties *struct {
			IFT float64 `json:"ift_mn_per_m"`
		} `json:"properties"`
	}
	decodeResult(t, callTool(t, s, "pendant_fit", map[string]interface{}{
		"points":         points,
		"image_height":   200,
		"initial_params": []float64{100, 20, 50, 0.5, 0},
		"max_s":          4,
		"config": map[string]interface{}{
			"delta_rho":        1000,
			"metres_per_pixel": 2e-5,
		},
	}), &got)

	if len(got.Fit.Params) != younglaplace.NumParams {
		t.Fatalf("Params: got %v", got.Fit.Params)
	}
	if math.Abs(got.Fit.Params[younglaplace.ParamBond]-0.5) > 1e-3 {
		t.Errorf("bond: got %v, want 0.5", got.Fit.Params[younglaplace.ParamBond])
	}
	if math.Abs(got.Fit.Params[younglaplace.ParamRadius]-50) > 0.05 {
		t.Errorf("radius: got %v, want 50", got.Fit.Params[younglaplace.ParamRadius])
	}
	if len(got.Fit.StopFlags) == 0 {
		t.Error("fit reported no stop flags")
	}
	if got.Properties == nil || !(got.Properties.IFT > 0) {
		t.Errorf("Properties: got %+v, want positive tension", got.Properties)
	}

	t.Run("missing image height", func(t *testing.T) {
		wantError(t, callTool(t, s, "pendant_fit", map[string]interface{}{"points": points}), -32602)
	})
	t.Run("short initial params", func(t *testing.T) {
		wantError(t, callTool(t, s, "pendant_fit", map[string]interface{}{
			"points": points, "image_height": 200, "initial_params": []float64{1, 2},
		}), -32602)
	})
	t.Run("invalid tolerance override", func(t *testing.T) {
		wantError(t, callTool(t, s, "pendant_fit", map[string]interface{}{
			"points": points, "image_height": 200, "config": map[string]interface{}{"delta_tol": -1},
		}), -32602)
	})
	t.Run("too few points", func(t *testing.T) {
		wantError(t, callTool(t, s, "pendant_fit", map[string]interface{}{
			"points": points[:3], "image_height": 200,
		}), -32000)
	})
	t.Run("singular fit keeps result", func(t *testing.T) {
		same := make([]geometry.Point, 20)
		for i := range same {
			same[i] = geometry.Point{X: 0.5, Y: 0.7}
		}
		var failed struct {
			Fit struct {
				State  string    `json:"state"`
				Params []float64 `json:"params"`
				Error  string    `json:"error"`
			} `json:"fit"`
		}
		decodeResult(t, callTool(t, s, "pendant_fit", map[string]interface{}{
			"points":         same,
			"image_height":   1,
			"initial_params": []float64{0, 0, 1, 1, 0},
			"max_s":          4,
		}), &failed)
		if failed.Fit.State != "UNEXPECTED_EXCEPTION" {
			t.Errorf("State: got %v, want UNEXPECTED_EXCEPTION", failed.Fit.State)
		}
		if failed.Fit.Error == "" {
			t.Error("Error: got empty, want the fault message")
		}
		if len(failed.Fit.Params) != younglaplace.NumParams {
			t.Errorf("Params: got %v", failed.Fit.Params)
		}
	})
}

func TestHandleToolsCall_PendantProperties(t *testing.T) {
	s := newTestServer(t)
	args := map[string]interface{}{
		"params":        []float64{0, 0, 100, 0.3, 0},
		"max_arclength": 3.0,
		"config": map[string]interface{}{
			"delta_rho":          1000,
			"metres_per_pixel":   1e-5,
			"needle_diameter_mm": 0.7,
		},
	}

	var got struct {
		IFT         float64 `json:"ift_mn_per_m"`
		Volume      float64 `json:"volume_ul"`
		SurfaceArea float64 `json:"surface_area_mm2"`
		Worthington float64 `json:"worthington"`
	}
	decodeResult(t, callTool(t, s, "pendant_properties", args), &got)

	if !(got.IFT > 0) || !(got.Volume > 0) || !(got.SurfaceArea > 0) {
		t.Errorf("properties: got %+v, want positive values", got)
	}
	if !(got.Worthington > 0) {
		t.Errorf("Worthington: got %v, want positive", got.Worthington)
	}
	if s.volsur.Len() == 0 {
		t.Error("volume and area were not cached")
	}

	// no pixel scale
	wantError(t, callTool(t, s, "pendant_properties", map[string]interface{}{
		"params":        []float64{0, 0, 100, 0.3, 0},
		"max_arclength": 3.0,
	}), -32000)
}

func TestHandleToolsCall_ContactAngleFit(t *testing.T) {
	s := newTestServer(t)
	baseline := geometry.Horizontal(40)

	var got struct {
		Results []struct {
			Method string `json:"method"`
			Result *struct {
				Angles struct {
					LeftDeg  float64 `json:"left_deg"`
					RightDeg float64 `json:"right_deg"`
				} `json:"angles"`
			} `json:"result"`
			Error string `json:"error"`
		} `json:"results"`
	}
	decodeResult(t, callTool(t, s, "contact_angle_fit", map[string]interface{}{
		"points":   arc(50, 40, 20, 200),
		"baseline": baseline,
		"methods":  []string{"circle", "ellipse"},
	}), &got)

	if len(got.Results) != 2 {
		t.Fatalf("Results: got %d, want 2", len(got.Results))
	}
	for _, r := range got.Results {
		if r.Result == nil {
			t.Errorf("%s failed: %s", r.Method, r.Error)
			continue
		}
		if math.Abs(r.Result.Angles.LeftDeg-90) > 0.5 || math.Abs(r.Result.Angles.RightDeg-90) > 0.5 {
			t.Errorf("%s angles: got %v/%v, want 90/90", r.Method, r.Result.Angles.LeftDeg, r.Result.Angles.RightDeg)
		}
	}

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown method", map[string]interface{}{"points": arc(50, 40, 20, 50), "baseline": baseline, "methods": []string{"spline"}}},
		{"unknown strategy", map[string]interface{}{"points": arc(50, 40, 20, 50), "baseline": baseline, "strategy": "middle"}},
		{"missing baseline", map[string]interface{}{"points": arc(50, 40, 20, 50)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, callTool(t, s, "contact_angle_fit", tt.args), -32602)
		})
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, paint(120, 100, func(x, y int) bool { return inDisc(x, y, 60, 50, 30) }))

	var got struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Format    string `json:"format"`
		Grayscale bool   `json:"grayscale"`
	}
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &got)

	if got.Width != 120 || got.Height != 100 {
		t.Errorf("size: got %dx%d, want 120x100", got.Width, got.Height)
	}
	if got.Format != "png" {
		t.Errorf("Format: got %s, want png", got.Format)
	}
	if !got.Grayscale {
		t.Error("Grayscale: got false, want true")
	}

	t.Run("missing path", func(t *testing.T) {
		wantError(t, callTool(t, s, "image_load", map[string]interface{}{}), -32602)
	})
	t.Run("non-existent file", func(t *testing.T) {
		wantError(t, callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/frame.png"}), -32000)
	})
}

func TestHandleToolsCall_ImageCrop(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, paint(120, 100, func(x, y int) bool { return false }))

	var got struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		OffsetX     int    `json:"offset_x"`
		ImageBase64 string `json:"image_base64"`
	}
	decodeResult(t, callTool(t, s, "image_crop", map[string]interface{}{
		"path": path, "x1": 10, "y1": 20, "x2": 50, "y2": 40, "scale": 2.0,
	}), &got)

	if got.Width != 80 || got.Height != 40 {
		t.Errorf("size: got %dx%d, want 80x40", got.Width, got.Height)
	}
	if got.OffsetX != 10 {
		t.Errorf("OffsetX: got %d, want 10", got.OffsetX)
	}
	if got.ImageBase64 == "" {
		t.Error("ImageBase64 is empty")
	}

	wantError(t, callTool(t, s, "image_crop", map[string]interface{}{
		"path": path, "x1": 10, "y1": 20, "x2": 500, "y2": 40,
	}), -32000)
}

func TestHandleToolsCall_ImageExtractEdges(t *testing.T) {
	s := newTestServer(t)
	path := writeTestImage(t, paint(120, 100, func(x, y int) bool { return inDisc(x, y, 60, 50, 30) }))

	type edges struct {
		Method  string           `json:"method"`
		Points  []geometry.Point `json:"points"`
		Count   int              `json:"count"`
		OffsetX int              `json:"offset_x"`
	}
	checkDisc := func(t *testing.T, got edges, tol float64) {
		t.Helper()
		if got.Count == 0 || got.Count != len(got.Points) {
			t.Fatalf("Count: got %d with %d points", got.Count, len(got.Points))
		}
		for _, p := range got.Points {
			d := math.Hypot(p.X+0.5-60, p.Y+0.5-50)
			if math.Abs(d-30) > tol {
				t.Errorf("point %v is %.2f from the centre, want 30", p, d)
				return
			}
		}
	}

	tests := []struct {
		name string
		args map[string]interface{}
		tol  float64
	}{
		{"canny", map[string]interface{}{"path": path}, 2.5},
		{"threshold", map[string]interface{}{"path": path, "method": "threshold"}, 1.5},
		{"canny in region", map[string]interface{}{
			"path":   path,
			"region": map[string]int{"x1": 20, "y1": 10, "x2": 100, "y2": 90},
		}, 2.5},
		{"largest component", map[string]interface{}{"path": path, "largest_component": true}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got edges
			decodeResult(t, callTool(t, s, "image_extract_edges", tt.args), &got)
			checkDisc(t, got, tt.tol)
		})
	}

	t.Run("region offset", func(t *testing.T) {
		var got edges
		decodeResult(t, callTool(t, s, "image_extract_edges", map[string]interface{}{
			"path":   path,
			"region": map[string]int{"x1": 20, "y1": 10, "x2": 100, "y2": 90},
		}), &got)
		if got.OffsetX != 20 {
			t.Errorf("OffsetX: got %d, want 20", got.OffsetX)
		}
	})

	errs := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown method", map[string]interface{}{"path": path, "method": "sobel"}},
		{"level out of range", map[string]interface{}{"path": path, "method": "threshold", "level": 300}},
		{"region outside image", map[string]interface{}{"path": path, "region": map[string]int{"x1": 0, "y1": 0, "x2": 500, "y2": 50}}},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, callTool(t, s, "image_extract_edges", tt.args), -32602)
		})
	}
}

func TestHandleToolsCall_ImageDetectBaseline(t *testing.T) {
	s := newTestServer(t)
	// a cap resting on a substrate that fills the bottom of the frame
	path := writeTestImage(t, paint(160, 120, func(x, y int) bool {
		return y >= 80 || inDisc(x, y, 80, 80, 25)
	}))

	var got struct {
		Baseline   geometry.Line    `json:"baseline"`
		Slope      float64          `json:"slope"`
		DropPoints []geometry.Point `json:"drop_points"`
	}
	decodeResult(t, callTool(t, s, "image_detect_baseline", map[string]interface{}{
		"path":        path,
		"drop_points": true,
	}), &got)

	if y := got.Baseline.YAt(20); math.Abs(y-79.5) > 1.5 {
		t.Errorf("baseline at x=20: got %.2f, want about 79.5", y)
	}
	if math.Abs(got.Slope) > 0.02 {
		t.Errorf("Slope: got %g, want 0", got.Slope)
	}
	if len(got.DropPoints) == 0 {
		t.Fatal("no drop points above the baseline")
	}
	for _, p := range got.DropPoints {
		if p.Y >= got.Baseline.YAt(p.X) {
			t.Errorf("drop point %v is not above the baseline", p)
			break
		}
	}
}

func TestHandleToolsCall_ImageDetectNeedle(t *testing.T) {
	s := newTestServer(t)
	// a 20 px needle with a drop hanging from it
	path := writeTestImage(t, paint(120, 140, func(x, y int) bool {
		return (x >= 50 && x < 70 && y < 75) || inDisc(x, y, 60, 95, 25)
	}))

	var got struct {
		Needle struct {
			WidthPx float64 `json:"width_px"`
		} `json:"needle"`
		Calibration *struct {
			Diameter float64 `json:"diameter_px"`
		} `json:"calibration"`
		MetresPerPixel float64 `json:"metres_per_pixel"`
	}
	decodeResult(t, callTool(t, s, "image_detect_needle", map[string]interface{}{
		"path":               path,
		"max_y":              60,
		"needle_diameter_mm": 2.0,
	}), &got)

	if math.Abs(got.Needle.WidthPx-20) > 2 {
		t.Errorf("WidthPx: got %v, want about 20", got.Needle.WidthPx)
	}
	if got.Calibration == nil {
		t.Fatal("no calibration")
	}
	if math.Abs(got.Calibration.Diameter-20) > 2 {
		t.Errorf("Diameter: got %v, want about 20", got.Calibration.Diameter)
	}
	if math.Abs(got.MetresPerPixel-1e-4) > 1.2e-5 {
		t.Errorf("MetresPerPixel: got %g, want about 1e-4", got.MetresPerPixel)
	}

	// a blank frame has no needle
	blank := writeTestImage(t, paint(60, 60, func(x, y int) bool { return false }))
	wantError(t, callTool(t, s, "image_detect_needle", map[string]interface{}{"path": blank}), -32000)
}

func TestHandleToolsCall_RenderFit(t *testing.T) {
	s := newTestServer(t)

	type rendered struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	check := func(t *testing.T, got rendered) {
		t.Helper()
		if got.ImageBase64 == "" || got.MimeType != "image/png" {
			t.Errorf("image: got %d bytes of %q", len(got.ImageBase64), got.MimeType)
		}
		if got.Width <= 0 || got.Height <= 0 {
			t.Errorf("size: got %dx%d", got.Width, got.Height)
		}
	}

	t.Run("sessile", func(t *testing.T) {
		var got rendered
		decodeResult(t, callTool(t, s, "render_fit", map[string]interface{}{
			"mode":     "sessile",
			"points":   arc(50, 40, 20, 100),
			"baseline": geometry.Horizontal(40),
			"methods":  []string{"circle", "tangent"},
			"order":    true,
		}), &got)
		check(t, got)
	})

	t.Run("pendant", func(t *testing.T) {
		var got rendered
		decodeResult(t, callTool(t, s, "render_fit", map[string]interface{}{
			"mode":          "pendant",
			"points":        pendantContour(t, 100, 20, 50, 200),
			"image_height":  200,
			"params":        []float64{100, 20, 50, 0.5, 0},
			"max_arclength": 3.0,
			"fit_color":     "#1f77b4",
		}), &got)
		check(t, got)
	})

	errs := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown mode", map[string]interface{}{"mode": "spinning", "points": arc(50, 40, 20, 10)}},
		{"pendant without params", map[string]interface{}{"mode": "pendant", "points": arc(50, 40, 20, 10), "image_height": 100}},
		{"sessile without baseline", map[string]interface{}{"mode": "sessile", "points": arc(50, 40, 20, 10)}},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, callTool(t, s, "render_fit", tt.args), -32602)
		})
	}
}

func TestHandleToolsCall_AnalyzeFrames(t *testing.T) {
	s := newTestServer(t)
	baseline := geometry.Horizontal(40)

	var got struct {
		Frames []struct {
			ID            string `json:"id"`
			Error         string `json:"error"`
			ContactAngles []struct {
				Method string `json:"method"`
				Error  string `json:"error"`
			} `json:"contact_angles"`
		} `json:"frames"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	decodeResult(t, callTool(t, s, "analyze_frames", map[string]interface{}{
		"frames": []map[string]interface{}{
			{"id": "empty", "mode": "sessile", "contour": []geometry.Point{}, "baseline": baseline},
			{"id": "cap", "mode": "sessile", "contour": arc(50, 40, 20, 200), "baseline": baseline, "methods": []string{"circle"}},
		},
		"workers": 2,
	}), &got)

	if got.Succeeded != 1 || got.Failed != 1 {
		t.Errorf("succeeded/failed: got %d/%d, want 1/1", got.Succeeded, got.Failed)
	}
	if len(got.Frames) != 2 {
		t.Fatalf("Frames: got %d, want 2", len(got.Frames))
	}
	if got.Frames[0].ID != "empty" || got.Frames[0].Error == "" {
		t.Errorf("frame 0: got id %q error %q, want a failed empty frame", got.Frames[0].ID, got.Frames[0].Error)
	}
	if got.Frames[1].ID != "cap" || got.Frames[1].Error != "" {
		t.Errorf("frame 1: got id %q error %q", got.Frames[1].ID, got.Frames[1].Error)
	}
	if len(got.Frames[1].ContactAngles) != 1 || got.Frames[1].ContactAngles[0].Error != "" {
		t.Errorf("frame 1 contact angles: got %+v", got.Frames[1].ContactAngles)
	}

	t.Run("no frames", func(t *testing.T) {
		wantError(t, callTool(t, s, "analyze_frames", map[string]interface{}{"frames": []interface{}{}}), -32602)
	})
	t.Run("bad method name", func(t *testing.T) {
		wantError(t, callTool(t, s, "analyze_frames", map[string]interface{}{
			"frames": []map[string]interface{}{{"mode": "sessile", "contour": arc(50, 40, 20, 20), "methods": []string{"spline"}}},
		}), -32602)
	})
}
