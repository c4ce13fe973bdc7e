package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

func TestExtractEdges_Disc(t *testing.T) {
	const cx, cy, r = 50.0, 50.0, 20.0
	img := createDropImage(100, 100, cx, cy, r)

	result, err := ExtractEdges(img, EdgeOptions{})
	if err != nil {
		t.Fatalf("ExtractEdges failed: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
	if result.Count != len(result.Points) {
		t.Errorf("Count: got %d, want %d", result.Count, len(result.Points))
	}
	// A one-pixel outline of the disc is close to its circumference.
	if result.Count < 60 || result.Count > 400 {
		t.Errorf("Count: got %d, want roughly %0.f", result.Count, 2*math.Pi*r)
	}
	if result.Low > result.High {
		t.Errorf("thresholds out of order: low=%d high=%d", result.Low, result.High)
	}

	center := geometry.Point{X: cx, Y: cy}
	for _, p := range result.Points {
		d := p.Distance(center)
		if math.Abs(d-r) > 2.5 {
			t.Fatalf("edge point %v at distance %.2f, want %.1f ± 2.5", p, d, r)
		}
	}
	if result.ImageBase64 != "" {
		t.Error("ImageBase64 should be empty unless requested")
	}
}

func TestExtractEdges_UniformImage(t *testing.T) {
	img := createUniformImage(50, 50, color.RGBA{128, 128, 128, 255})

	result, err := ExtractEdges(img, EdgeOptions{})
	if err != nil {
		t.Fatalf("ExtractEdges failed: %v", err)
	}
	if result.Count != 0 {
		t.Errorf("uniform image: got %d edge points, want 0", result.Count)
	}
}

func TestExtractEdges_Thresholds(t *testing.T) {
	img := createDropImage(80, 80, 40, 40, 15)

	tests := []struct {
		name      string
		low, high int
	}{
		{"low thresholds", 10, 50},
		{"medium thresholds", 50, 150},
		{"swapped thresholds", 150, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExtractEdges(img, EdgeOptions{Low: tt.low, High: tt.high})
			if err != nil {
				t.Fatalf("ExtractEdges failed: %v", err)
			}
			if result.Count == 0 {
				t.Error("no edges found on a high-contrast disc")
			}
			if result.Low > result.High {
				t.Errorf("thresholds out of order: low=%d high=%d", result.Low, result.High)
			}
		})
	}
}

func TestExtractEdges_IncludeImage(t *testing.T) {
	img := createDropImage(60, 40, 30, 20, 10)

	result, err := ExtractEdges(img, EdgeOptions{IncludeImage: true})
	if err != nil {
		t.Fatalf("ExtractEdges failed: %v", err)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	edgeImg, err := png.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if b := edgeImg.Bounds(); b.Dx() != 60 || b.Dy() != 40 {
		t.Errorf("decoded image dimensions: got %dx%d, want 60x40", b.Dx(), b.Dy())
	}

	// Every reported point is white in the mask.
	for _, p := range result.Points {
		if v := result.Mask.GrayAt(int(p.X), int(p.Y)).Y; v != 255 {
			t.Fatalf("mask at %v: got %d, want 255", p, v)
		}
	}
}

func TestExtractEdges_SubImageOrigin(t *testing.T) {
	full := createDropImage(120, 120, 60, 60, 20)
	sub := full.SubImage(image.Rect(20, 20, 100, 100))

	result, err := ExtractEdges(sub, EdgeOptions{})
	if err != nil {
		t.Fatalf("ExtractEdges failed: %v", err)
	}
	if result.Count == 0 {
		t.Fatal("no edges found")
	}

	// Points stay in the parent frame's coordinates.
	center := geometry.Point{X: 60, Y: 60}
	for _, p := range result.Points {
		if d := p.Distance(center); math.Abs(d-20) > 2.5 {
			t.Fatalf("edge point %v at distance %.2f from parent centre, want 20 ± 2.5", p, d)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := clamp(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}
