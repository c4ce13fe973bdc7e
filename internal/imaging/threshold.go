package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// SilhouetteResult holds the outline of the dark regions of a thresholded frame.
type SilhouetteResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Level is the threshold used: pixels darker than it belong to the drop.
	Level uint8 `json:"level"`

	// Points are the dark pixels that touch a bright 4-neighbour, in image
	// coordinates and row-major order.
	Points []geometry.Point `json:"points"`
	Count  int              `json:"count"`

	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`

	// Mask is the thresholded frame: 0 for the drop, 255 for background.
	Mask *image.Gray `json:"-"`
}

// OtsuLevel returns the grey level that maximises the between-class
// variance of img's luminance histogram.
func OtsuLevel(img image.Image) uint8 {
	return otsuLevel(blurredLuminance(img, -1))
}

// Silhouette binarises img. A level of zero selects OtsuLevel.
func Silhouette(img image.Image, level uint8) (*image.Gray, uint8) {
	if level == 0 {
		level = OtsuLevel(img)
	}
	return segment.Threshold(imaging.Grayscale(img), level), level
}

// ExtractSilhouette thresholds img and traces the boundary of its dark
// regions. Backlit drops and needles are dark, so the boundary is the drop
// profile plus the needle sides. Pixels on the image border are only
// reported where they touch a bright pixel inside the frame, so a needle
// entering from the top edge does not contribute a spurious segment.
func ExtractSilhouette(img image.Image, level uint8, includeImage bool) (*SilhouetteResult, error) {
	mask, level := Silhouette(img, level)
	origin := img.Bounds().Min

	points := boundary(mask)
	for i := range points {
		points[i].X += float64(origin.X)
		points[i].Y += float64(origin.Y)
	}

	b := mask.Bounds()
	result := &SilhouetteResult{
		Width:  b.Dx(),
		Height: b.Dy(),
		Level:  level,
		Points: points,
		Count:  len(points),
		Mask:   mask,
	}
	if includeImage {
		encoded, err := EncodePNG(mask)
		if err != nil {
			return nil, err
		}
		result.ImageBase64 = encoded
		result.MimeType = "image/png"
	}
	return result, nil
}

// boundary returns the dark pixels of mask with a bright 4-neighbour,
// relative to the mask's top-left corner.
func boundary(mask *image.Gray) []geometry.Point {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	dark := func(x, y int) bool {
		return mask.GrayAt(x+b.Min.X, y+b.Min.Y).Y == 0
	}

	points := make([]geometry.Point, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !dark(x, y) {
				continue
			}
			edge := (x > 0 && !dark(x-1, y)) ||
				(x < w-1 && !dark(x+1, y)) ||
				(y > 0 && !dark(x, y-1)) ||
				(y < h-1 && !dark(x, y+1))
			if edge {
				points = append(points, geometry.Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return points
}

// otsuLevel works on a [0, 1] luminance grid. A uniform grid returns 0.
func otsuLevel(lum [][]float64) uint8 {
	var hist [256]float64
	var total float64
	for _, row := range lum {
		for _, v := range row {
			hist[clamp(int(v*255+0.5), 0, 255)]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * n
	}

	var (
		best     float64
		level    int
		weightBg float64
		sumBg    float64
	)
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t) * hist[t]
		meanBg := sumBg / weightBg
		meanFg := (sumAll - sumBg) / weightFg
		between := weightBg * weightFg * (meanBg - meanFg) * (meanBg - meanFg)
		if between > best {
			best = between
			level = t
		}
	}
	// segment.Threshold keeps values >= level bright, so the split sits
	// one above the last background bin.
	if best == 0 {
		return 0
	}
	return uint8(clamp(level+1, 1, 255))
}
