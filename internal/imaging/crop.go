package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// CropResult contains a cropped drop region and how it maps back to the
// source frame.
type CropResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// OffsetX and OffsetY are the source coordinates of the crop's
	// top-left pixel.
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`

	// Scale is the resize factor applied after cropping.
	Scale float64 `json:"scale"`

	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`

	// Image is the cropped (and possibly resized) image, with its origin at (0,0).
	Image image.Image `json:"-"`
}

// ToSource maps points measured in the cropped image back into source
// frame coordinates.
func (r *CropResult) ToSource(points []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = geometry.Point{
			X: p.X/r.Scale + float64(r.OffsetX),
			Y: p.Y/r.Scale + float64(r.OffsetY),
		}
	}
	return out
}

// CropImage extracts the region (x1,y1)-(x2,y2) from img and optionally
// resizes it with Lanczos resampling. A scale of 1 or less than or equal
// to zero leaves the size unchanged. The image is not encoded.
func CropImage(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale <= 0 {
		scale = 1
	}
	if scale != 1 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g leaves an empty image", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return &CropResult{
		Width:   cropped.Bounds().Dx(),
		Height:  cropped.Bounds().Dy(),
		OffsetX: x1,
		OffsetY: y1,
		Scale:   scale,
		Image:   cropped,
	}, nil
}

// Crop is CropImage followed by PNG encoding of the result.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	result, err := CropImage(img, x1, y1, x2, y2, scale)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodePNG(result.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}
	result.ImageBase64 = encoded
	result.MimeType = "image/png"
	return result, nil
}
