package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// DefaultBlurRadius is the Gaussian radius applied before gradients are taken.
const DefaultBlurRadius = 2.0

// EdgeOptions controls ExtractEdges.
type EdgeOptions struct {
	// Low and High are the hysteresis thresholds on the 0-255 gradient
	// scale. When both are zero they are derived from the Otsu level of
	// the blurred frame as Low = level/2 and High = level.
	Low  int
	High int

	// BlurRadius is the Gaussian radius. Zero selects DefaultBlurRadius and
	// a negative value disables blurring.
	BlurRadius float64

	// IncludeImage adds the binary edge image to the result as base64 PNG.
	IncludeImage bool
}

// EdgeResult holds the edge pixels found in a frame.
type EdgeResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Low and High are the thresholds actually used.
	Low  int `json:"low"`
	High int `json:"high"`

	// Points are the edge pixel centres in image coordinates (y down),
	// in row-major order. They are unordered as a contour; contour.Order
	// turns them into a path.
	Points []geometry.Point `json:"points"`
	Count  int              `json:"count"`

	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`

	// Mask is the binary edge image: 255 on edges, 0 elsewhere.
	Mask *image.Gray `json:"-"`
}

// ExtractEdges runs Canny edge detection over img and returns the edge pixels.
//
// # Algorithm
//
//  1. Grayscale conversion and Gaussian blur.
//  2. Sobel gradients, magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx).
//  3. Non-maximum suppression along the quantised gradient direction.
//  4. Hysteresis: pixels at or above High seed the edge set, which then grows
//     through 8-connected pixels at or above Low.
//
// With the default thresholds a dark drop on a bright backlight yields a
// single-pixel outline of the silhouette together with the needle or
// substrate edges, which callers separate with the detection package.
func ExtractEdges(img image.Image, opts EdgeOptions) (*EdgeResult, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	lum := blurredLuminance(img, opts.BlurRadius)

	low, high := opts.Low, opts.High
	if low == 0 && high == 0 {
		level := otsuLevel(lum)
		low, high = int(level)/2, int(level)
	}
	if low > high {
		low, high = high, low
	}

	magnitude, direction := sobel(lum, width, height)
	suppressed := suppressNonMaxima(magnitude, direction, width, height, borderMargin(opts.BlurRadius))
	mask := hysteresis(suppressed, width, height, float64(low)/255.0, float64(high)/255.0)

	points := make([]geometry.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask.Pix[y*mask.Stride+x] != 0 {
				points = append(points, geometry.Point{
					X: float64(x + bounds.Min.X),
					Y: float64(y + bounds.Min.Y),
				})
			}
		}
	}

	result := &EdgeResult{
		Width:  width,
		Height: height,
		Low:    low,
		High:   high,
		Points: points,
		Count:  len(points),
		Mask:   mask,
	}
	if opts.IncludeImage {
		encoded, err := EncodePNG(mask)
		if err != nil {
			return nil, err
		}
		result.ImageBase64 = encoded
		result.MimeType = "image/png"
	}
	return result, nil
}

// blurredLuminance converts img to a [0, 1] luminance grid indexed [y][x]
// from its top-left corner.
func blurredLuminance(img image.Image, radius float64) [][]float64 {
	if radius == 0 {
		radius = DefaultBlurRadius
	}

	var src image.Image = imaging.Grayscale(img)
	if radius > 0 {
		src = blur.Gaussian(src, radius)
	}

	b := src.Bounds()
	lum := make([][]float64, b.Dy())
	for y := range lum {
		lum[y] = make([]float64, b.Dx())
		for x := range lum[y] {
			lum[y][x] = float64(color.GrayModel.Convert(src.At(x+b.Min.X, y+b.Min.Y)).(color.Gray).Y) / 255.0
		}
	}
	return lum
}

func sobel(lum [][]float64, width, height int) (magnitude, direction [][]float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude = make([][]float64, height)
	direction = make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := lum[clamp(y+ky, 0, height-1)][clamp(x+kx, 0, width-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Hypot(gx, gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

// borderMargin is the band along the frame border, in pixels, where blur
// and Sobel responses see padding rather than image content.
func borderMargin(radius float64) int {
	if radius == 0 {
		radius = DefaultBlurRadius
	}
	if radius < 0 {
		return 1
	}
	return int(math.Ceil(radius)) + 1
}

func suppressNonMaxima(magnitude, direction [][]float64, width, height, margin int) [][]float64 {
	out := make([][]float64, height)
	for y := 0; y < height; y++ {
		out[y] = make([]float64, width)
		if y < margin || y >= height-margin {
			continue
		}
		for x := margin; x < width-margin; x++ {
			angle := direction[y][x]
			mag := magnitude[y][x]
			if mag == 0 {
				continue
			}

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[y][x-1], magnitude[y][x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[y-1][x-1], magnitude[y+1][x+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[y-1][x], magnitude[y+1][x]
			default:
				n1, n2 = magnitude[y-1][x+1], magnitude[y+1][x-1]
			}

			// Ties break towards the lower-index neighbour so a symmetric
			// step keeps exactly one pixel.
			if mag > n1 && mag >= n2 {
				out[y][x] = mag
			}
		}
	}
	return out
}

func hysteresis(suppressed [][]float64, width, height int, low, high float64) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	stack := make([]image.Point, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= high && suppressed[y][x] > 0 {
				mask.Pix[y*mask.Stride+x] = 255
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				i := ny*mask.Stride + nx
				if mask.Pix[i] != 0 || suppressed[ny][nx] < low || suppressed[ny][nx] == 0 {
					continue
				}
				mask.Pix[i] = 255
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return mask
}

// clamp constrains val to [min, max] for border replication.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
