package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded frames kept by NewImageCache
// when a non-positive size is requested.
const DefaultCacheSize = 16

// ImageCache keeps recently decoded drop images keyed by file path.
//
// A batch of frames from the same experiment is usually visited several
// times (load, crop, edge extraction, baseline detection), so the decoded
// image is kept in a bounded LRU rather than re-read from disk each time.
// The least recently used frame is dropped once the cache is full.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(32)
//	img, err := cache.Load("/data/run-04/frame-0001.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/data/run-04/frame-0001.png")
type ImageCache struct {
	images *lru.Cache[string, image.Image]
}

// NewImageCache creates an empty cache holding at most size images.
// A size of zero or less selects DefaultCacheSize.
func NewImageCache(size int) *ImageCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	images, _ := lru.New[string, image.Image](size)
	return &ImageCache{images: images}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: File path to the image. PNG, JPEG, and GIF are supported.
//
// Returns:
//   - image.Image: The decoded frame.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// The exact path string is the cache key, so a relative and an absolute
// path to the same file occupy two entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	if img, ok := c.images.Get(path); ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.images.Add(path, img)
	return img, nil
}

// Clear removes every image from the cache.
func (c *ImageCache) Clear() {
	c.images.Purge()
}

// Evict removes one image by the path it was loaded with. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.images.Remove(path)
}

// Len reports how many images are currently cached.
func (c *ImageCache) Len() int {
	return c.images.Len()
}

// ImageInfo contains metadata about a drop image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels. Contours taken from this image
	// are flipped about this height before a Young-Laplace fit.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", or "unknown", from the file extension.
	Format string `json:"format"`

	// Grayscale is true when the decoded image has a single channel, which
	// is the usual case for monochrome tensiometer cameras.
	Grayscale bool `json:"grayscale"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and reports its metadata.
//
// Parameters:
//   - cache: The image cache to load through. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Dimensions, format and channel layout.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	grayscale := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.Gray:
		grayscale = true
	case *image.Gray16:
		grayscale = true
		colorDepth = "16-bit"
	case *image.RGBA64, *image.NRGBA64:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		Grayscale:     grayscale,
		ColorDepth:    colorDepth,
		FileSizeBytes: stat.Size(),
	}, nil
}
