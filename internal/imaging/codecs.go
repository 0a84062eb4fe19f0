package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/salesbook/internal/common"
)

// DefaultMaxPixels bounds the declared dimensions of any image we decode.
const DefaultMaxPixels = 40_000_000

// Decode decodes any raster format with a registered decoder. The header is read
// first and images declaring more than maxPixels pixels are rejected with
// common.ErrUnsupportedFormat before any pixel memory is allocated. A
// non-positive maxPixels means DefaultMaxPixels.
func Decode(buf []byte, maxPixels int) (image.Image, string, error) {
	if err := CheckSize(buf, maxPixels); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// CheckSize reads only the image header and enforces the pixel budget.
func CheckSize(buf []byte, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", common.ErrUnsupportedFormat, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: image %dx%d exceeds %d pixels", common.ErrUnsupportedFormat, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// Sniff reports the registered raster format of buf without decoding pixels.
func Sniff(buf []byte) (string, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return "", false
	}
	return format, true
}
