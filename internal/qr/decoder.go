package qr

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/joseph-ayodele/salesbook/internal/common"
)

// ErrNoQRCode means no readable symbol was found, including corrupt symbols.
var ErrNoQRCode = common.ErrDecodeFailed

// Decoder reads one QR symbol from a raster image.
type Decoder struct {
	logger *slog.Logger
}

func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

type decodeResult struct {
	text string
	err  error
}

// Decode yields exactly one outcome: the payload, ErrNoQRCode, or ctx's error
// when the attempt is abandoned.
func (d *Decoder) Decode(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := make(chan decodeResult, 1)
	go func() {
		text, err := decodeImage(img)
		out <- decodeResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-out:
		if res.err != nil {
			d.logger.Debug("qr.decode.miss", "error", res.err)
			return "", res.err
		}
		return res.text, nil
	}
}

func decodeImage(img image.Image) (text string, err error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrNoQRCode
	}
	// gozxing panics on some degenerate inputs; a bad frame is just a miss.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNoQRCode, r)
		}
	}()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxqrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoQRCode, err)
	}
	return res.GetText(), nil
}
