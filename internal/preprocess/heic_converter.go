package preprocess

import (
	"context"
	"fmt"
	"os"

	"github.com/joseph-ayodele/salesbook/internal/common"
)

// convertHEIC converts a HEIC/HEIF upload to PNG using the configured converter.
// converter: "heif-convert" | "magick" | "sips"
func (p *Preprocessor) convertHEIC(ctx context.Context, ws *workspace, heic []byte) ([]byte, error) {
	in, err := ws.write("upload.heic", heic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}
	out := ws.path("converted.png")

	var args []string
	switch p.cfg.HeicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, fmt.Errorf("%w: HEIC converter %q is not one of heif-convert | magick | sips",
			common.ErrUnsupportedFormat, p.cfg.HeicConverter)
	}

	if _, errb, err := p.runner.Run(ctx, p.cfg.HeicConverter, args...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", common.ErrExtractionFailed, p.cfg.HeicConverter, err, truncate(string(errb), 512))
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: HEIC conversion produced no output: %v", common.ErrExtractionFailed, err)
	}
	return png, nil
}
