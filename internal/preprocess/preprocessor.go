// Package preprocess turns an uploaded file into the normalized greyscale image
// the QR decoder reads.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/imaging"
)

type Config struct {
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	HeicConverter string // "magick" | "heif-convert" | "sips"; if empty -> "magick"
	RenderEdge    int    // long edge of the rendered PDF page in pixels, default 1700
	MaxPixels     int    // pixel budget for any decoded raster, default imaging.DefaultMaxPixels
	TargetSize    int    // normalized edge length, default 600
	TempDir       string // parent of per-request workspaces; if empty -> os.TempDir()
	MaxRenders    int64  // concurrent external renders, default 4
}

// Prepared is an upload ready for decoding.
type Prepared struct {
	Image    *image.Gray
	Format   string // constants.PDF | constants.IMAGE | constants.HEIC
	Duration time.Duration
}

type Preprocessor struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	renders *semaphore.Weighted
}

type Option func(*Preprocessor)

// WithRunner swaps the command runner used for pdftoppm and HEIC conversion.
func WithRunner(r Runner) Option {
	return func(p *Preprocessor) {
		if r != nil {
			p.runner = r
		}
	}
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	if cfg.RenderEdge <= 0 {
		cfg.RenderEdge = 1700
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = imaging.DefaultMaxPixels
	}
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = imaging.DefaultSize
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MaxRenders <= 0 {
		cfg.MaxRenders = 4
	}
	p := &Preprocessor{
		cfg:     cfg,
		runner:  ExecRunner{Logger: logger},
		logger:  logger,
		renders: semaphore.NewWeighted(cfg.MaxRenders),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// TempDir is the directory holding per-request workspaces.
func (p *Preprocessor) TempDir() string { return p.cfg.TempDir }

// Prepare detects the upload format, rasterizes it when needed and normalizes
// the result. Errors wrap common.ErrUnsupportedFormat or common.ErrExtractionFailed,
// or are the context's error.
func (p *Preprocessor) Prepare(ctx context.Context, buf []byte) (*Prepared, error) {
	start := time.Now()
	format, err := Detect(buf)
	if err != nil {
		p.logger.Warn("verify.preprocess.unsupported", "bytes", len(buf), "error", err)
		return nil, err
	}
	p.logger.Debug("verify.preprocess.detected", "format", format, "bytes", len(buf))

	raster := buf
	if format == constants.PDF || format == constants.HEIC {
		raster, err = p.external(ctx, format, buf)
		if err != nil {
			p.logger.Error("verify.preprocess.failed", "format", format, "error", err)
			return nil, err
		}
	}

	// Decode checks the declared size first: pixel decoding does not observe ctx,
	// so an oversized image must never reach it.
	img, _, err := imaging.Decode(raster, p.cfg.MaxPixels)
	if err != nil {
		p.logger.Error("verify.preprocess.decode_failed", "format", format, "error", err)
		if errors.Is(err, common.ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Prepared{
		Image:    imaging.Normalize(img, p.cfg.TargetSize),
		Format:   format,
		Duration: time.Since(start),
	}
	p.logger.Debug("verify.preprocess.ok", "format", format, "duration_ms", out.Duration.Milliseconds())
	return out, nil
}

// external runs a PDF render or HEIC conversion inside a fresh workspace that is
// removed before returning, whatever the outcome.
func (p *Preprocessor) external(ctx context.Context, format string, buf []byte) ([]byte, error) {
	if err := p.renders.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.renders.Release(1)

	ws, err := newWorkspace(p.cfg.TempDir, p.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}
	defer ws.cleanup()

	if format == constants.PDF {
		return p.renderFirstPage(ctx, ws, buf)
	}
	return p.convertHEIC(ctx, ws, buf)
}
