// Package verify ties upload preprocessing, QR decoding and payload resolution
// into the receipt verification flow.
package verify

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/metrics"
	"github.com/joseph-ayodele/salesbook/internal/preprocess"
	"github.com/joseph-ayodele/salesbook/internal/qr"
)

// Preparer normalizes raw upload bytes into a decodable image.
type Preparer interface {
	Prepare(ctx context.Context, buf []byte) (*preprocess.Prepared, error)
}

// ImageDecoder reads one QR payload from an image.
type ImageDecoder interface {
	Decode(ctx context.Context, img image.Image) (string, error)
}

type Service struct {
	prep     Preparer
	dec      ImageDecoder
	resolver *Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

// WithTimeout bounds preprocessing plus decoding of one upload.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(prep Preparer, dec ImageDecoder, resolver *Resolver, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		prep:     prep,
		dec:      dec,
		resolver: resolver,
		timeout:  10 * time.Second,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// VerifyUpload runs an uploaded image or PDF through the whole pipeline.
func (s *Service) VerifyUpload(ctx context.Context, buf []byte) Result {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)

	payload, res, ok := s.decodeUpload(ctx, buf)
	if !ok {
		s.logger.Info("verify.upload.failed", "request_id", reqID, "outcome", res.Outcome)
		metrics.VerificationDone(metrics.PathUpload, res.Outcome, time.Since(start))
		return res
	}

	res = s.resolve(ctx, payload)
	s.logger.Info("verify.upload.done", "request_id", reqID, "outcome", res.Outcome,
		"duration_ms", time.Since(start).Milliseconds())
	metrics.VerificationDone(metrics.PathUpload, res.Outcome, time.Since(start))
	return res
}

// decodeUpload covers the bounded, failure-prone half of an upload: format
// handling and decoding. Resolution is never attempted unless ok.
func (s *Service) decodeUpload(ctx context.Context, buf []byte) (string, Result, bool) {
	ctx, cancel := common.WithTimeout(ctx, s.timeout)
	defer cancel()

	prepared, err := s.prep.Prepare(ctx, buf)
	if err != nil {
		s.logger.Warn("verify.upload.preprocess_failed", "error", err)
		return "", failed(constants.OutcomeProcessingFailed, constants.MsgProcessingFailed), false
	}
	metrics.UploadFormat(prepared.Format)

	payload, err := s.dec.Decode(ctx, prepared.Image)
	switch {
	case err == nil:
		return payload, Result{}, true
	case errors.Is(err, qr.ErrNoQRCode):
		return "", failed(constants.OutcomeDecodeFailed, constants.MsgQRNotFound), false
	default:
		s.logger.Warn("verify.upload.decode_failed", "format", prepared.Format, "error", err)
		return "", failed(constants.OutcomeProcessingFailed, constants.MsgProcessingFailed), false
	}
}

// VerifyPayload resolves a payload that was already decoded, by a client-side
// scanner or a scan session.
func (s *Service) VerifyPayload(ctx context.Context, payload string) Result {
	return s.VerifyDecoded(ctx, metrics.PathPayload, payload)
}

// VerifyDecoded is VerifyPayload with the caller's transport named for metrics
// (metrics.PathScan, metrics.PathGRPC, ...).
func (s *Service) VerifyDecoded(ctx context.Context, source, payload string) Result {
	start := time.Now()
	res := s.resolve(ctx, payload)
	s.logger.Info("verify.payload.done", "request_id", common.RequestIDFromContext(ctx),
		"source", source, "outcome", res.Outcome)
	metrics.VerificationDone(source, res.Outcome, time.Since(start))
	return res
}

func (s *Service) resolve(ctx context.Context, payload string) Result {
	rec, err := s.resolver.Resolve(ctx, payload)
	if err != nil {
		return failed(constants.OutcomeError, constants.MsgVerifyFailed)
	}
	if rec == nil {
		return failed(constants.OutcomeNotFound, constants.MsgReceiptNotFound)
	}
	return valid(rec, payload)
}
