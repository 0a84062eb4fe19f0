package qr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/salesbook/internal/imaging"
)

type SessionConfig struct {
	FPS        int // decode attempts per second, default 10
	RegionSize int // edge of the central scan square, default 250
}

// Session is one live-camera scan. Frames arrive at whatever rate the client
// sends them; only the newest frame is decoded on each tick, and only its
// central region. The first successful decode ends the session, so at most one
// payload is ever emitted.
type Session struct {
	dec      *Decoder
	interval time.Duration
	region   int
	logger   *slog.Logger

	mu      sync.Mutex
	latest  image.Image
	started bool

	stop     chan struct{}
	stopOnce sync.Once
	result   chan string
	frames   int
}

func NewSession(dec *Decoder, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 10
	}
	if cfg.RegionSize <= 0 {
		cfg.RegionSize = 250
	}
	return &Session{
		dec:      dec,
		interval: time.Second / time.Duration(cfg.FPS),
		region:   cfg.RegionSize,
		logger:   logger,
		stop:     make(chan struct{}),
		result:   make(chan string, 1),
	}
}

// Submit offers a frame. A frame not yet decoded is replaced by a newer one.
func (s *Session) Submit(frame image.Image) {
	if frame == nil {
		return
	}
	s.mu.Lock()
	s.latest = frame
	s.frames++
	s.mu.Unlock()
}

// Start begins decoding and returns a channel that yields at most one payload
// and is then closed. It is closed without a value when the session is stopped
// or ctx ends first. Calling Start again returns the same channel.
func (s *Session) Start(ctx context.Context) <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return s.result
	}
	s.started = true
	go s.loop(ctx)
	return s.result
}

// Stop ends the session. Safe to call when never started or already stopped.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.result)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scan.session.cancelled")
			return
		case <-s.stop:
			s.logger.Debug("scan.session.stopped")
			return
		case <-ticker.C:
		}

		frame := s.take()
		if frame == nil {
			continue
		}
		payload, err := s.dec.Decode(ctx, imaging.Crop(frame, imaging.CenterRegion(frame.Bounds(), s.region)))
		if err != nil {
			if !errors.Is(err, ErrNoQRCode) {
				return
			}
			continue
		}

		// Stop before handing the payload on so no later frame can produce a
		// second resolution.
		s.Stop()
		s.logger.Info("scan.session.decoded", "frames", s.Frames())
		s.result <- payload
		return
	}
}

func (s *Session) take() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.latest
	s.latest = nil
	return frame
}

// Frames is the number of frames submitted so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
