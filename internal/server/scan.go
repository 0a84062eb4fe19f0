package server

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/imaging"
	"github.com/joseph-ayodele/salesbook/internal/metrics"
	"github.com/joseph-ayodele/salesbook/internal/qr"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

const (
	scanWriteWait = 5 * time.Second
	scanStop      = "stop"

	defaultMaxFramePixels = 8_000_000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ScanHandler runs live-camera scan sessions over a websocket. The client sends
// camera frames as binary messages (any supported still image format) and may
// send the text message "stop". The server answers with exactly one JSON
// verification result and closes the connection.
type ScanHandler struct {
	dec      *qr.Decoder
	svc      *verify.Service
	cfg      common.ScanConfig
	maxFrame int64
	logger   *slog.Logger
}

func NewScanHandler(dec *qr.Decoder, svc *verify.Service, cfg common.ScanConfig, maxFrame int64, logger *slog.Logger) *ScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSession <= 0 {
		cfg.MaxSession = 2 * time.Minute
	}
	if cfg.MaxFramePixels <= 0 {
		cfg.MaxFramePixels = defaultMaxFramePixels
	}
	return &ScanHandler{dec: dec, svc: svc, cfg: cfg, maxFrame: maxFrame, logger: logger}
}

func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("scan.upgrade.failed", "error", err)
		return
	}
	defer conn.Close()
	if h.maxFrame > 0 {
		conn.SetReadLimit(h.maxFrame)
	}

	metrics.OpenScanSession()
	defer metrics.CloseScanSession()

	start := time.Now()
	reqID := common.RequestIDFromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.MaxSession)
	defer cancel()

	sess := qr.NewSession(h.dec, qr.SessionConfig{FPS: h.cfg.FPS, RegionSize: h.cfg.RegionSize}, h.logger)
	results := sess.Start(ctx)
	go h.readFrames(conn, sess, cancel)

	payload, ok := <-results
	if ok {
		res := h.svc.VerifyDecoded(r.Context(), metrics.PathScan, payload)
		h.finish(conn, res)
		return
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		h.logger.Info("scan.session.timeout", "request_id", reqID, "frames", sess.Frames())
		metrics.VerificationDone(metrics.PathScan, constants.OutcomeDecodeFailed, time.Since(start))
		h.finish(conn, verify.Result{Error: constants.MsgQRNotFound, Outcome: constants.OutcomeDecodeFailed})
	case ctx.Err() != nil:
		h.logger.Debug("scan.session.closed", "request_id", reqID, "frames", sess.Frames())
	default:
		metrics.VerificationDone(metrics.PathScan, constants.OutcomeProcessingFailed, time.Since(start))
		h.finish(conn, verify.Result{Error: constants.MsgProcessingFailed, Outcome: constants.OutcomeProcessingFailed})
	}
}

// readFrames feeds decoded frames into the session until the client stops,
// disconnects or sends something unreadable at the protocol level.
func (h *ScanHandler) readFrames(conn *websocket.Conn, sess *qr.Session, cancel context.CancelFunc) {
	defer cancel()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("scan.read.closed", "error", err)
			}
			return
		}
		switch kind {
		case websocket.TextMessage:
			if string(data) == scanStop {
				return
			}
		case websocket.BinaryMessage:
			frame, err := h.decodeFrame(data)
			if err != nil {
				h.logger.Debug("scan.frame.unreadable", "bytes", len(data), "error", err)
				continue
			}
			sess.Submit(frame)
		}
	}
}

// decodeFrame decodes one camera frame, rejecting frames that declare more
// than MaxFramePixels pixels before any pixel data is read.
func (h *ScanHandler) decodeFrame(data []byte) (image.Image, error) {
	frame, _, err := imaging.Decode(data, h.cfg.MaxFramePixels)
	return frame, err
}

func (h *ScanHandler) finish(conn *websocket.Conn, res verify.Result) {
	_ = conn.SetWriteDeadline(time.Now().Add(scanWriteWait))
	if err := conn.WriteJSON(res); err != nil {
		h.logger.Warn("scan.result.write_failed", "error", err)
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(scanWriteWait))
}
