package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

// multipartMemory is the share of a multipart upload kept in memory before
// spilling to disk.
const multipartMemory = 4 << 20

type VerifyHandler struct {
	svc       *verify.Service
	maxUpload int64
	logger    *slog.Logger
}

func NewVerifyHandler(svc *verify.Service, maxUpload int64, logger *slog.Logger) *VerifyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &VerifyHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

type verifyPayloadRequest struct {
	QRData string `json:"qrData"`
}

// Upload verifies the QR code on an uploaded image or PDF (multipart field "file").
func (h *VerifyHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		WriteJSON(w, http.StatusRequestEntityTooLarge, verify.Result{Error: "File too large."})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteJSON(w, http.StatusRequestEntityTooLarge, verify.Result{Error: "File too large."})
			return
		}
		WriteJSON(w, http.StatusBadRequest, verify.Result{Error: constants.MsgNoFileUploaded})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, verify.Result{Error: constants.MsgNoFileUploaded})
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil || len(buf) == 0 {
		WriteJSON(w, http.StatusBadRequest, verify.Result{Error: constants.MsgNoFileUploaded})
		return
	}
	h.logger.Debug("verify.upload.received", "filename", header.Filename, "bytes", len(buf))

	res := h.svc.VerifyUpload(r.Context(), buf)
	WriteJSON(w, res.UploadStatus(), res)
}

// Payload verifies a QR payload decoded on the client.
func (h *VerifyHandler) Payload(w http.ResponseWriter, r *http.Request) {
	var req verifyPayloadRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxReceiptBody)).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, verify.Result{Error: "qrData is required"})
		return
	}
	res := h.svc.VerifyPayload(r.Context(), req.QRData)
	WriteJSON(w, res.PayloadStatus(), res)
}
