package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/qr"
	"github.com/joseph-ayodele/salesbook/internal/receipts"
	"github.com/joseph-ayodele/salesbook/internal/utils"
)

const maxReceiptBody = 1 << 20

type ReceiptHandler struct {
	svc    *receipts.Service
	logger *slog.Logger
}

func NewReceiptHandler(svc *receipts.Service, logger *slog.Logger) *ReceiptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptHandler{svc: svc, logger: logger}
}

func (h *ReceiptHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxReceiptBody+1))
	if err != nil || len(body) > maxReceiptBody {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := h.svc.CreateReceipt(r.Context(), common.UserIDFromContext(r.Context()), body)
	if err != nil {
		writeAppError(w, err, "Failed to create receipt")
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := utils.ParseOptionalYMD(r.URL.Query().Get("from"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := utils.ParseOptionalYMD(r.URL.Query().Get("to"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	recs, err := h.svc.ListReceipts(r.Context(), receipts.ListReceiptsRequest{
		OwnerID:  common.UserIDFromContext(r.Context()),
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		writeAppError(w, err, "Failed to fetch receipts")
		return
	}
	WriteJSON(w, http.StatusOK, recs)
}

func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(r)
	if !ok {
		WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	rec, err := h.svc.GetReceipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		writeAppError(w, err, "Failed to fetch receipt")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (h *ReceiptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(r)
	if !ok {
		WriteError(w, http.StatusNotFound, "Receipt not found or unauthorized")
		return
	}
	if err := h.svc.DeleteReceipt(r.Context(), id, common.UserIDFromContext(r.Context())); err != nil {
		writeAppError(w, err, "Failed to delete receipt")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Summary serves the dashboard; missing or unparsable month/year mean the current one.
func (h *ReceiptHandler) Summary(w http.ResponseWriter, r *http.Request) {
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	sum, err := h.svc.MonthlySummary(r.Context(), common.UserIDFromContext(r.Context()), month, year)
	if err != nil {
		writeAppError(w, err, "Failed to fetch dashboard summary")
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

// QRCode renders the receipt's verification QR as PNG.
func (h *ReceiptHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(r)
	if !ok {
		WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	rec, err := h.svc.GetReceipt(r.Context(), id)
	if err != nil {
		writeAppError(w, err, "Failed to fetch receipt")
		return
	}
	payload, err := qr.EncodePayload(rec)
	if err != nil {
		h.logger.Error("qr payload failed", "receipt_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 64 || size > 1024 {
		size = qr.DefaultPNGSize
	}
	png, err := qr.RenderPNG(payload, size)
	if err != nil {
		h.logger.Error("qr render failed", "receipt_id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func receiptID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
