package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/export"
	"github.com/joseph-ayodele/salesbook/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	svc    *export.Service
	logger *slog.Logger
}

func NewExportHandler(svc *export.Service, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{svc: svc, logger: logger}
}

// ExportReceipts streams an XLSX of the owner's sales.
// - only from -> from..today (inclusive)
// - only to   -> beginning..to (inclusive)
// - none      -> all.
func (h *ExportHandler) ExportReceipts(w http.ResponseWriter, r *http.Request) {
	owner := common.UserIDFromContext(r.Context())
	if owner == "" {
		WriteError(w, http.StatusUnauthorized, "user id is required")
		return
	}
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

	xlsx, err := h.svc.ExportReceiptsXLSX(r.Context(), owner, from, to)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "owner_id", owner, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to export receipts")
		return
	}

	name := fmt.Sprintf("sales-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
