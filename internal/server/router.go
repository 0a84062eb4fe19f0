package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the HTTP router serves.
type Handlers struct {
	Receipts *ReceiptHandler
	Export   *ExportHandler
	Verify   *VerifyHandler
	Scan     http.Handler
	Health   http.Handler
}

func NewRouter(h Handlers, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := mux.NewRouter()
	r.Use(Recovery(logger), RequestID, Logger(logger), CORS, Owner)

	if h.Health != nil {
		r.Handle("/health", h.Health).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/receipts").Subrouter()

	// Verification is public: anyone holding a receipt can check it.
	api.HandleFunc("/verify-upload", h.Verify.Upload).Methods(http.MethodPost)
	api.HandleFunc("/verify", h.Verify.Payload).Methods(http.MethodPost)
	if h.Scan != nil {
		api.Handle("/scan", h.Scan).Methods(http.MethodGet)
	}

	api.HandleFunc("", h.Receipts.Create).Methods(http.MethodPost)
	api.HandleFunc("/", h.Receipts.Create).Methods(http.MethodPost)
	api.HandleFunc("", h.Receipts.List).Methods(http.MethodGet)
	api.HandleFunc("/", h.Receipts.List).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/summary", h.Receipts.Summary).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", h.Export.ExportReceipts).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.Receipts.Get).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", h.Receipts.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/{id:[0-9]+}/qr.png", h.Receipts.QRCode).Methods(http.MethodGet)

	// Preflight requests only need the CORS middleware.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}
