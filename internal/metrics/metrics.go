package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joseph-ayodele/salesbook/constants"
)

var verifications = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "salesbook",
		Name:      "verifications_total",
	},
	[]string{
		"path",
		"outcome",
	},
)

var verifyDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "salesbook",
		Name:      "verify_duration_seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{
		"path",
	},
)

var uploadFormats = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "salesbook",
		Name:      "verify_upload_formats_total",
	},
	[]string{
		"format",
	},
)

var scanSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "salesbook",
		Name:      "scan_sessions_open",
	},
)

var httpResponseTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "salesbook",
		Subsystem: "http",
		Name:      "request_duration_seconds",
	},
	[]string{
		"route",
		"code",
	},
)

// Verification paths.
const (
	PathUpload  = "upload"
	PathPayload = "payload"
	PathScan    = "scan"
	PathGRPC    = "grpc"
)

func VerificationDone(path string, outcome constants.Outcome, took time.Duration) {
	verifications.With(map[string]string{"path": path, "outcome": string(outcome)}).Inc()
	verifyDuration.WithLabelValues(path).Observe(took.Seconds())
}

func UploadFormat(format string) {
	uploadFormats.WithLabelValues(format).Inc()
}

func OpenScanSession() {
	scanSessions.Inc()
}

func CloseScanSession() {
	scanSessions.Dec()
}

func HTTPRequest(route, code string, took time.Duration) {
	httpResponseTime.WithLabelValues(route, code).Observe(took.Seconds())
}
