package verify

import (
	"net/http"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/entity"
)

// Result is the outcome of one verification attempt. It is built fresh per
// attempt and never cached.
type Result struct {
	Valid   bool              `json:"valid"`
	Receipt *entity.Receipt   `json:"receipt,omitempty"`
	QRData  string            `json:"qrData,omitempty"`
	Error   string            `json:"error,omitempty"`
	Outcome constants.Outcome `json:"-"`
}

func valid(rec *entity.Receipt, payload string) Result {
	return Result{Valid: true, Receipt: rec, QRData: payload, Outcome: constants.OutcomeValid}
}

func failed(outcome constants.Outcome, msg string) Result {
	return Result{Valid: false, Error: msg, Outcome: outcome}
}

// UploadStatus is the HTTP status for an upload verification. Every pipeline
// outcome is a 200; only storage failures are not.
func (r Result) UploadStatus() int {
	if r.Outcome == constants.OutcomeError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// PayloadStatus is the HTTP status for a payload verification.
func (r Result) PayloadStatus() int {
	switch r.Outcome {
	case constants.OutcomeNotFound:
		return http.StatusNotFound
	case constants.OutcomeError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
