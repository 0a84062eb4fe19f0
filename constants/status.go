package constants

// Outcome is the terminal state of one verification attempt.
type Outcome string

// Stable values (used as metric labels and in logs).
const (
	OutcomeValid            Outcome = "valid"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeDecodeFailed     Outcome = "decode_failed"
	OutcomeProcessingFailed Outcome = "processing_failed"
	OutcomeError            Outcome = "error"
)

// User-facing verification messages.
const (
	MsgReceiptNotFound  = "Receipt not found or invalid."
	MsgQRNotFound       = "QR code not found in image."
	MsgProcessingFailed = "Failed to process image or extract QR code."
	MsgNoFileUploaded   = "No file uploaded."
	MsgVerifyFailed     = "Verification failed."
)
