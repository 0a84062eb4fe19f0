package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/entity"
)

// ReceiptGetter is the storage the resolver reads from.
type ReceiptGetter interface {
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
}

// keyFields are tried in order on JSON object payloads.
var keyFields = []string{"id", "receiptId"}

// ParseKey derives a receipt id from a decoded payload.
//
// A JSON object yields its "id" field, falling back to "receiptId"; either may
// be a number or a numeric string. Anything that is not a JSON object, valid
// JSON or not, is used whole as the literal key. A key that is not a positive
// integer is unusable and reported as common.ErrMalformedPayload.
func ParseKey(payload string) (int64, error) {
	s := strings.TrimSpace(payload)
	if s == "" {
		return 0, fmt.Errorf("%w: empty payload", common.ErrMalformedPayload)
	}
	if obj, isObj := parseObject(s); isObj {
		for _, f := range keyFields {
			if id, ok := keyFrom(obj[f]); ok {
				return id, nil
			}
		}
		return 0, fmt.Errorf("%w: json object has no id or receiptId", common.ErrMalformedPayload)
	}
	if id, ok := parseID(s); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: literal key is not a positive integer", common.ErrMalformedPayload)
}

func parseObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

func keyFrom(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		return parseID(t.String())
	case string:
		return parseID(strings.TrimSpace(t))
	default:
		return 0, false
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Resolver maps a decoded payload to a stored receipt.
type Resolver struct {
	receipts ReceiptGetter
	logger   *slog.Logger
}

func NewResolver(receipts ReceiptGetter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{receipts: receipts, logger: logger}
}

// Resolve returns the receipt the payload points at, or nil when there is none.
// Unusable payloads never reach storage. Only storage failures are errors.
func (r *Resolver) Resolve(ctx context.Context, payload string) (*entity.Receipt, error) {
	id, err := ParseKey(payload)
	if err != nil {
		r.logger.Info("verify.resolve.malformed", "payload_len", len(payload), "error", err)
		return nil, nil
	}
	rec, err := r.receipts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			r.logger.Info("verify.resolve.not_found", "receipt_id", id)
			return nil, nil
		}
		r.logger.Error("verify.resolve.failed", "receipt_id", id, "error", err)
		return nil, common.WrapError(err, "resolve receipt")
	}
	return rec, nil
}
