// Package qr builds receipt QR payloads and reads them back from images.
package qr

import (
	"encoding/json"
	"fmt"
	"time"

	goqrcode "github.com/skip2/go-qrcode"

	"github.com/joseph-ayodele/salesbook/internal/entity"
)

// DefaultPNGSize is the edge length, in pixels, of rendered QR images.
const DefaultPNGSize = 256

// Payload identifies a receipt. Only ID is authoritative; the other fields let
// a reader sanity-check a printed receipt offline.
type Payload struct {
	ID       int64       `json:"id"`
	Customer string      `json:"customer"`
	Total    json.Number `json:"total"`
	Date     string      `json:"date"`
}

func NewPayload(r *entity.Receipt) Payload {
	return Payload{
		ID:       r.ID,
		Customer: r.Customer,
		Total:    json.Number(r.Total().StringFixed(2)),
		Date:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EncodePayload returns the compact JSON payload for r. The same receipt
// snapshot always yields the same string.
func EncodePayload(r *entity.Receipt) (string, error) {
	if r == nil || r.ID <= 0 {
		return "", fmt.Errorf("encode payload: receipt has no id")
	}
	b, err := json.Marshal(NewPayload(r))
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// RenderPNG draws payload as a QR symbol with medium error recovery.
func RenderPNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultPNGSize
	}
	png, err := goqrcode.Encode(payload, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
