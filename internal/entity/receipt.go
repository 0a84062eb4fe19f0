package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients sum line totals numerically, so amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Receipt represents a receipt with its line items for data transfer between layers.
type Receipt struct {
	ID        int64         `json:"id"`
	OwnerID   string        `json:"userId"`
	Customer  string        `json:"customer"`
	Items     []ReceiptItem `json:"items"`
	FooterMsg *string       `json:"footerMsg"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReceiptItem is a single priced line on a receipt.
type ReceiptItem struct {
	ID        int64           `json:"id"`
	ReceiptID int64           `json:"receiptId"`
	Item      string          `json:"item"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// Total sums the line totals.
func (r *Receipt) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.Total)
	}
	return sum
}

// LineTotal computes price x quantity, where quantity is the unit field when it
// holds a positive number and 1 otherwise.
func LineTotal(price decimal.Decimal, unit string) decimal.Decimal {
	qty, err := decimal.NewFromString(unit)
	if err != nil || !qty.IsPositive() {
		return price
	}
	return price.Mul(qty)
}
