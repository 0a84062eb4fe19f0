package entity

import "github.com/shopspring/decimal"

// MonthlySummary backs the sales dashboard.
type MonthlySummary struct {
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	MonthRevenue   decimal.Decimal `json:"monthRevenue"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	ReceiptCount   int             `json:"receiptCount"`
	RecentReceipts []*Receipt      `json:"recentReceipts"`
	MonthReceipts  []*Receipt      `json:"monthReceipts"`
}

// Revenue sums the totals of the given receipts.
func Revenue(recs []*Receipt) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range recs {
		sum = sum.Add(r.Total())
	}
	return sum
}
