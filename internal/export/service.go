package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/salesbook/internal/entity"
	"github.com/joseph-ayodele/salesbook/internal/utils"
)

// ReceiptLister is the slice of the receipt repository an export needs.
type ReceiptLister interface {
	ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*entity.Receipt, error)
}

// Service produces XLSX bytes for sales exports.
type Service struct {
	receipts ReceiptLister
	logger   *slog.Logger
}

func NewService(receipts ReceiptLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{receipts: receipts, logger: logger}
}

const sheet = "Sales"

var headers = []string{
	"Date",
	"Receipt #",
	"Customer",
	"Item",
	"Unit",
	"Price",
	"Line Total",
}

// ExportReceiptsXLSX returns an XLSX workbook (as bytes) with one row per line
// item for the owner and date window, followed by a totals row.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all receipts for the owner.
func (s *Service) ExportReceiptsXLSX(ctx context.Context, ownerID string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := utils.EndOfDayExclusive(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := utils.EndOfDayExclusive(time.Now().UTC())
		toDate = &t
	}

	recs, err := s.receipts.ListByOwner(ctx, ownerID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	bold, styleErr := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if styleErr == nil {
		_ = f.SetRowStyle(sheet, 1, 1, bold)
	}

	row := 2
	grand := decimal.Zero
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for _, r := range recs {
		for _, it := range r.Items {
			write(1, r.CreatedAt.UTC().Format("2006-01-02"))
			write(2, r.ID)
			write(3, truncate(r.Customer, 80))
			write(4, truncate(it.Item, 80))
			write(5, it.Unit)
			write(6, it.Price.InexactFloat64())
			write(7, it.Total.InexactFloat64())
			grand = grand.Add(it.Total)
			row++
		}
	}
	write(6, "Total")
	write(7, grand.InexactFloat64())
	if styleErr == nil {
		cell, _ := excelize.CoordinatesToCellName(6, row)
		end, _ := excelize.CoordinatesToCellName(7, row)
		_ = f.SetCellStyle(sheet, cell, end, bold)
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 10) // receipt id
	_ = f.SetColWidth(sheet, "C", "D", 28) // customer, item
	_ = f.SetColWidth(sheet, "E", "E", 10) // unit
	_ = f.SetColWidth(sheet, "F", "G", 14) // amounts

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", ownerID,
		"receipts", len(recs),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
