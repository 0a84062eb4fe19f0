package receipts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/entity"
	"github.com/joseph-ayodele/salesbook/internal/repository"
	"github.com/joseph-ayodele/salesbook/internal/utils"
)

const recentReceiptsLimit = 5

// Service handles receipt business logic.
type Service struct {
	receiptRepo repository.ReceiptRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new receipt service.
func NewService(receiptRepo repository.ReceiptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		receiptRepo: receiptRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateReceiptRequest is the body of a receipt creation. Line totals sent by
// the client are ignored and recomputed.
type CreateReceiptRequest struct {
	Customer  string              `json:"customer"`
	FooterMsg *string             `json:"footerMsg"`
	Items     []CreateItemRequest `json:"items"`
}

type CreateItemRequest struct {
	Item  string          `json:"item"`
	Unit  string          `json:"unit"`
	Price decimal.Decimal `json:"price"`
}

// CreateReceipt validates a raw JSON body and stores the receipt for ownerID.
func (s *Service) CreateReceipt(ctx context.Context, ownerID string, body []byte) (*entity.Receipt, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, common.UnauthorizedError("user id is required")
	}
	if err := validateBody(body); err != nil {
		s.logger.Warn("create receipt body rejected", "owner_id", ownerID, "error", err)
		return nil, common.InvalidInputError("customer and items[] are required")
	}
	var req CreateReceiptRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, common.InvalidInputErrorf("invalid receipt body: %v", err)
	}

	v := common.NewValidator().
		Field("customer", req.Customer, common.Required, common.MaxLength(200)).
		Field("footerMsg", req.FooterMsg, common.MaxLength(500))
	for _, it := range req.Items {
		v.Field("items.item", it.Item, common.Required, common.MaxLength(200)).
			Field("items.unit", it.Unit, common.MaxLength(50)).
			Field("items.price", it.Price, common.NonNegativeDecimal)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Warn("create receipt validation failed", "owner_id", ownerID, "error", err)
		return nil, err
	}

	rec := &entity.Receipt{
		OwnerID:   ownerID,
		Customer:  strings.TrimSpace(req.Customer),
		FooterMsg: req.FooterMsg,
		CreatedAt: s.now(),
		Items:     make([]entity.ReceiptItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		rec.Items = append(rec.Items, entity.ReceiptItem{
			Item:  strings.TrimSpace(it.Item),
			Unit:  strings.TrimSpace(it.Unit),
			Price: it.Price,
			Total: entity.LineTotal(it.Price, strings.TrimSpace(it.Unit)),
		})
	}

	created, err := s.receiptRepo.Create(ctx, rec)
	if err != nil {
		s.logger.Error("failed to create receipt", "owner_id", ownerID, "error", err)
		return nil, err
	}
	s.logger.Info("receipt created", "receipt_id", created.ID, "owner_id", ownerID, "items", len(created.Items))
	return created, nil
}

// GetReceipt returns a receipt by id regardless of owner.
func (s *Service) GetReceipt(ctx context.Context, id int64) (*entity.Receipt, error) {
	if id <= 0 {
		return nil, common.NotFoundError("receipt not found")
	}
	return s.receiptRepo.GetByID(ctx, id)
}

// ListReceiptsRequest represents receipt listing parameters.
type ListReceiptsRequest struct {
	OwnerID  string
	FromDate *time.Time // inclusive
	ToDate   *time.Time // inclusive
}

// ListReceipts returns an owner's receipts, newest first.
func (s *Service) ListReceipts(ctx context.Context, req ListReceiptsRequest) ([]*entity.Receipt, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		s.logger.Error("list receipts request missing user id")
		return nil, common.UnauthorizedError("user id is required")
	}
	var from, to *time.Time
	if req.FromDate != nil {
		f := time.Date(req.FromDate.Year(), req.FromDate.Month(), req.FromDate.Day(), 0, 0, 0, 0, time.UTC)
		from = &f
	}
	if req.ToDate != nil {
		t := utils.EndOfDayExclusive(*req.ToDate)
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, common.InvalidInputError("from date must not be after to date")
	}

	recs, err := s.receiptRepo.ListByOwner(ctx, req.OwnerID, from, to)
	if err != nil {
		s.logger.Error("failed to list receipts", "owner_id", req.OwnerID, "error", err)
		return nil, err
	}
	s.logger.Info("receipts listed successfully", "owner_id", req.OwnerID, "count", len(recs))
	return recs, nil
}

// DeleteReceipt removes a receipt owned by ownerID.
func (s *Service) DeleteReceipt(ctx context.Context, id int64, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return common.UnauthorizedError("user id is required")
	}
	return s.receiptRepo.Delete(ctx, id, ownerID)
}

// MonthlySummary backs the dashboard. Zero month or year means the current one.
func (s *Service) MonthlySummary(ctx context.Context, ownerID string, month, year int) (*entity.MonthlySummary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, common.UnauthorizedError("user id is required")
	}
	now := s.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, common.InvalidInputErrorf("month %d out of range", month)
	}

	from, to := utils.MonthRange(year, month)
	monthRecs, err := s.receiptRepo.ListByOwner(ctx, ownerID, &from, &to)
	if err != nil {
		return nil, err
	}
	all, err := s.receiptRepo.ListByOwner(ctx, ownerID, nil, nil)
	if err != nil {
		return nil, err
	}

	recent := monthRecs
	if len(recent) > recentReceiptsLimit {
		recent = recent[:recentReceiptsLimit]
	}
	return &entity.MonthlySummary{
		Month:          month,
		Year:           year,
		MonthRevenue:   entity.Revenue(monthRecs),
		TotalRevenue:   entity.Revenue(all),
		ReceiptCount:   len(monthRecs),
		RecentReceipts: recent,
		MonthReceipts:  monthRecs,
	}, nil
}
