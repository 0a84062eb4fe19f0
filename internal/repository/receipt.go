package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/entity"
)

type ReceiptRepository interface {
	// Create stores the receipt and its items in one transaction.
	Create(ctx context.Context, rec *entity.Receipt) (*entity.Receipt, error)
	// GetByID loads a receipt with its items; common.ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
	// ListByOwner returns the owner's receipts, newest first, optionally bounded to [from, to).
	ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*entity.Receipt, error)
	// Delete removes the items and then the receipt, provided ownerID owns it.
	Delete(ctx context.Context, id int64, ownerID string) error
	Count(ctx context.Context) (int64, error)
}

type receiptRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{
		drv:    db.Driver,
		logger: logger,
	}
}

var receiptColumns = []string{"id", "owner_id", "customer", "footer_msg", "created_at"}
var itemColumns = []string{"id", "receipt_id", "item", "unit", "price", "total"}

func (r *receiptRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *receiptRepository) Create(ctx context.Context, rec *entity.Receipt) (*entity.Receipt, error) {
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		r.logger.Error("failed to begin receipt transaction", "owner_id", rec.OwnerID, "error", err)
		return nil, common.WrapError(err, "begin tx")
	}
	created, err := r.insert(ctx, tx, rec)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			r.logger.Error("failed to roll back receipt transaction", "owner_id", rec.OwnerID, "error", rerr)
		}
		r.logger.Error("failed to create receipt", "owner_id", rec.OwnerID, "error", err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to commit receipt transaction", "owner_id", rec.OwnerID, "error", err)
		return nil, common.WrapError(err, "commit receipt")
	}
	return created, nil
}

func (r *receiptRepository) insert(ctx context.Context, tx dialect.Tx, rec *entity.Receipt) (*entity.Receipt, error) {
	b := r.builder()
	out := &entity.Receipt{
		OwnerID:   rec.OwnerID,
		Customer:  rec.Customer,
		FooterMsg: rec.FooterMsg,
		CreatedAt: rec.CreatedAt.UTC(),
		Items:     make([]entity.ReceiptItem, 0, len(rec.Items)),
	}
	if rec.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	query, args := b.Insert(tableReceipts).
		Columns("owner_id", "customer", "footer_msg", "created_at").
		Values(out.OwnerID, out.Customer, out.FooterMsg, out.CreatedAt).
		Query()
	if err := scanOne(ctx, tx, query+" RETURNING id", args, &out.ID); err != nil {
		return nil, common.WrapError(err, "insert receipt")
	}

	for _, it := range rec.Items {
		item := entity.ReceiptItem{
			ReceiptID: out.ID,
			Item:      it.Item,
			Unit:      it.Unit,
			Price:     it.Price,
			Total:     it.Total,
		}
		query, args := b.Insert(tableReceiptItems).
			Columns("receipt_id", "item", "unit", "price", "total").
			Values(item.ReceiptID, item.Item, item.Unit, item.Price, item.Total).
			Query()
		if err := scanOne(ctx, tx, query+" RETURNING id", args, &item.ID); err != nil {
			return nil, common.WrapError(err, "insert receipt item")
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (r *receiptRepository) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	b := r.builder()
	query, args := b.Select(receiptColumns...).
		From(b.Table(tableReceipts)).
		Where(entsql.EQ("id", id)).
		Query()
	recs, err := r.queryReceipts(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get receipt", "receipt_id", id, "error", err)
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NotFoundError("receipt not found")
	}
	return recs[0], nil
}

func (r *receiptRepository) ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*entity.Receipt, error) {
	b := r.builder()
	preds := []*entsql.Predicate{entsql.EQ("owner_id", ownerID)}
	if from != nil {
		preds = append(preds, entsql.GTE("created_at", from.UTC()))
	}
	if to != nil {
		preds = append(preds, entsql.LT("created_at", to.UTC()))
	}
	query, args := b.Select(receiptColumns...).
		From(b.Table(tableReceipts)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()
	recs, err := r.queryReceipts(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list receipts", "owner_id", ownerID, "error", err)
		return nil, err
	}
	return recs, nil
}

func (r *receiptRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	b := r.builder()
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return common.WrapError(err, "begin tx")
	}
	rollback := func() {
		if rerr := tx.Rollback(); rerr != nil {
			r.logger.Error("failed to roll back receipt delete", "receipt_id", id, "error", rerr)
		}
	}

	var owner string
	query, args := b.Select("owner_id").From(b.Table(tableReceipts)).Where(entsql.EQ("id", id)).Query()
	if err := scanOne(ctx, tx, query, args, &owner); err != nil {
		rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFoundError("receipt not found or unauthorized")
		}
		return common.WrapError(err, "load receipt owner")
	}
	if owner != ownerID {
		rollback()
		r.logger.Warn("receipt delete denied", "receipt_id", id, "owner_id", ownerID)
		return common.NotFoundError("receipt not found or unauthorized")
	}

	query, args = b.Delete(tableReceiptItems).Where(entsql.EQ("receipt_id", id)).Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		rollback()
		return common.WrapError(err, "delete receipt items")
	}
	query, args = b.Delete(tableReceipts).Where(entsql.EQ("id", id)).Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		rollback()
		return common.WrapError(err, "delete receipt")
	}
	if err := tx.Commit(); err != nil {
		return common.WrapError(err, "commit receipt delete")
	}
	r.logger.Info("receipt deleted", "receipt_id", id, "owner_id", ownerID)
	return nil
}

func (r *receiptRepository) Count(ctx context.Context) (int64, error) {
	b := r.builder()
	query, args := b.Select(entsql.Count("*")).From(b.Table(tableReceipts)).Query()
	var n int64
	if err := scanOne(ctx, r.drv, query, args, &n); err != nil {
		return 0, common.WrapError(err, "count receipts")
	}
	return n, nil
}

// queryReceipts runs a receipt select and attaches every receipt's items.
func (r *receiptRepository) queryReceipts(ctx context.Context, query string, args []any) ([]*entity.Receipt, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, common.WrapError(err, "query receipts")
	}
	defer rows.Close()

	var (
		recs = []*entity.Receipt{}
		ids  []any
		byID = map[int64]*entity.Receipt{}
	)
	for rows.Next() {
		var (
			rec    entity.Receipt
			footer sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Customer, &footer, &rec.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan receipt")
		}
		if footer.Valid {
			rec.FooterMsg = &footer.String
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.Items = []entity.ReceiptItem{}
		recs = append(recs, &rec)
		ids = append(ids, rec.ID)
		byID[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate receipts")
	}
	if len(ids) == 0 {
		return recs, nil
	}

	b := r.builder()
	query, args = b.Select(itemColumns...).
		From(b.Table(tableReceiptItems)).
		Where(entsql.In("receipt_id", ids...)).
		OrderBy("id").
		Query()
	itemRows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, itemRows); err != nil {
		return nil, common.WrapError(err, "query receipt items")
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it entity.ReceiptItem
		if err := itemRows.Scan(&it.ID, &it.ReceiptID, &it.Item, &it.Unit, &it.Price, &it.Total); err != nil {
			return nil, common.WrapError(err, "scan receipt item")
		}
		if rec, ok := byID[it.ReceiptID]; ok {
			rec.Items = append(rec.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate receipt items")
	}
	return recs, nil
}

// scanOne reads the first row of a query into dest; sql.ErrNoRows when empty.
func scanOne(ctx context.Context, q dialect.ExecQuerier, query string, args []any, dest ...any) error {
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.Scan(dest...)
}
