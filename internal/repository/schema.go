package repository

import (
	"context"
	"log/slog"

	"entgo.io/ent/dialect"
)

const (
	tableReceipts     = "receipts"
	tableReceiptItems = "receipt_items"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS receipts (
		id BIGSERIAL PRIMARY KEY,
		owner_id TEXT NOT NULL,
		customer TEXT NOT NULL,
		footer_msg TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS receipts_owner_created_idx ON receipts (owner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS receipt_items (
		id BIGSERIAL PRIMARY KEY,
		receipt_id BIGINT NOT NULL REFERENCES receipts (id),
		item TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL,
		total NUMERIC(14,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS receipt_items_receipt_idx ON receipt_items (receipt_id)`,
}

// sqlite keeps money as TEXT so decimals round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS receipts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		customer TEXT NOT NULL,
		footer_msg TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS receipts_owner_created_idx ON receipts (owner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS receipt_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		receipt_id INTEGER NOT NULL REFERENCES receipts (id),
		item TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		total TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS receipt_items_receipt_idx ON receipt_items (receipt_id)`,
}

// Migrate creates the receipt tables when they do not exist yet.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	stmts := postgresSchema
	if db.Driver.Dialect() == dialect.SQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if err := db.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			logger.Error("schema migration failed", "error", err)
			return err
		}
	}
	logger.Debug("schema migration complete", "dialect", db.Driver.Dialect())
	return nil
}
