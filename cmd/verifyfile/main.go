package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/preprocess"
	"github.com/joseph-ayodele/salesbook/internal/qr"
	repo "github.com/joseph-ayodele/salesbook/internal/repository"
	svc "github.com/joseph-ayodele/salesbook/internal/server"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

// verifyfile runs one local image or PDF through the same verification
// pipeline as /api/receipts/verify-upload and prints the result as JSON.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "verifyfile <path-to-image-or-pdf>")
		os.Exit(2)
	}
	buf, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read file", "path", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Same open, ping and migrate path as salesbookd, so a fresh database works.
	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)

	receiptsRepo := repo.NewReceiptRepository(db, logger)
	prep := preprocess.New(preprocess.Config{
		Pdftoppm:      cfg.Verify.Pdftoppm,
		HeicConverter: cfg.Verify.HeicConverter,
		RenderEdge:    cfg.Verify.RenderEdge,
		MaxPixels:     cfg.Verify.MaxImagePixels,
		TargetSize:    cfg.Verify.TargetSize,
		TempDir:       cfg.Verify.TempDir,
	}, logger)
	verifier := verify.NewService(prep, qr.NewDecoder(logger), verify.NewResolver(receiptsRepo, logger), logger,
		verify.WithTimeout(cfg.Verify.ProcessTimeout),
	)

	start := time.Now()
	res := verifier.VerifyUpload(ctx, buf)
	logger.Info("verification finished",
		"outcome", res.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("write result", "error", err)
		os.Exit(1)
	}
	if !res.Valid {
		os.Exit(3)
	}
}
