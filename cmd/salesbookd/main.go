package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/export"
	"github.com/joseph-ayodele/salesbook/internal/preprocess"
	"github.com/joseph-ayodele/salesbook/internal/qr"
	"github.com/joseph-ayodele/salesbook/internal/receipts"
	repo "github.com/joseph-ayodele/salesbook/internal/repository"
	svc "github.com/joseph-ayodele/salesbook/internal/server"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)

	receiptsRepo := repo.NewReceiptRepository(db, logger)
	receiptsService := receipts.NewService(receiptsRepo, logger)
	exportService := export.NewService(receiptsRepo, logger)

	prep := preprocess.New(preprocess.Config{
		Pdftoppm:      cfg.Verify.Pdftoppm,
		HeicConverter: cfg.Verify.HeicConverter,
		RenderEdge:    cfg.Verify.RenderEdge,
		MaxPixels:     cfg.Verify.MaxImagePixels,
		TargetSize:    cfg.Verify.TargetSize,
		TempDir:       cfg.Verify.TempDir,
		MaxRenders:    cfg.Verify.MaxRenders,
	}, logger)
	decoder := qr.NewDecoder(logger)
	verifyService := verify.NewService(prep, decoder, verify.NewResolver(receiptsRepo, logger), logger,
		verify.WithTimeout(cfg.Verify.ProcessTimeout),
	)
	sweeper := preprocess.NewSweeper(prep.TempDir(), logger,
		preprocess.WithSweepInterval(cfg.Verify.SweepInterval),
		preprocess.WithMaxAge(cfg.Verify.SweepMaxAge),
	)

	router := svc.NewRouter(svc.Handlers{
		Receipts: svc.NewReceiptHandler(receiptsService, logger),
		Export:   svc.NewExportHandler(exportService, logger),
		Verify:   svc.NewVerifyHandler(verifyService, cfg.Server.MaxUploadBytes, logger),
		Scan:     svc.NewScanHandler(decoder, verifyService, cfg.Scan, cfg.Server.MaxUploadBytes, logger),
		Health:   svc.HealthHandler(db, cfg.Database.HealthTimeout, logger),
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, healthServer := svc.NewGRPCServer(svc.NewVerificationServer(verifyService, logger),
		grpc.UnaryInterceptor(svc.LoggingInterceptor(logger)),
	)
	reflection.Register(grpcServer)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("salesbook http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("salesbook grpc listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

// newLogger drops time and level attributes, keeping message and variables.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
