package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pawnledger/pawnledger/internal/app"
	"github.com/pawnledger/pawnledger/internal/auth"
	"github.com/pawnledger/pawnledger/internal/loans"
	"github.com/pawnledger/pawnledger/internal/platform/db"
	"github.com/pawnledger/pawnledger/internal/reports"
	"github.com/pawnledger/pawnledger/internal/shared"
	"github.com/pawnledger/pawnledger/internal/shifts"
	"github.com/pawnledger/pawnledger/internal/users"
	"github.com/pawnledger/pawnledger/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionTTL)

	userRepo := users.NewRepository(pool)
	authService := auth.NewService(userRepo, sessionManager)

	loanRepo := loans.NewRepository(pool)
	loanService := loans.NewService(loanRepo)

	shiftRepo := shifts.NewRepository(pool)
	shiftService := shifts.NewService(shiftRepo)

	reportRepo := reports.NewRepository(pool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reportRepo, reportCache)

	pdfClient := report.NewClient(cfg.GotenbergURL)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    auth.NewHandler(logger, authService),
		LoansHandler:   loans.NewHandler(logger, loanService),
		ShiftsHandler:  shifts.NewHandler(logger, shiftService),
		ReportsHandler: reports.NewHandler(logger, reportService),
		ReceiptHandler: report.NewHandler(logger, pdfClient, loanService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
