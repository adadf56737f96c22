package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/ageing"
	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/billing/payables"
	"github.com/ledgerline/ledgerline/internal/billing/receivables"
	"github.com/ledgerline/ledgerline/internal/masterdata/customers"
	"github.com/ledgerline/ledgerline/internal/masterdata/vendors"
	"github.com/ledgerline/ledgerline/internal/payments"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/proposals"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ledgerline_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool, cfg.StorageTimeout)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	sequences := shared.NewSequenceGenerator(dbpool)

	authzMiddleware := authz.Middleware{Logger: logger}

	vendorRepo := vendors.NewRepository(dbpool, cfg.StorageTimeout)
	vendorService := vendors.NewService(vendorRepo, auditLogger)
	vendorHandler := vendors.NewHandler(logger, vendorService, authzMiddleware)

	customerRepo := customers.NewRepository(dbpool, cfg.StorageTimeout)
	customerService := customers.NewService(customerRepo, auditLogger)
	customerHandler := customers.NewHandler(logger, customerService, authzMiddleware)

	payableRepo := payables.NewRepository(dbpool, cfg.StorageTimeout)
	payableService := payables.NewService(payableRepo, auditLogger)
	payableHandler := payables.NewHandler(logger, payableService, authzMiddleware)

	receivableRepo := receivables.NewRepository(dbpool, cfg.StorageTimeout)
	receivableService := receivables.NewService(receivableRepo, auditLogger)
	receivableHandler := receivables.NewHandler(logger, receivableService, authzMiddleware)

	proposalRepo := proposals.NewRepository(dbpool, cfg.StorageTimeout)
	proposalService := proposals.NewService(proposalRepo, sequences)
	proposalHandler := proposals.NewHandler(logger, proposalService, authzMiddleware)

	paymentRepo := payments.NewRepository(dbpool, cfg.StorageTimeout)
	paymentService := payments.NewService(paymentRepo, sequences, approvalRecorder)
	paymentHandler := payments.NewHandler(logger, paymentService, authzMiddleware, idempotencyStore)

	ageingRepo := ageing.NewRepository(dbpool, cfg.StorageTimeout)
	ageingService := ageing.NewService(ageingRepo, redisClient, cfg.AgeingCacheTTL)
	ageingHandler := ageing.NewHandler(logger, ageingService, authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		VendorsHandler:     vendorHandler,
		CustomersHandler:   customerHandler,
		PayablesHandler:    payableHandler,
		ReceivablesHandler: receivableHandler,
		ProposalsHandler:   proposalHandler,
		PaymentsHandler:    paymentHandler,
		AgeingHandler:      ageingHandler,
		JobHandler:         jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
