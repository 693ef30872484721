// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autopay-billing/internal/config"
	"autopay-billing/internal/domain/ports/adapter"
	ledgerAdapters "autopay-billing/internal/infra/adapters/ledger"
	pg "autopay-billing/internal/infra/db/postgres"
	"autopay-billing/internal/infra/logging"
	"autopay-billing/internal/infra/metrics"
	red "autopay-billing/internal/infra/redis"
	"autopay-billing/internal/infra/sched"
	"autopay-billing/internal/infra/web"
	"autopay-billing/internal/infra/worker"
	"autopay-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory ledger)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	taskQueue := red.NewTaskQueue(redisClient)
	events := red.NewEventPublisher(redisClient)

	// ---- Ledger ----
	var ledger adapter.Ledger
	if cfg.Runtime.Dev {
		noop := ledgerAdapters.NewNoopLedger()
		if cfg.Billing.FeeAccount != "" {
			noop.Seed(cfg.Billing.FeeAccount, "USD", 0)
		}
		// A funded demo account so the seeded plans can be exercised
		// end to end without an external ledger.
		noop.Seed("acct:subscriber-demo", "USD", 100_00)
		noop.Seed("acct:merchant-demo", "USD", 10_00)
		ledger = noop
	} else {
		ledger, err = ledgerAdapters.NewHTTPGateway(cfg.Ledger.BaseURL, cfg.Ledger.APIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("ledger gateway")
		}
	}
	logger.Info().Str("ledger", ledger.Name()).Msg("ledger adapter ready")

	// ---- Repositories ----
	planRepo := pg.NewPostgresPlanRepo(pool)
	subRepo := pg.NewPostgresSubscriptionRepo(pool)
	vaultRepo := pg.NewPostgresVaultRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, txm, ledger, cfg.Billing, logger)
	billingUC := usecase.NewBillingUseCase(planRepo, subRepo, vaultRepo, txm, taskQueue, ledger, events, cfg.Billing, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- Dispatcher ----
	pool2 := worker.NewPool(cfg.Scheduler.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	dispatcher := sched.NewChargeDispatcher(taskQueue, billingUC, pool2, cfg.Scheduler.PollInterval, cfg.Scheduler.BatchSize, logger)
	go func() { _ = dispatcher.Run(ctx) }()
	recorder := sched.NewEventRecorder(events, logger)
	go func() { _ = recorder.Run(ctx) }()

	// ---- HTTP API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, cfg.Web.SessionTTL)
	srv := web.NewServer(planUC, billingUC, auth, cfg.Web.APIKey, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
