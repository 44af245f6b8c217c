package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"marathon-billing/internal/config"
	pg "marathon-billing/internal/infra/db/postgres"
	"marathon-billing/internal/infra/logging"
	"marathon-billing/internal/infra/metrics"
	"marathon-billing/internal/infra/payment"
	red "marathon-billing/internal/infra/redis"
	"marathon-billing/internal/infra/sched"
	"marathon-billing/internal/infra/web"
	"marathon-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()

	// ---- Redis (optional: billing works without the lock and limiter) ----
	var locker usecase.Locker
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis not configured, reconciliation lock and rate limits disabled")
	}

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	orderRepo := pg.NewOrderRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	grantRepo := pg.NewGrantRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	programRepo := pg.NewProgramRepo(pool)

	// ---- Gateway ----
	gateway := payment.NewAlfaBankGateway(cfg.Payment.AlfaBank)

	// ---- Use cases ----
	orderUC := usecase.NewOrderUseCase(orderRepo, userRepo, programRepo, purchaseRepo, gateway, logger)
	activator := usecase.NewEntitlementActivator(userRepo, purchaseRepo, enrollmentRepo, programRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(orderRepo, grantRepo, gateway, activator, txManager, locker, logger)
	enrollmentUC := usecase.NewEnrollmentUseCase(enrollmentRepo, programRepo, logger)

	// ---- Stale-order sweeper ----
	sweeper := sched.NewOrderSweeper(reconcileUC, orderRepo,
		cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, cfg.Sweeper.BatchSize, logger)
	go sweeper.Start(ctx)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	server := web.NewServer(cfg, orderUC, reconcileUC, enrollmentUC, auth, limiter, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
