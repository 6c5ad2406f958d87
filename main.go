package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arena-pot-ledger/config"
	"arena-pot-ledger/handlers"
	"arena-pot-ledger/ledger"
	"arena-pot-ledger/metrics"
	"arena-pot-ledger/middleware"
	"arena-pot-ledger/services"
	"arena-pot-ledger/utils"
	"arena-pot-ledger/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := ledger.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []ledger.Option{
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithObserver(metrics.LedgerObserver{}),
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, pot updates will not be published until it is back", zap.Error(err))
		}
		opts = append(opts, ledger.WithObserver(services.NewPotPublisher(rdb, logger.Named("publisher"))))
	}

	if cfg.Archive.Enabled() {
		archive, err := utils.NewR2ProofArchive(ctx, cfg.Archive)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		opts = append(opts, ledger.WithProofArchive(archive))
	}

	arenaLedger := ledger.New(db, opts...)

	sched, err := workers.StartReconcileScheduler(arenaLedger, cfg.ReconcileEvery, logger.Named("reconcile"), metrics.ObserveReconciliation)
	if err != nil {
		logger.Fatal("failed to start reconcile scheduler", zap.Error(err))
	}
	defer sched.Shutdown()

	if cfg.SyncServiceURL != "" {
		funding := workers.NewFundingWorker(
			workers.NewFundingSyncClient(cfg.SyncServiceURL, cfg.GatewayToken),
			arenaLedger,
			cfg.FundingPollEvery,
			logger.Named("funding"),
			workers.WithPollHook(func(_ int, err error) {
				if err != nil {
					metrics.FundingPollErrors.Inc()
				}
			}),
		)
		go funding.Run(ctx)
	} else {
		logger.Warn("SYNC_SERVICE_URL not set, wallet funding feed disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // pot stream stays open
	})

	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger.Named("gateway"), "/health", "/metrics"))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Service-Token, " + middleware.CallerIDHeader,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", services.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	arena := services.NewArenaService(arenaLedger, logger.Named("http"))
	handlers.SetupArenaRoutes(app, arena, logger.Named("http"))

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("arena pot ledger running",
		zap.String("addr", cfg.ListenAddr),
		zap.String("vault", ledger.VaultAddress),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
		zap.Bool("proof_archive", cfg.Archive.Enabled()),
		zap.Bool("redis", cfg.RedisAddr != ""))

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
