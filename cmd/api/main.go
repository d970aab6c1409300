package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/onauc-backend/api/routes"
	"github.com/angelmondragon/onauc-backend/internal/bidding"
	"github.com/angelmondragon/onauc-backend/internal/ledger"
	"github.com/angelmondragon/onauc-backend/internal/listings"
	"github.com/angelmondragon/onauc-backend/pkg/auth"
	"github.com/angelmondragon/onauc-backend/pkg/config"
	"github.com/angelmondragon/onauc-backend/pkg/db"
	"github.com/angelmondragon/onauc-backend/pkg/instance"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/metrics"
	"github.com/angelmondragon/onauc-backend/pkg/migrate"
	"github.com/angelmondragon/onauc-backend/pkg/outbox"
	"github.com/angelmondragon/onauc-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured; idempotency and bid throttling disabled")
	}

	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	store, err := ledger.NewStore(ledger.StoreParams{
		DB:          dbClient,
		Logger:      logg,
		Metrics:     auctionMetrics,
		MaxAttempts: cfg.Bidding.MaxAttempts,
		BaseDelay:   cfg.Bidding.RetryBaseDelay,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger store", err)
		os.Exit(1)
	}

	engine, err := bidding.NewEngine(bidding.EngineParams{
		Store:   store,
		Outbox:  outboxService,
		Metrics: auctionMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bidding engine", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(listings.ServiceParams{
		DB:         dbClient,
		Repository: listings.NewRepository(dbClient.DB()),
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			auth.NewVerifier(cfg.JWT),
			listingService,
			engine,
			prometheus.DefaultGatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
