package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/onauc-backend/internal/cron"
	"github.com/angelmondragon/onauc-backend/internal/ledger"
	"github.com/angelmondragon/onauc-backend/internal/settlement"
	"github.com/angelmondragon/onauc-backend/pkg/config"
	"github.com/angelmondragon/onauc-backend/pkg/db"
	"github.com/angelmondragon/onauc-backend/pkg/instance"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/metrics"
	"github.com/angelmondragon/onauc-backend/pkg/migrate"
	"github.com/angelmondragon/onauc-backend/pkg/outbox"
	"github.com/angelmondragon/onauc-backend/pkg/redis"
)

const maintenanceInterval = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "settlement-worker"

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

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

	sweeper, err := settlement.NewSweeper(settlement.SweeperParams{
		Store:     store,
		Reader:    ledger.NewRepository(dbClient.DB()),
		Outbox:    outboxService,
		Logger:    logg,
		Metrics:   auctionMetrics,
		BatchSize: cfg.Settlement.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweeper", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	settlementService, err := newSchedule(logg, redisClient, cronMetrics, cfg, "settlement", cfg.Settlement.Interval, cfg.Settlement.LockTTL, sweeper)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement schedule", err)
		os.Exit(1)
	}
	maintenanceService, err := newSchedule(logg, redisClient, cronMetrics, cfg, "maintenance", maintenanceInterval, 0, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance schedule", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting settlement worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return settlementService.Run(groupCtx) })
	group.Go(func() error { return maintenanceService.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}

func newSchedule(
	logg *logger.Logger,
	redisClient *redis.Client,
	cronMetrics *metrics.CronJobMetrics,
	cfg *config.Config,
	name string,
	interval time.Duration,
	lockTTL time.Duration,
	jobs ...cron.Job,
) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(cron.LockParams{
		Client:   redisClient,
		Key:      redisClient.LockKey(lockName(cfg.App.Env, name)),
		Schedule: name,
		Instance: instance.GetID(),
		TTL:      lockTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s lock: %w", name, err)
	}
	return cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: interval,
	})
}

func lockName(env, schedule string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", env, schedule)
}
