package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricingfeeds-backend/internal/cron"
	"github.com/angelmondragon/pricingfeeds-backend/internal/ingest"
	"github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/enums"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/instance"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/metrics"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/migrate"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pubsub"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/queue"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/redis"
)

const lockKeyFormat = "sweep:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "ingest-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "ingest-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
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
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	broker, closeBroker, err := buildBroker(context.Background(), cfg, redisClient, logg)
	requireResource(ctx, logg, "queue broker", err)
	defer closeBroker()

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	statusStore, err := ingest.NewStatusStore(redisClient, cfg.Ingest.ResultTTL)
	requireResource(ctx, logg, "status store", err)

	processor, err := ingest.NewProcessor(
		pricingfeeds.NewRepository(dbClient.DB()),
		dbClient,
		statusStore,
		jobMetrics,
		cfg.Ingest,
		logg,
	)
	requireResource(ctx, logg, "ingest processor", err)

	ingestConsumer, err := ingest.NewConsumer(broker, processor, logg)
	requireResource(ctx, logg, "ingest consumer", err)

	sweepJob, err := cron.NewUploadSweepJob(cron.UploadSweepJobParams{
		Logger:    logg,
		Dir:       cfg.Ingest.UploadDir,
		Retention: cfg.Sweep.Retention,
	})
	requireResource(ctx, logg, "upload sweep job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	requireResource(ctx, logg, "schedule lock", err)

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweep.Interval,
	})
	requireResource(ctx, logg, "scheduler", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"queue":    cfg.Queue.Driver,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "ingest worker ready")

	errCh := make(chan error, 2)
	go func() { errCh <- ingestConsumer.Run(runCtx) }()
	go func() { errCh <- scheduler.Run(runCtx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	if firstErr != nil {
		logg.Error(runCtx, "ingest worker stopped unexpectedly", firstErr)
		os.Exit(1)
	}

	logg.Info(runCtx, "ingest worker shutting down gracefully")
}

func buildBroker(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logg *logger.Logger) (queue.Broker, func(), error) {
	switch enums.QueueDriver(cfg.Queue.Driver) {
	case enums.QueueDriverPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, err
		}
		broker, err := queue.NewPubSubBroker(client, logg)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return broker, func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}, nil

	default:
		broker, err := queue.NewRedisBroker(redisClient, queue.DefaultQueueName, logg)
		if err != nil {
			return nil, nil, err
		}
		return broker, func() {}, nil
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
