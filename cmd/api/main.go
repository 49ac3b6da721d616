package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pricingfeeds-backend/api/routes"
	"github.com/angelmondragon/pricingfeeds-backend/internal/ingest"
	"github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/enums"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/env"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/instance"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/migrate"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pubsub"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/queue"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/redis"
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

	broker, closeBroker, err := buildBroker(context.Background(), cfg, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap queue broker", err)
		os.Exit(1)
	}
	defer closeBroker()

	feedService, err := pricingfeeds.NewService(pricingfeeds.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing feed service", err)
		os.Exit(1)
	}

	statusStore, err := ingest.NewStatusStore(redisClient, cfg.Ingest.ResultTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create status store", err)
		os.Exit(1)
	}

	uploadService, err := ingest.NewUploadService(cfg.Ingest.UploadDir, statusStore, broker, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"queue":    cfg.Queue.Driver,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, feedService, uploadService, statusStore),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	case err := <-errCh:
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildBroker wires the job queue transport selected by configuration. The
// returned func releases any transport-specific resources.
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
