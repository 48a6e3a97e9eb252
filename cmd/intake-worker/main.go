package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brightstock/imagery-backend/internal/cron"
	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/internal/intake/consumer"
	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/db"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/metrics"
	"github.com/brightstock/imagery-backend/pkg/migrate"
	"github.com/brightstock/imagery-backend/pkg/pubsub"
	"github.com/brightstock/imagery-backend/pkg/redis"
	"github.com/brightstock/imagery-backend/pkg/storage/gcs"
)

const lockKeyFormat = "bs:intake-worker:lock:%s"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "intake-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "intake-worker"

	logg = logger.New(logger.Options{
		ServiceName: "intake-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer gcsClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	intakeRepo := intake.NewRepository(dbClient.DB())
	intakeService, err := intake.NewService(intake.ServiceParams{
		Repo:   intakeRepo,
		GCS:    gcsClient,
		Bucket: cfg.GCS,
		Intake: cfg.Intake,
		Logger: logg,
	})
	requireResource(ctx, logg, "intake service", err)

	batchMetrics := metrics.NewBatchMetrics(prometheus.DefaultRegisterer)
	intakeConsumer, err := consumer.NewConsumer(
		intakeService,
		pubsubClient.IntakeSubscription(),
		batchMetrics,
		logg,
	)
	requireResource(ctx, logg, "intake consumer", err)

	cronService, err := buildCronService(cfg, logg, redisClient, intakeRepo, gcsClient)
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "intake worker ready")

	go func() {
		if err := cronService.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "cron service stopped unexpectedly", err)
		}
	}()

	if err := intakeConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "intake worker not working", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "intake worker shutting down gracefully")
}

func buildCronService(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, repo *intake.Repository, gcsClient *gcs.Client) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewIntakeCleanupJob(cron.IntakeCleanupJobParams{
		Logger:    logg,
		Repo:      repo,
		GCS:       gcsClient,
		GCSBucket: cfg.GCS.BucketName,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
