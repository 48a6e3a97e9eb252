package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brightstock/imagery-backend/api/routes"
	"github.com/brightstock/imagery-backend/internal/batch"
	"github.com/brightstock/imagery-backend/internal/commission"
	"github.com/brightstock/imagery-backend/internal/cron"
	"github.com/brightstock/imagery-backend/internal/discounts"
	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/internal/listings"
	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/db"
	"github.com/brightstock/imagery-backend/pkg/enums"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/metrics"
	"github.com/brightstock/imagery-backend/pkg/migrate"
	"github.com/brightstock/imagery-backend/pkg/redis"
	"github.com/brightstock/imagery-backend/pkg/storage/gcs"
)

const sweepLockKeyFormat = "bs:api:session-sweep:%s"

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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	marketplace, err := listings.NewClient(cfg.Marketplace, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace client", err)
		os.Exit(1)
	}

	currency, err := enums.ParseCurrency(cfg.Marketplace.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid marketplace currency", err)
		os.Exit(1)
	}

	commissionService, err := commission.NewService(commission.ServiceParams{
		Assets: marketplace,
		Cache:  redisClient,
		Config: cfg.Commission,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	discountService, err := discounts.NewService(discounts.ServiceParams{
		Repo: discounts.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}

	registry := batch.NewRegistry(cfg.Batch.SessionTTL)
	batchMetrics := metrics.NewBatchMetrics(prometheus.DefaultRegisterer)

	// The intake sink and the orchestrator reference each other, so the
	// sink closes over the orchestrator variable assigned below.
	var orchestrator *batch.Orchestrator
	intakeService, err := intake.NewService(intake.ServiceParams{
		Repo:   intake.NewRepository(dbClient.DB()),
		GCS:    gcsClient,
		Bucket: cfg.GCS,
		Intake: cfg.Intake,
		Sink: func(evt intake.Event) {
			if orchestrator != nil {
				orchestrator.HandleIntakeEvent(context.Background(), evt)
			}
		},
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create intake service", err)
		os.Exit(1)
	}

	orchestrator, err = batch.NewOrchestrator(batch.OrchestratorParams{
		Registry: registry,
		Store:    marketplace,
		Intake:   intakeService,
		Locks:    redisClient,
		Metrics:  batchMetrics,
		Logger:   logg,
		Currency: currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batch orchestrator", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startSessionSweeper(ctx, cfg, logg, redisClient, registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			GCS:          gcsClient,
			Commission:   commissionService,
			Discounts:    discountService,
			Intake:       intakeService,
			Orchestrator: orchestrator,
		}),
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(runCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server shut down gracefully")
}

// startSessionSweeper runs the expired-session sweep over the
// in-process registry. Sessions live in this instance's memory, so the
// lock key is scoped per environment rather than shared across a pool.
func startSessionSweeper(ctx context.Context, cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, registry *batch.Registry) {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(sweepLockKeyFormat, env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create session sweep lock", err)
		os.Exit(1)
	}
	sweepJob, err := cron.NewSessionSweepJob(cron.SessionSweepJobParams{
		Logger:   logg,
		Registry: registry,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session sweep job", err)
		os.Exit(1)
	}
	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(ctx, "failed to create session sweeper", err)
		os.Exit(1)
	}

	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "session sweeper stopped unexpectedly", err)
		}
	}()
}
