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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/api/routes"
	"github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/internal/journals"
	"github.com/angelmondragon/donorjournal-backend/internal/memberships"
	"github.com/angelmondragon/donorjournal-backend/internal/progress"
	"github.com/angelmondragon/donorjournal-backend/internal/stageevents"
	"github.com/angelmondragon/donorjournal-backend/pkg/config"
	"github.com/angelmondragon/donorjournal-backend/pkg/db"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/metrics"
	"github.com/angelmondragon/donorjournal-backend/pkg/migrate"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox"
	"github.com/angelmondragon/donorjournal-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type activityEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	} else {
		logg.Warn(ctx, "redis not configured, idempotency keys disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	journalMetrics := metrics.NewJournalMetrics(registry)

	var emitter activityEmitter = outbox.Discard{}
	if cfg.FeatureFlags.ActivityOutbox {
		emitter = outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	}

	membershipRepo := memberships.NewRepository(dbClient.DB())

	decisionService, err := decisions.NewService(decisions.ServiceParams{
		Repo:            decisions.NewRepository(dbClient.DB()),
		DB:              dbClient,
		Outbox:          emitter,
		Memberships:     membershipRepo,
		Logger:          logg,
		Metrics:         journalMetrics,
		HistoryPageSize: cfg.Journal.HistoryPageSize,
		HistoryMaxSize:  cfg.Journal.HistoryMaxPageSize,
	})
	if err != nil {
		return err
	}

	stageEventService, err := stageevents.NewService(stageevents.ServiceParams{
		Repo:        stageevents.NewRepository(dbClient.DB()),
		DB:          dbClient,
		Outbox:      emitter,
		Memberships: membershipRepo,
		Logger:      logg,
		Metrics:     journalMetrics,
	})
	if err != nil {
		return err
	}

	progressService, err := progress.NewService(
		progress.NewRepository(dbClient.DB()),
		journals.NewRepository(dbClient.DB()),
	)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			decisionService,
			stageEventService,
			progressService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
