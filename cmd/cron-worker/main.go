package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thriftline/thriftline-backend/internal/cart"
	"github.com/thriftline/thriftline-backend/internal/orders"
	carts "github.com/thriftline/thriftline-backend/internal/schedulers/carts"
	"github.com/thriftline/thriftline-backend/pkg/config"
	"github.com/thriftline/thriftline-backend/pkg/db"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/metrics"
	"github.com/thriftline/thriftline-backend/pkg/migrate"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	gormDB := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   orders.NewRepository(gormDB),
		Tx:     dbClient,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	sweeper, err := carts.NewService(carts.ServiceParams{
		Logger:           logg,
		DB:               dbClient,
		Carts:            cart.NewRepository(gormDB),
		Orders:           ordersService,
		Events:           events,
		Metrics:          jobMetrics,
		Interval:         cfg.Sweeper.Interval,
		MaxBackoff:       cfg.Sweeper.MaxBackoff,
		RefundWindowDays: cfg.Sweeper.RefundWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Sweeper.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
