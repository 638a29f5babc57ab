package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/plateiq/restaurant-backend/api/controllers"
	"github.com/plateiq/restaurant-backend/api/routes"
	"github.com/plateiq/restaurant-backend/internal/adjustments"
	"github.com/plateiq/restaurant-backend/internal/alerts"
	"github.com/plateiq/restaurant-backend/internal/deduction"
	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/internal/propagation"
	"github.com/plateiq/restaurant-backend/pkg/config"
	"github.com/plateiq/restaurant-backend/pkg/db"
	"github.com/plateiq/restaurant-backend/pkg/logger"
	"github.com/plateiq/restaurant-backend/pkg/metrics"
	"github.com/plateiq/restaurant-backend/pkg/migrate"
	"github.com/plateiq/restaurant-backend/pkg/redis"
)

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	itemsRepo := inventory.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	alertsRepo := alerts.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledgerRepo, itemsRepo, cfg.Inventory.HistoryMaxPageSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(itemsRepo, ledgerService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	alertService, err := alerts.NewService(alertsRepo, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert service", err)
		os.Exit(1)
	}
	engine, err := propagation.NewEngine(itemsRepo, ledgerService, inventoryMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create propagation engine", err)
		os.Exit(1)
	}
	locker := propagation.NewComponentLocker(cfg.Inventory.LockStripes)
	adjustmentService, err := adjustments.NewService(itemsRepo, engine, locker, alertService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create adjustment service", err)
		os.Exit(1)
	}
	deductionService, err := deduction.NewService(itemsRepo, engine, locker, alertService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deduction service", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			redisClient,
			registry,
			inventoryService,
			ledgerService,
			adjustmentService,
			deductionService,
			alertService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
