package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grupomeridio/pricedesk-backend/api/routes"
	"github.com/grupomeridio/pricedesk-backend/internal/auth"
	"github.com/grupomeridio/pricedesk-backend/internal/refdata"
	"github.com/grupomeridio/pricedesk-backend/internal/requests"
	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/db"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
	"github.com/grupomeridio/pricedesk-backend/pkg/metrics"
	"github.com/grupomeridio/pricedesk-backend/pkg/migrate"
	"github.com/grupomeridio/pricedesk-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
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
	decisionMetrics := metrics.NewDecisionMetrics(registry)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       auth.NewRepository(dbClient.DB()),
		DB:          dbClient,
		Limiter:     redisClient,
		Sessions:    redisClient,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		RateLimit:   cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	refdataRepo := refdata.NewRepository(dbClient.DB())
	refdataService, err := refdata.NewService(refdataRepo, dbClient, decisionMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create refdata service", err)
		os.Exit(1)
	}

	requestsService, err := requests.NewService(
		requests.NewRepository(dbClient.DB()),
		refdataRepo,
		dbClient,
		decisionMetrics,
		cfg.Policy,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Sessions:        redisClient,
			AuthService:     authService,
			RequestsService: requestsService,
			RefdataService:  refdataService,
			Metrics:         decisionMetrics,
			Registry:        registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
