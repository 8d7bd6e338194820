package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunnelpay/tunnelpay-backend/api/routes"
	"github.com/tunnelpay/tunnelpay-backend/internal/activation"
	"github.com/tunnelpay/tunnelpay-backend/internal/broadcast"
	"github.com/tunnelpay/tunnelpay-backend/internal/notify"
	"github.com/tunnelpay/tunnelpay-backend/internal/payments"
	"github.com/tunnelpay/tunnelpay-backend/internal/providers"
	"github.com/tunnelpay/tunnelpay-backend/internal/provision"
	"github.com/tunnelpay/tunnelpay-backend/internal/referrals"
	"github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/metrics"
	"github.com/tunnelpay/tunnelpay-backend/pkg/migrate"
	"github.com/tunnelpay/tunnelpay-backend/pkg/plans"
	"github.com/tunnelpay/tunnelpay-backend/pkg/redis"
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

	registry, err := providers.NewRegistry(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to configure payment providers", err)
		os.Exit(1)
	}

	notifier, err := notify.NewTelegram(cfg.Telegram)
	if err != nil {
		logg.Error(context.Background(), "failed to configure telegram notifier", err)
		os.Exit(1)
	}

	provisioner, err := provision.NewClient(cfg.Provision)
	if err != nil {
		logg.Error(context.Background(), "failed to configure provision client", err)
		os.Exit(1)
	}

	catalog := plans.NewCatalog(cfg.Plans)

	usersRepo := users.NewRepository(dbClient.DB())
	intentsRepo := payments.NewRepository(dbClient.DB())
	subsRepo := activation.NewRepository(dbClient.DB())
	payoutsRepo := referrals.NewRepository(dbClient.DB())

	userService, err := users.NewService(users.ServiceParams{
		Repo:   usersRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:      intentsRepo,
		Providers: registry,
		Catalog:   catalog,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	activationService, err := activation.NewService(activation.ServiceParams{
		Intents:     intentsRepo,
		Subs:        subsRepo,
		Users:       usersRepo,
		Providers:   registry,
		Catalog:     catalog,
		Provisioner: provisioner,
		Notifier:    notifier,
		Tx:          dbClient,
		Referral:    cfg.Referral,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activation service", err)
		os.Exit(1)
	}

	referralService, err := referrals.NewService(referrals.ServiceParams{
		Repo:   payoutsRepo,
		Users:  usersRepo,
		Tx:     dbClient,
		Config: cfg.Referral,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create referral service", err)
		os.Exit(1)
	}

	dispatcher, err := broadcast.NewDispatcher(broadcast.DispatcherParams{
		Notifier: notifier,
		Config:   cfg.Broadcast,
		Metrics:  metrics.NewBroadcastMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create broadcast dispatcher", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"providers": registry.Available(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalog,
			userService,
			usersRepo,
			paymentService,
			intentsRepo,
			activationService,
			subsRepo,
			referralService,
			dispatcher,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
