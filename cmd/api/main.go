package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mruizcampos/unimarket-backend/api/routes"
	"github.com/mruizcampos/unimarket-backend/internal/auctions"
	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/internal/handoff"
	"github.com/mruizcampos/unimarket-backend/internal/notifications"
	"github.com/mruizcampos/unimarket-backend/internal/orders"
	"github.com/mruizcampos/unimarket-backend/internal/stats"
	"github.com/mruizcampos/unimarket-backend/internal/wallet"
	"github.com/mruizcampos/unimarket-backend/pkg/config"
	"github.com/mruizcampos/unimarket-backend/pkg/db"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/migrate"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/redis"
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

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, services)

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	ctx := logg.WithField(context.Background(), "port", cfg.App.Port)
	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()
	clk := clock.System()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo, dbClient, outboxSvc, clk)
	if err != nil {
		return routes.Services{}, err
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(conn), catalogRepo, walletSvc, dbClient, outboxSvc, clk)
	if err != nil {
		return routes.Services{}, err
	}

	auctionsSvc, err := auctions.NewService(auctions.NewRepository(conn), catalogRepo, ordersSvc, dbClient, outboxSvc, clk)
	if err != nil {
		return routes.Services{}, err
	}

	handoffSvc, err := handoff.NewService(handoff.NewRepository(conn), ordersSvc, dbClient, outboxSvc, clk, cfg.Handoff, cfg.Code)
	if err != nil {
		return routes.Services{}, err
	}

	statsSvc, err := stats.NewService(stats.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn), clk)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Wallet:        walletSvc,
		Catalog:       catalogSvc,
		Auctions:      auctionsSvc,
		Orders:        ordersSvc,
		Handoff:       handoffSvc,
		Stats:         statsSvc,
		Notifications: notificationsSvc,
	}, nil
}
