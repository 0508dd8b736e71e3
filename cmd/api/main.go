package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/agoralabs/bazaar-backend/api/routes"
	"github.com/agoralabs/bazaar-backend/internal/catalog"
	"github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/internal/offers"
	"github.com/agoralabs/bazaar-backend/internal/promotions"
	"github.com/agoralabs/bazaar-backend/internal/purchases"
	"github.com/agoralabs/bazaar-backend/internal/reviews"
	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/internal/trust"
	"github.com/agoralabs/bazaar-backend/pkg/config"
	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/migrate"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
	"github.com/agoralabs/bazaar-backend/pkg/redis"
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

	gdb := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(gdb), logg)
	storeRepo := stores.NewRepository(gdb)
	storeUpdates := stores.NewUpdateRepository(gdb)
	productRepo := catalog.NewRepository(gdb)
	listingRepo := listings.NewRepository(gdb)
	evidenceRepo := evidence.NewRepository(gdb)
	offerRepo := offers.NewRepository(gdb)
	orderRepo := purchases.NewRepository(gdb)
	reviewRepo := reviews.NewRepository(gdb)
	trustRepo := trust.NewRepository(gdb)
	promoRepo := promotions.NewRepository(gdb)

	evidenceSvc, err := evidence.NewService(evidenceRepo, dbClient, listingRepo, events, logg)
	requireService(logg, "evidence", err)
	listingSvc, err := listings.NewService(listingRepo, dbClient, storeRepo, productRepo, storeUpdates, events, logg)
	requireService(logg, "listings", err)
	offerSvc, err := offers.NewService(offerRepo, dbClient, listingRepo, storeRepo, evidenceRepo, events, cfg.Market, logg)
	requireService(logg, "offers", err)
	purchaseSvc, err := purchases.NewService(orderRepo, dbClient, listingRepo, offerRepo, evidenceRepo, events, logg)
	requireService(logg, "purchases", err)
	trustSvc, err := trust.NewService(trustRepo, dbClient, events, logg)
	requireService(logg, "trust", err)
	reviewSvc, err := reviews.NewService(reviewRepo, dbClient, orderRepo, trustSvc, events, logg)
	requireService(logg, "reviews", err)
	promoSvc, err := promotions.NewService(promoRepo, dbClient, listingRepo, storeRepo, events, cfg.Market, logg)
	requireService(logg, "promotions", err)

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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Evidence:   evidenceSvc,
			Listings:   listingSvc,
			Offers:     offerSvc,
			Purchases:  purchaseSvc,
			Reviews:    reviewSvc,
			Trust:      trustSvc,
			Promotions: promoSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name+" service", err)
		os.Exit(1)
	}
}
