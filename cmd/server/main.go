// Package main is the entry point for the wallet API server.
// It loads configuration, connects PostgreSQL and Redis, wires the
// services together and starts the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pouch/internal/config"
	"pouch/internal/handlers"
	"pouch/internal/metrics"
	"pouch/internal/repositories"
	"pouch/internal/repositories/cache"
	"pouch/internal/services/admin"
	"pouch/internal/services/auth"
	"pouch/internal/services/fraud"
	"pouch/internal/services/ledger"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	userRepo := repositories.NewUserRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	txnRepo := repositories.NewTransactionRepository(db)

	// Redis is optional: without it balance reads just skip the cache.
	var walletCache cache.WalletCache = cache.NoopWalletCache{}
	redisClient := cache.NewRedisClient(cache.RedisConfigFromEnv())
	if err := cache.Ping(redisClient); err != nil {
		log.WithError(err).Warn("redis unavailable, wallet cache disabled")
	} else {
		walletCache = cache.NewWalletCache(redisClient, config.GetDurationEnv("WALLET_CACHE_TTL", cache.DefaultWalletTTL))
		defer redisClient.Close()
	}

	collector := metrics.NewCollector()

	fraudEngine := fraud.NewEngine(fraud.Config{
		WithdrawalThreshold: decimalEnv("FRAUD_WITHDRAWAL_THRESHOLD", fraud.DefaultWithdrawalThreshold),
		BurstWindow:         config.GetDurationEnv("FRAUD_BURST_WINDOW", fraud.DefaultBurstWindow),
		BurstMaxTransfers:   config.GetIntEnv("FRAUD_BURST_MAX_TRANSFERS", fraud.DefaultBurstMaxTransfers),
	}, log)

	ledgerService := ledger.NewService(userRepo, walletRepo, txnRepo, fraudEngine, ledger.Config{
		Currency:    config.GetEnv("CURRENCY", ledger.DefaultCurrency),
		BlockOnFlag: config.GetBoolEnv("BLOCK_ON_FLAG", false),
	}, collector, log)

	authService := auth.NewService(userRepo, walletRepo, log)
	adminService := admin.NewService(userRepo, walletRepo, txnRepo)

	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService, userRepo, walletRepo, walletCache)
	adminHandler := handlers.NewAdminHandler(adminService)

	app := fiber.New(fiber.Config{
		AppName: "pouch",
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	handlers.SetupRoutes(app, authHandler, walletHandler, adminHandler, collector.Handler())

	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func decimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}
