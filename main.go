package main

import (
	"context"
	"log"

	"bookvault/cmd"
	"bookvault/internal/data/repository"
	"bookvault/internal/wire"
	"bookvault/pkg/cache"
	"bookvault/pkg/database"
	"bookvault/pkg/storage"
	"bookvault/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Connect to Redis for the entitlement cache
	entitlements, err := cache.NewEntitlementCache(config.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer entitlements.Close()

	if err := entitlements.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	logger.Info("Redis connected successfully")

	// Connect to object storage for ebook downloads
	store, err := storage.NewObjectStore(context.Background(), config.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	logger.Info("Object storage initialized", zap.String("bucket", config.Storage.Bucket))

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, entitlements, store, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
