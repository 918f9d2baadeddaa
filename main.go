package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/auth"
	"github.com/gameshelf-io/gameshelf-engine/pkg/cache"
	"github.com/gameshelf-io/gameshelf-engine/pkg/config"
	"github.com/gameshelf-io/gameshelf-engine/pkg/database"
	"github.com/gameshelf-io/gameshelf-engine/pkg/handlers"
	"github.com/gameshelf-io/gameshelf-engine/pkg/middleware"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/metadata"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/pricing"
	"github.com/gameshelf-io/gameshelf-engine/pkg/repositories"
	"github.com/gameshelf-io/gameshelf-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Log startup configuration
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("metadata_base_url", cfg.Metadata.BaseURL))

	ctx := context.Background()

	// Connect to PostgreSQL and run migrations
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Cache: Redis when configured, in-memory otherwise
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	var providerCache cache.Cache
	if redisClient != nil {
		providerCache = cache.NewRedis(redisClient)
		logger.Info("Using Redis provider cache")
	} else {
		providerCache = cache.NewMemory()
		logger.Info("Redis not configured, using in-memory provider cache")
	}

	// Provider clients
	metadataClient := metadata.NewClient(&cfg.Metadata, providerCache, logger)
	pricingClient := pricing.NewClient(&cfg.Pricing, providerCache, logger)

	// Repositories and services
	gameRepo := repositories.NewGameRepository(db)
	aggregator := services.NewAggregatorService(metadataClient, pricingClient, logger)
	discoveryService := services.NewDiscoveryService(gameRepo, metadataClient, aggregator, cfg.Discovery, logger)
	catalogService := services.NewCatalogService(gameRepo, aggregator, metadataClient, pricingClient, logger)

	// Admin authorization
	if cfg.AdminTokenSecret == "" {
		logger.Fatal("ADMIN_TOKEN_SECRET is not set; refusing to serve admin endpoints unsigned")
	}
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(cfg.AdminTokenSecret), logger)

	// Register handlers
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDiscoveryHandler(discoveryService, logger).RegisterRoutes(mux)
	handlers.NewGamesHandler(catalogService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting gameshelf-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a development logger for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
