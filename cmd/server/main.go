package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/pavemap/backend/internal/cache"
	"github.com/pavemap/backend/internal/dataset"
	"github.com/pavemap/backend/internal/delivery/http"
	"github.com/pavemap/backend/internal/log"
	"github.com/pavemap/backend/internal/playback"
	"github.com/pavemap/backend/internal/repository/postgres"
	"github.com/pavemap/backend/internal/service"
	"github.com/pavemap/backend/internal/session"
	"github.com/pavemap/backend/internal/tier"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Configuration
	cfg := loadConfig()

	if err := log.Init(cfg.Debug); err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Infow("No .env file found, using system environment")
	}

	mode, err := tier.ParseMode(cfg.TierMode)
	if err != nil {
		log.Fatalw("Invalid TIER_MODE", "value", cfg.TierMode, "error", err)
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Warnw("Could not connect to database, keeping datasets in memory", "error", err)
			if pool != nil {
				pool.Close()
			}
			pool = nil
		} else {
			defer pool.Close()
			log.Infow("Connected to PostgreSQL")
		}
	}

	// Dependency Injection: Repositories
	var dataRepo service.DatasetRepository
	if pool != nil {
		pgRepo := postgres.NewPostgresRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			log.Fatalw("Database migration failed", "error", err)
		}
		dataRepo = pgRepo
	} else {
		dataRepo = postgres.NewMockRepository()
	}

	redisCache := cache.NewRedisCache(cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.CacheTTL)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warnw("Redis unavailable, dataset cache disabled", "error", err)
		redisCache = cache.NewRedisCache(nil, cfg.CacheTTL)
	}

	// Dependency Injection: Services
	gen := dataset.NewGenerator(dataset.Options{Seed: cfg.DatasetSeed, Extended: cfg.ExtendedTaxonomy})
	datasetSvc := service.NewDatasetService(gen, dataRepo, redisCache, mode)
	if err := datasetSvc.Preload(ctx); err != nil {
		log.Warnw("Dataset preload incomplete", "error", err)
	}

	sessions := session.NewManager(session.Config{
		TierMode:      mode,
		FrameInterval: cfg.FrameInterval,
		Follow:        playback.FollowConfig{FrameInterval: cfg.FrameInterval, Duration: cfg.FollowDuration},
		AutoFit:       true,
	}, datasetSvc, cfg.SessionIdleTimeout)

	evictCtx, stopEvict := context.WithCancel(context.Background())
	defer stopEvict()
	go sessions.Run(evictCtx, time.Minute)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "PaveMap API v1.0",
		ReadTimeout:  10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, datasetSvc, sessions)

	// Graceful shutdown
	go func() {
		log.Infow("Server starting", "port", cfg.Port, "tier_mode", mode.String(), "env", cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalw("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server...")
	stopEvict()
	sessions.Shutdown()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warnw("Server forced to shutdown", "error", err)
	}
	datasetSvc.WaitBackground()
	log.Infow("Server exited gracefully")
}

type Config struct {
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheTTL           time.Duration
	TierMode           string
	FrameInterval      time.Duration
	FollowDuration     time.Duration
	SessionIdleTimeout time.Duration
	DatasetSeed        int64
	ExtendedTaxonomy   bool
	Debug              bool
	Port               string
	Env                string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTL:           getEnvDuration("CACHE_TTL", 24*time.Hour),
		TierMode:           getEnv("TIER_MODE", "three"),
		FrameInterval:      getEnvDuration("FRAME_INTERVAL", 16*time.Millisecond),
		FollowDuration:     getEnvDuration("FOLLOW_DURATION", 500*time.Millisecond),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		DatasetSeed:        int64(getEnvInt("DATASET_SEED", 42)),
		ExtendedTaxonomy:   getEnvBool("EXTENDED_TAXONOMY", false),
		Debug:              getEnvBool("LOG_DEBUG", false),
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
