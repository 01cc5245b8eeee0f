package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boxoffice/api/routes"
	"boxoffice/internal/bookings"
	"boxoffice/internal/expiry"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/shared/database"
	"boxoffice/pkg/logger"
	"boxoffice/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Workers consuming the seat transition topic. The topic is partitioned by
// {eventId}:{seatId}, so per-seat ordering holds at any worker count.
const transitionWorkers = 3

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		// Check if we're in production/container mode
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// The expiry signaler is deaf unless the Redis server publishes
	// expired-key events.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnableKeyExpiryNotifications(ctx); err != nil {
			appLogger.Error("Failed to enable key expiry notifications", slog.Any("error", err))
			appLogger.Info("Continuing; the reconciler is the only expiry path until this is fixed")
		}
		cancel()
	}

	// Preload the compare-and-delete lock script (critical for concurrency)
	lockClient := seats.NewLockClient(db.GetRedisClient())
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := lockClient.PreloadScripts(ctx); err != nil {
			appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
			// Continue without failing - scripts will be loaded on first use
		} else {
			appLogger.Info("✅ Redis Lua scripts preloaded for atomic lock release")
		}
		cancel()
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:                 cfg.RateLimit.Enabled,
			WindowDuration:          cfg.RateLimit.WindowDuration,
			DefaultRequests:         cfg.RateLimit.DefaultRequests,
			PublicRequests:          cfg.RateLimit.PublicRequests,
			BookingRequests:         cfg.RateLimit.BookingRequests,
			BookingCriticalRequests: cfg.RateLimit.BookingCriticalRequests,
			HealthRequests:          cfg.RateLimit.HealthRequests,
			WhitelistedIPs:          cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Kafka producer for transition and audit records. The hold paths
	// publish through it post-commit, so it is a hard dependency.
	producerConfig := messaging.DefaultProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producer, err := messaging.NewKafkaEventProducer(producerConfig)
	if err != nil {
		appLogger.Error("Failed to create Kafka producer", slog.Any("error", err))
		os.Exit(1)
	}
	defer producer.Close()

	// Shared collaborators for the expiry pipeline
	overlay := seats.NewStatusMap(db.GetRedisClient())
	holdRepo := bookings.NewRepository(db.GetPostgreSQL())
	seatRepo := seats.NewRepository(db.GetPostgreSQL())

	// Expiry signaler: Redis key expiry -> transition topic
	signalerCtx, signalerCancel := context.WithCancel(context.Background())
	defer signalerCancel()

	signaler := expiry.NewSignaler(db.GetRedisClient(), producer, cfg.Redis.DB)
	if err := signaler.Start(signalerCtx); err != nil {
		appLogger.Error("Failed to start expiry signaler", slog.Any("error", err))
		appLogger.Info("Continuing; the reconciler will pick up expired holds")
	} else {
		defer signaler.Stop()
	}

	// Transition consumer: applies HELD -> AVAILABLE to the database
	transitionHandler := expiry.NewTransitionHandler(db.GetPostgreSQL(), holdRepo, seatRepo, overlay, producer)

	consumerConfig := messaging.DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Kafka.Brokers
	consumerConfig.GroupID = constants.CONSUMER_GROUP_SEAT_TRANSITIONS
	consumerConfig.Topics = []string{constants.TOPIC_SEAT_STATE_TRANSITIONS}

	consumer, err := messaging.NewKafkaEventConsumer(consumerConfig, transitionHandler)
	if err != nil {
		appLogger.Error("Failed to create transition consumer", slog.Any("error", err))
		os.Exit(1)
	}

	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if err := consumer.StartConsumers(consumerCtx, transitionWorkers); err != nil {
		appLogger.Error("Failed to start transition consumer", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Stop()

	// Reconciler: safety net for lost expiry notifications
	reconcilerCtx, reconcilerCancel := context.WithCancel(context.Background())
	defer reconcilerCancel()

	reconciler := expiry.NewReconciler(db.GetPostgreSQL(), holdRepo, seatRepo, lockClient, overlay, producer, cfg.Reconciler)
	reconciler.Start(reconcilerCtx)
	defer reconciler.Stop()

	// Setup router with rate limiter
	router := setupRouter(cfg, db, producer, rateLimiter)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s/status", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("reconciler", cfg.Reconciler.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, producer messaging.EventProducer, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, producer)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
