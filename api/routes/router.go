// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"boxoffice/internal/bookings"
	"boxoffice/internal/events"
	"boxoffice/internal/messaging"
	"boxoffice/internal/seats"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/internal/shared/middleware"
	"boxoffice/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	producer messaging.EventProducer

	// Shared Redis-backed collaborators, built once and handed to every
	// service that needs them.
	locks        *seats.LockClient
	overlay      *seats.StatusMap
	cacheService cache.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, producer messaging.EventProducer) *Router {
	return &Router{
		config:       cfg,
		db:           db,
		producer:     producer,
		locks:        seats.NewLockClient(db.GetRedisClient()),
		overlay:      seats.NewStatusMap(db.GetRedisClient()),
		cacheService: cache.NewService(db.GetRedisClient()),
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	api.Use(middleware.RequestTimeout(r.config.WriteTimeout))
	api.Use(middleware.IdempotencyKey())
	{
		// Setup event browsing routes
		r.setupEventRoutes(api)

		// Setup hold and booking routes
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "boxoffice-backend",
			})
			return
		}

		if err := r.producer.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "boxoffice-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "boxoffice-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupEventRoutes configures the event and seat map browsing routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	seatRepo := seats.NewRepository(r.db.GetPostgreSQL())
	eventService := events.NewService(eventRepo, seatRepo, r.overlay, r.cacheService)
	eventController := events.NewController(eventService)

	events.SetupEventRoutes(rg, eventController)
}

// setupBookingRoutes configures the hold placement and booking routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	seatRepo := seats.NewRepository(r.db.GetPostgreSQL())
	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(
		bookingRepo,
		seatRepo,
		eventRepo,
		r.locks,
		r.overlay,
		r.producer,
		r.cacheService,
		r.db.GetPostgreSQL(),
		&r.config.Booking,
	)
	bookingController := bookings.NewController(bookingService)

	bookings.SetupBookingRoutes(rg, bookingController)
}
