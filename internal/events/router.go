package events

import (
	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller) {
	// Public routes - anyone can browse events and seat maps
	events := router.Group("/events")
	{
		events.GET("", controller.ListEvents)                                 // GET /api/v1/events - Browse all events
		events.GET("/upcoming", controller.GetUpcomingEvents)                 // GET /api/v1/events/upcoming - Browse upcoming events
		events.GET("/:eventId", controller.GetEvent)                          // GET /api/v1/events/:eventId - Get event details
		events.GET("/:eventId/seats", controller.GetEventSeats)               // GET /api/v1/events/:eventId/seats - Live seat map
		events.GET("/:eventId/seats/available", controller.GetAvailableSeats) // GET /api/v1/events/:eventId/seats/available - Holdable seats only
		events.GET("/:eventId/seats/summary", controller.GetSeatSummary)      // GET /api/v1/events/:eventId/seats/summary - Seat counts
	}
}
