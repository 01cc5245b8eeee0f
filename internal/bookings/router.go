package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes registers the hold and booking endpoints
func SetupBookingRoutes(rg *gin.RouterGroup, controller Controller) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("/hold", controller.PlaceHold)
		bookings.GET("/hold/:holdToken", controller.GetHold)
		bookings.DELETE("/hold/:holdToken", controller.CancelHold)
		// :id carries the hold token on confirm and the booking
		// reference on lookup; gin allows one wildcard name per segment.
		bookings.POST("/:id/confirm", controller.ConfirmHold)
		bookings.GET("/:id", controller.GetBooking)
	}
}

// Route Reference:
// POST   /api/v1/bookings/hold              - Place a hold on seats
// GET    /api/v1/bookings/hold/:holdToken   - Get the current state of a hold
// DELETE /api/v1/bookings/hold/:holdToken   - Cancel an active hold
// POST   /api/v1/bookings/:id/confirm      - Confirm a hold into a booking (id = hold token)
// GET    /api/v1/bookings/:id              - Get a booking by reference (id = booking reference)
