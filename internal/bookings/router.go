package bookings

import (
	"gatepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupBookingRoutes(router *gin.RouterGroup, controller Controller) {
	bookings := router.Group("/bookings")
	{
		bookings.POST("", controller.CreateBooking)                             // POST /api/v1/bookings
		bookings.GET("/:bookingId", controller.GetBooking)                      // GET /api/v1/bookings/:bookingId
		bookings.GET("/reference/:reference", controller.GetBookingByReference) // GET /api/v1/bookings/reference/:reference
		bookings.POST("/:bookingId/cancel", controller.CancelBooking)           // POST /api/v1/bookings/:bookingId/cancel
	}

	// Gateway webhook; authenticated by its HMAC signature, not a JWT
	router.POST("/payments/webhook", controller.PaymentWebhook) // POST /api/v1/payments/webhook

	// Admin report
	adminBookings := router.Group("/admin/bookings")
	adminBookings.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminBookings.GET("", controller.ListBookings) // GET /api/v1/admin/bookings
	}
}
