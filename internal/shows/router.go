package shows

import (
	"gatepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupShowRoutes(router *gin.RouterGroup, controller Controller) {
	// Public routes - browsing and the live seat map
	publicShows := router.Group("/shows")
	{
		publicShows.GET("", controller.ListShows)                            // GET /api/v1/shows
		publicShows.GET("/:showId", controller.GetShow)                      // GET /api/v1/shows/:showId
		publicShows.GET("/:showId/availability", controller.GetAvailability) // GET /api/v1/shows/:showId/availability
	}

	// Admin routes - show and layout management
	adminShows := router.Group("/admin/shows")
	adminShows.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminShows.POST("", controller.CreateShow)                   // POST /api/v1/admin/shows
		adminShows.DELETE("/:showId", controller.DeleteShow)         // DELETE /api/v1/admin/shows/:showId
		adminShows.POST("/:showId/layout", controller.PublishLayout) // POST /api/v1/admin/shows/:showId/layout
	}

	adminUnits := router.Group("/admin/units")
	adminUnits.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminUnits.PUT("/:unitId/block", controller.SetUnitBlocked) // PUT /api/v1/admin/units/:unitId/block
	}
}
