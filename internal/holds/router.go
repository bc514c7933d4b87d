package holds

import "github.com/gin-gonic/gin"

func SetupHoldRoutes(router *gin.RouterGroup, controller Controller) {
	// Checkout sessions are anonymous; ownership is proven by session_id,
	// not by auth.
	router.POST("/shows/:showId/holds", controller.AcquireHold) // POST /api/v1/shows/:showId/holds

	holds := router.Group("/holds")
	{
		holds.GET("/:holdId", controller.GetHold)         // GET /api/v1/holds/:holdId
		holds.PUT("/:holdId/renew", controller.RenewHold) // PUT /api/v1/holds/:holdId/renew
		holds.DELETE("/:holdId", controller.ReleaseHold)  // DELETE /api/v1/holds/:holdId
	}
}
