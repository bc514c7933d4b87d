package carts

import (
	"gatepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCartRoutes(router *gin.RouterGroup, controller Controller) {
	adminCarts := router.Group("/admin/abandoned-carts")
	adminCarts.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		adminCarts.GET("", controller.GetReport)          // GET /api/v1/admin/abandoned-carts
		adminCarts.GET("/summary", controller.GetSummary) // GET /api/v1/admin/abandoned-carts/summary
	}
}
