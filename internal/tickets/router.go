package tickets

import (
	"gatepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTicketRoutes(router *gin.RouterGroup, controller Controller) {
	// Gate scanning requires a staff token
	scan := router.Group("/scan")
	scan.Use(middleware.JWTAuth(), middleware.RequireStaff())
	{
		scan.POST("", controller.Scan) // POST /api/v1/scan
	}
}
