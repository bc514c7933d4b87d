package carts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gatepass/internal/shared/utils/response"
)

type Controller interface {
	GetReport(c *gin.Context)
	GetSummary(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) GetReport(c *gin.Context) {
	sinceHours, _ := strconv.Atoi(c.DefaultQuery("since_hours", "24"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	carts, err := ctrl.service.GetReport(c.Request.Context(), c.Query("show_id"), sinceHours, limit, offset)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Abandoned carts retrieved successfully", carts, nil)
}

func (ctrl *controller) GetSummary(c *gin.Context) {
	sinceHours, _ := strconv.Atoi(c.DefaultQuery("since_hours", "24"))

	summary, err := ctrl.service.GetSummary(c.Request.Context(), sinceHours)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Abandonment summary retrieved successfully", summary, nil)
}
