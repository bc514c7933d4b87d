package shows

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gatepass/internal/shared/utils/response"
)

type Controller interface {
	CreateShow(c *gin.Context)
	GetShow(c *gin.Context)
	ListShows(c *gin.Context)
	DeleteShow(c *gin.Context)
	PublishLayout(c *gin.Context)
	GetAvailability(c *gin.Context)
	SetUnitBlocked(c *gin.Context)
}

type controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

func (ctrl *controller) CreateShow(c *gin.Context) {
	var req CreateShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	show, err := ctrl.service.CreateShow(c.Request.Context(), req)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Show created successfully", show, nil)
}

func (ctrl *controller) GetShow(c *gin.Context) {
	show, err := ctrl.service.GetShow(c.Request.Context(), c.Param("showId"))
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err.Error() == "show not found" {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Show retrieved successfully", show, nil)
}

func (ctrl *controller) ListShows(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	shows, err := ctrl.service.ListShows(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Shows retrieved successfully", shows, nil)
}

func (ctrl *controller) DeleteShow(c *gin.Context) {
	if err := ctrl.service.DeleteShow(c.Request.Context(), c.Param("showId")); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Show deleted successfully", nil, nil)
}

func (ctrl *controller) PublishLayout(c *gin.Context) {
	var req PublishLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	show, err := ctrl.service.PublishLayout(c.Request.Context(), c.Param("showId"), req)
	if err != nil {
		statusCode := http.StatusBadRequest
		if err.Error() == "show not found" {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Layout published successfully", show, nil)
}

func (ctrl *controller) GetAvailability(c *gin.Context) {
	availability, err := ctrl.service.GetAvailability(c.Request.Context(), c.Param("showId"))
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err.Error() == "show not found" {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Availability retrieved successfully", availability, nil)
}

func (ctrl *controller) SetUnitBlocked(c *gin.Context) {
	var req BlockUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if err := ctrl.service.SetUnitBlocked(c.Request.Context(), c.Param("unitId"), req.Blocked); err != nil {
		statusCode := http.StatusBadRequest
		if strings.Contains(err.Error(), "not in") {
			statusCode = http.StatusConflict
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Unit updated successfully", nil, nil)
}
