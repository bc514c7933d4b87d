package holds

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gatepass/internal/shared/utils/response"
)

type Controller interface {
	AcquireHold(c *gin.Context)
	RenewHold(c *gin.Context)
	ReleaseHold(c *gin.Context)
	GetHold(c *gin.Context)
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

func (ctrl *controller) AcquireHold(c *gin.Context) {
	var req AcquireHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	hold, err := ctrl.service.AcquireHold(c.Request.Context(), c.Param("showId"), req)
	if err != nil {
		var unavailableErr *UnavailableUnitsError
		switch {
		case errors.As(err, &unavailableErr):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, map[string]interface{}{
				"unavailable_units": unavailableErr.Labels,
			})
		case errors.Is(err, ErrCapacityExceeded):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
		case err.Error() == "show not found":
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Hold acquired successfully", hold, nil)
}

func (ctrl *controller) RenewHold(c *gin.Context) {
	var req RenewHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	hold, err := ctrl.service.RenewHold(c.Request.Context(), c.Param("holdId"), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrHoldNotFound):
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		case errors.Is(err, ErrSessionMismatch):
			response.RespondJSON(c, "error", http.StatusForbidden, err.Error(), nil, nil)
		case errors.Is(err, ErrHoldExpired), errors.Is(err, ErrHoldNotRenewable):
			response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Hold renewed successfully", hold, nil)
}

func (ctrl *controller) ReleaseHold(c *gin.Context) {
	var req ReleaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	err := ctrl.service.ReleaseHold(c.Request.Context(), c.Param("holdId"), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrHoldNotFound):
			response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
		case errors.Is(err, ErrSessionMismatch):
			response.RespondJSON(c, "error", http.StatusForbidden, err.Error(), nil, nil)
		default:
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		}
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Hold released successfully", nil, nil)
}

func (ctrl *controller) GetHold(c *gin.Context) {
	hold, err := ctrl.service.GetHold(c.Request.Context(), c.Param("holdId"))
	if err != nil {
		statusCode := http.StatusBadRequest
		if errors.Is(err, ErrHoldNotFound) {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(c, "error", statusCode, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Hold retrieved successfully", hold, nil)
}
