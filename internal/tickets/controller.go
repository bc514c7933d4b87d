package tickets

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"gatepass/internal/shared/utils/response"
)

type Controller interface {
	Scan(c *gin.Context)
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

// Scan verifies one ticket code. A REJECTED or ALREADY_USED verdict is a
// successful scan from the transport's point of view; only infrastructure
// failures surface as 5xx.
func (ctrl *controller) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	result, err := ctrl.service.Verify(c.Request.Context(), req.Code)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Scan failed", nil, err.Error())
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Scan processed", result, nil)
}
